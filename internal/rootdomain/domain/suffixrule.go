package domain

import (
	"fmt"
	"strings"
)

// RuleKind defines how a suffix rule matches host labels.
//
// normal    - "co.uk" matches the labels exactly
// wildcard  - "*.ck" matches any single label followed by "ck"
// exception - "!www.ck" cancels the wildcard for that exact name
type RuleKind uint8

const (
	// RuleNormal matches its labels exactly.
	RuleNormal RuleKind = iota
	// RuleWildcard matches any one label to the left of its labels.
	RuleWildcard
	// RuleException removes its leftmost label from the public suffix.
	RuleException
)

// String returns a stable string representation of the rule kind.
func (k RuleKind) String() string {
	switch k {
	case RuleNormal:
		return "normal"
	case RuleWildcard:
		return "wildcard"
	case RuleException:
		return "exception"
	default:
		return fmt.Sprintf("RuleKind(%d)", k)
	}
}

// RuleSection records which part of the list a rule came from.
type RuleSection uint8

const (
	// SectionICANN covers suffixes delegated by ICANN (the default).
	SectionICANN RuleSection = iota
	// SectionPrivate covers suffixes submitted by private operators (blogspot.com, github.io).
	SectionPrivate
)

func (s RuleSection) String() string {
	switch s {
	case SectionICANN:
		return "icann"
	case SectionPrivate:
		return "private"
	default:
		return fmt.Sprintf("RuleSection(%d)", s)
	}
}

// SuffixRule is a single public suffix rule.
//
// Notes:
//   - Labels are stored left-to-right without the "*." or "!" marker, lowercased and
//     ASCII-encoded (normalization handled by the parser).
//   - A wildcard rule "*.ck" is stored as Labels ["ck"] with Kind RuleWildcard.
//   - Line is the 1-based source line, 0 when the rule was built in code.
type SuffixRule struct {
	Labels  []string
	Kind    RuleKind
	Section RuleSection
	Line    int
}

// NewSuffixRule constructs a SuffixRule from a dotted name (without marker) and validates it.
func NewSuffixRule(name string, kind RuleKind, section RuleSection) (SuffixRule, error) {
	name = strings.TrimSpace(name)
	var labels []string
	if name != "" {
		labels = strings.Split(name, ".")
	}
	r := SuffixRule{Labels: labels, Kind: kind, Section: section}
	if err := r.Validate(); err != nil {
		return SuffixRule{}, err
	}
	return r, nil
}

// Validate checks the rule for structural problems.
func (r SuffixRule) Validate() error {
	if len(r.Labels) == 0 {
		return fmt.Errorf("rule must have at least one label")
	}
	for _, l := range r.Labels {
		if l == "" {
			return fmt.Errorf("rule %q has an empty label", r.Name())
		}
		if l == "*" {
			return fmt.Errorf("rule %q: wildcards are only allowed as the leftmost marker", r.Name())
		}
	}
	switch r.Kind {
	case RuleNormal, RuleWildcard:
	case RuleException:
		if len(r.Labels) < 2 {
			return fmt.Errorf("exception rule %q must have at least two labels", r.Name())
		}
	default:
		return fmt.Errorf("unsupported RuleKind: %d", r.Kind)
	}
	return nil
}

// Name returns the dotted labels without the kind marker.
func (r SuffixRule) Name() string {
	return strings.Join(r.Labels, ".")
}

// String returns the rule as it appears in list text ("*.ck", "!www.ck", "co.uk").
func (r SuffixRule) String() string {
	switch r.Kind {
	case RuleWildcard:
		return "*." + r.Name()
	case RuleException:
		return "!" + r.Name()
	default:
		return r.Name()
	}
}

// Reversed returns the labels right-to-left, the order used by the suffix index.
func (r SuffixRule) Reversed() []string {
	out := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		out[len(r.Labels)-1-i] = l
	}
	return out
}

// IsWildcard returns true when the rule kind is wildcard.
func (r SuffixRule) IsWildcard() bool { return r.Kind == RuleWildcard }

// IsException returns true when the rule kind is exception.
func (r SuffixRule) IsException() bool { return r.Kind == RuleException }
