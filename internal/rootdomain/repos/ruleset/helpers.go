package ruleset

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"

	"github.com/haukened/rootdomain/internal/rootdomain/common/utils"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

const (
	beginICANN   = "===BEGIN ICANN DOMAINS==="
	endICANN     = "===END ICANN DOMAINS==="
	beginPrivate = "===BEGIN PRIVATE DOMAINS==="
	endPrivate   = "===END PRIVATE DOMAINS==="
)

// ruleProfile converts Unicode rules to A-labels. STD3 is relaxed because a
// few list entries carry underscores.
var ruleProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
)

// stripLineBOM removes a UTF-8 byte order mark from the start of a line.
func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// classifyLine reports whether a trimmed line is empty or a whole-line comment.
// Both "//" (list format) and "#" comments are accepted.
func classifyLine(trimmed string) (isEmpty, isComment bool) {
	if trimmed == "" {
		return true, false
	}
	return false, strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#")
}

// sectionFromComment returns the section a marker comment switches to.
// ok is false when the comment is not a section marker.
func sectionFromComment(comment string, current domain.RuleSection) (domain.RuleSection, bool) {
	switch {
	case strings.Contains(comment, beginPrivate):
		return domain.SectionPrivate, true
	case strings.Contains(comment, beginICANN):
		return domain.SectionICANN, true
	case strings.Contains(comment, endPrivate), strings.Contains(comment, endICANN):
		return domain.SectionICANN, true
	default:
		return current, false
	}
}

// firstToken returns the text up to the first whitespace; the list format
// ignores anything after it.
func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ruleKindFromRaw decides the RuleKind from the raw token and strips the marker.
func ruleKindFromRaw(raw string) (domain.RuleKind, string) {
	switch {
	case strings.HasPrefix(raw, "!"):
		return domain.RuleException, raw[1:]
	case strings.HasPrefix(raw, "*."):
		return domain.RuleWildcard, raw[2:]
	default:
		return domain.RuleNormal, raw
	}
}

// normalizeRuleName lowercases a rule name and converts it to A-labels.
func normalizeRuleName(name string) (string, error) {
	name = utils.CanonicalHostName(name)
	if name == "" || utils.HasEmptyLabel(name) {
		return "", fmt.Errorf("empty label in %q", name)
	}
	if utils.IsASCII(name) {
		return name, nil
	}
	ascii, err := ruleProfile.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	return ascii, nil
}
