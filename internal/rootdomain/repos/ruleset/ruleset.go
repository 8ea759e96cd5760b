// Package ruleset parses Public Suffix List text and indexes it for
// longest-match lookups.
//
// The index is a trie keyed by labels read right-to-left ("uk" -> "co" -> ...).
// Wildcard rules hang off their parent as a "*" child and exception rules are
// flagged on the node they name, so a lookup walks at most one path per host
// label plus the wildcard branch. A Ruleset is immutable once built and is safe
// for concurrent use without locking.
package ruleset

import (
	"fmt"
	"strings"

	"github.com/haukened/rootdomain/internal/rootdomain/common/utils"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

const wildcardLabel = "*"

type node struct {
	children map[string]*node
	// terminal is the normal rule ending here, or the wildcard rule when this is a "*" node.
	terminal *domain.SuffixRule
	// exception is the exception rule naming this node.
	exception *domain.SuffixRule
}

func (n *node) child(label string) *node {
	if n.children == nil {
		return nil
	}
	return n.children[label]
}

func (n *node) ensureChild(label string) (*node, bool) {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c, ok := n.children[label]
	if !ok {
		c = &node{}
		n.children[label] = c
	}
	return c, !ok
}

// Stats reports counts for a built Ruleset.
type Stats struct {
	Rules      int
	Normal     int
	Wildcard   int
	Exception  int
	Private    int
	Nodes      int
	Source     string
	Duplicates int
}

// Ruleset is an immutable suffix index.
type Ruleset struct {
	root  *node
	stats Stats
}

// New indexes rules. It fails with domain.ErrRulesetLoad when rules is empty
// or contains an invalid rule. Rules naming the same suffix and kind are
// counted once; the first one wins.
func New(rules []domain.SuffixRule) (*Ruleset, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no usable rules", domain.ErrRulesetLoad)
	}

	rs := &Ruleset{root: &node{}, stats: Stats{Nodes: 1}}
	for i := range rules {
		rule := rules[i]
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", domain.ErrRulesetLoad, i, err)
		}
		rs.insert(rule)
	}
	return rs, nil
}

func (rs *Ruleset) insert(rule domain.SuffixRule) {
	n := rs.root
	for _, label := range rule.Reversed() {
		var created bool
		n, created = n.ensureChild(label)
		if created {
			rs.stats.Nodes++
		}
	}

	if rule.IsWildcard() {
		var created bool
		n, created = n.ensureChild(wildcardLabel)
		if created {
			rs.stats.Nodes++
		}
	}

	slot := &n.terminal
	if rule.IsException() {
		slot = &n.exception
	}
	if *slot != nil {
		rs.stats.Duplicates++
		return
	}
	*slot = &rule

	rs.stats.Rules++
	switch rule.Kind {
	case domain.RuleNormal:
		rs.stats.Normal++
	case domain.RuleWildcard:
		rs.stats.Wildcard++
	case domain.RuleException:
		rs.stats.Exception++
	}
	if rule.Section == domain.SectionPrivate {
		rs.stats.Private++
	}
}

// Match finds the public suffix of a host given as ASCII labels, left-to-right.
//
// An exception rule prevails over every other match and yields its own labels
// minus the leftmost one. Otherwise the longest normal or wildcard rule wins.
// When nothing matches, the implicit "*" rule makes the rightmost label the
// public suffix.
func (rs *Ruleset) Match(labels []string) domain.Match {
	best := domain.Match{Rule: wildcardLabel, Kind: domain.RuleWildcard, Implicit: true}
	if len(labels) == 0 {
		return best
	}
	best.SuffixLabels = 1

	var exception *domain.Match
	rs.walk(rs.root, labels, 0, &best, &exception)
	if exception != nil {
		return *exception
	}
	return best
}

// walk visits every rule node reachable from n, where n stands for the
// rightmost depth labels of the host.
func (rs *Ruleset) walk(n *node, labels []string, depth int, best *domain.Match, exception **domain.Match) {
	if r := n.exception; r != nil {
		if *exception == nil || depth-1 > (*exception).SuffixLabels {
			*exception = &domain.Match{SuffixLabels: depth - 1, Rule: r.String(), Kind: r.Kind, Section: r.Section}
		}
	}
	if r := n.terminal; r != nil && (best.Implicit || depth > best.SuffixLabels) {
		*best = domain.Match{SuffixLabels: depth, Rule: r.String(), Kind: r.Kind, Section: r.Section}
	}
	if depth == len(labels) {
		return
	}

	label := labels[len(labels)-1-depth]
	if c := n.child(label); c != nil {
		rs.walk(c, labels, depth+1, best, exception)
	}
	if label == wildcardLabel {
		return
	}
	if c := n.child(wildcardLabel); c != nil {
		rs.walk(c, labels, depth+1, best, exception)
	}
}

// PublicSuffix returns the public suffix of an ASCII domain name.
// Together with String it satisfies net/http/cookiejar.PublicSuffixList.
func (rs *Ruleset) PublicSuffix(name string) string {
	labels := utils.SplitLabels(utils.CanonicalHostName(name))
	m := rs.Match(labels)
	if m.SuffixLabels == 0 {
		return ""
	}
	return strings.Join(labels[len(labels)-m.SuffixLabels:], ".")
}

// String describes the ruleset and where it was loaded from.
func (rs *Ruleset) String() string {
	src := rs.stats.Source
	if src == "" {
		src = "inline"
	}
	return fmt.Sprintf("suffix ruleset from %s: %d rules (%d wildcard, %d exception, %d private)",
		src, rs.stats.Rules, rs.stats.Wildcard, rs.stats.Exception, rs.stats.Private)
}

// Stats returns a copy of the ruleset counters.
func (rs *Ruleset) Stats() Stats {
	return rs.stats
}
