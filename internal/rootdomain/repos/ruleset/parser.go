package ruleset

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

// Options controls how rule text is parsed and labelled.
type Options struct {
	// Source identifies where the text came from (file path, URL, snapshot).
	Source string
	// IncludePrivate keeps rules from the PRIVATE DOMAINS section.
	IncludePrivate bool
}

// ParseRules parses Public Suffix List formatted text into SuffixRule values.
//
// Behavior:
//   - One rule per line; only the text up to the first whitespace is used
//   - Blank lines and comments ("//" or "#") are skipped
//   - ICANN/PRIVATE section markers set the Section of the following rules
//   - "*." marks a wildcard rule, "!" an exception rule
//   - Names are lowercased and converted to A-labels
//   - Invalid and duplicate rules are skipped, first-seen order is preserved
func ParseRules(r io.Reader, opts Options, logger logpkg.Logger) ([]domain.SuffixRule, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	out := make([]domain.SuffixRule, 0, 1024)
	section := domain.SectionICANN

	logger.Debug(map[string]any{"source": opts.Source}, "parse_rules_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		trimmed := strings.TrimSpace(stripLineBOM(scanner.Text()))

		if isEmpty, isComment := classifyLine(trimmed); isEmpty || isComment {
			if isComment {
				if next, ok := sectionFromComment(trimmed, section); ok {
					section = next
					logger.Debug(map[string]any{"line": lineNum, "section": section.String()}, "rules_section")
				}
			}
			continue
		}

		if section == domain.SectionPrivate && !opts.IncludePrivate {
			continue
		}

		raw := firstToken(trimmed)
		kind, rest := ruleKindFromRaw(raw)

		name, err := normalizeRuleName(rest)
		if err != nil {
			logger.Debug(map[string]any{"line": lineNum, "raw": raw, "error": err.Error()}, "rules_skip_invalid")
			continue
		}

		rule, err := domain.NewSuffixRule(name, kind, section)
		if err != nil {
			logger.Debug(map[string]any{"line": lineNum, "raw": raw, "error": err.Error()}, "rules_skip_constructor_error")
			continue
		}
		rule.Line = lineNum

		key := rule.String()
		if _, ok := seen[key]; ok {
			logger.Debug(map[string]any{"line": lineNum, "rule": key}, "rules_skip_duplicate")
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rule)
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": opts.Source, "error": err.Error()}, "parse_rules_scan_error")
		return nil, err
	}

	logger.Debug(map[string]any{"source": opts.Source, "count": len(out)}, "parse_rules_done")
	return out, nil
}
