package ruleset

import (
	"fmt"
	"io"
	"strings"

	logpkg "github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

// Load parses rule text and builds a Ruleset.
// Empty text, or text without a single usable rule, fails with domain.ErrRulesetLoad.
func Load(text string, opts Options, logger logpkg.Logger) (*Ruleset, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty rule text", domain.ErrRulesetLoad)
	}
	return LoadReader(strings.NewReader(text), opts, logger)
}

// LoadReader is Load for a stream. Read failures are reported as domain.ErrRulesetLoad.
func LoadReader(r io.Reader, opts Options, logger logpkg.Logger) (*Ruleset, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no input", domain.ErrRulesetLoad)
	}
	if logger == nil {
		logger = logpkg.NewNoopLogger()
	}

	rules, err := ParseRules(r, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrRulesetLoad, sourceName(opts.Source), err)
	}

	rs, err := New(rules)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sourceName(opts.Source), err)
	}
	rs.stats.Source = opts.Source

	logger.Info(map[string]any{
		"source":    sourceName(opts.Source),
		"rules":     rs.stats.Rules,
		"wildcard":  rs.stats.Wildcard,
		"exception": rs.stats.Exception,
		"private":   rs.stats.Private,
		"nodes":     rs.stats.Nodes,
	}, "Suffix ruleset loaded")
	return rs, nil
}

func sourceName(src string) string {
	if src == "" {
		return "inline"
	}
	return src
}
