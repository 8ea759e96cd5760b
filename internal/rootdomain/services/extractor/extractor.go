// Package extractor reduces hosts and URLs to their registrable root domain
// (the public suffix plus one label).
package extractor

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"

	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/common/utils"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
	"github.com/haukened/rootdomain/internal/rootdomain/services/normalizer"
)

const (
	maxLabelLength = 63
	maxNameLength  = 253
)

// hostProfile maps Unicode hosts to A-labels for matching and back for
// display. It also vets ASCII hosts: A-labels must decode to valid labels and
// no label may start or end with a hyphen. Underscores are tolerated since
// they appear in real host names.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
	idna.VerifyDNSLength(true),
	idna.CheckHyphens(true),
	idna.ValidateLabels(true),
)

// ExtractRootDomain returns the registrable domain of host according to rules.
//
// Unicode hosts are matched in their ASCII form and the result is converted
// back, so "www.münchen.de" yields "münchen.de" while "www.xn--mnchen-3ya.de"
// yields "xn--mnchen-3ya.de". A host that is itself a listed public suffix
// fails with domain.ErrDomainIsSuffixOnly; a single label nothing lists fails
// with domain.ErrInvalidDomain.
func ExtractRootDomain(host string, rules SuffixMatcher) (domain.Domain, error) {
	if rules == nil {
		return domain.Domain{}, fmt.Errorf("%w: no ruleset", domain.ErrRulesetLoad)
	}

	host = utils.CanonicalHostName(host)
	unicodeInput := !utils.IsASCII(host)

	ascii := host
	if unicodeInput {
		var err error
		ascii, err = hostProfile.ToASCII(host)
		if err != nil {
			return domain.Domain{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidDomain, host, err)
		}
	}
	if err := validateASCIIHost(ascii); err != nil {
		return domain.Domain{}, err
	}
	if !unicodeInput {
		if _, err := hostProfile.ToUnicode(ascii); err != nil {
			return domain.Domain{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidDomain, host, err)
		}
	}

	labels := utils.SplitLabels(ascii)
	m := rules.Match(labels)
	if m.SuffixLabels >= len(labels) {
		if m.Implicit {
			return domain.Domain{}, fmt.Errorf("%w: %q has no public suffix", domain.ErrInvalidDomain, host)
		}
		return domain.Domain{}, fmt.Errorf("%w: %q", domain.ErrDomainIsSuffixOnly, host)
	}

	suffix := strings.Join(labels[len(labels)-m.SuffixLabels:], ".")
	root := strings.Join(labels[len(labels)-m.SuffixLabels-1:], ".")
	if unicodeInput {
		var err error
		if root, err = hostProfile.ToUnicode(root); err != nil {
			return domain.Domain{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidDomain, root, err)
		}
		if suffix, err = hostProfile.ToUnicode(suffix); err != nil {
			return domain.Domain{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidDomain, suffix, err)
		}
	}

	return domain.Domain{
		Host:         host,
		PublicSuffix: suffix,
		RootDomain:   root,
		Match:        m,
	}, nil
}

// ExtractRootDomainFromURL normalizes raw to a host and extracts its root
// domain. The first failure is returned unchanged.
func ExtractRootDomainFromURL(raw string, rules SuffixMatcher) (domain.Domain, error) {
	host, err := normalizer.NormalizeHost(raw)
	if err != nil {
		return domain.Domain{}, err
	}
	return ExtractRootDomain(host, rules)
}

// validateASCIIHost checks host is a plausible DNS name: letters, digits,
// hyphens and underscores in non-empty labels within DNS length limits.
func validateASCIIHost(host string) error {
	if host == "" || utils.HasEmptyLabel(host) {
		return fmt.Errorf("%w: empty label in %q", domain.ErrInvalidDomain, host)
	}
	if len(host) > maxNameLength {
		return fmt.Errorf("%w: name longer than %d bytes", domain.ErrInvalidDomain, maxNameLength)
	}
	for _, label := range strings.Split(host, ".") {
		if len(label) > maxLabelLength {
			return fmt.Errorf("%w: label %q longer than %d bytes", domain.ErrInvalidDomain, label, maxLabelLength)
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if 'a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '-' || c == '_' {
				continue
			}
			return fmt.Errorf("%w: character %q in %q", domain.ErrInvalidDomain, c, host)
		}
	}
	return nil
}

// Extractor resolves root domains against one shared ruleset.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	rules  SuffixMatcher
	logger log.Logger
}

// ExtractorOptions configures NewExtractor. Rules is required; a nil Logger
// discards trace output.
type ExtractorOptions struct {
	Rules  SuffixMatcher
	Logger log.Logger
}

// NewExtractor returns an Extractor over opts.Rules, which must be set.
func NewExtractor(opts ExtractorOptions) (*Extractor, error) {
	if opts.Rules == nil {
		return nil, fmt.Errorf("%w: extractor needs a ruleset", domain.ErrRulesetLoad)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Extractor{rules: opts.Rules, logger: logger}, nil
}

// RootDomain extracts the root domain of an already normalized host.
func (e *Extractor) RootDomain(host string) (domain.Domain, error) {
	d, err := ExtractRootDomain(host, e.rules)
	e.trace(host, d, err)
	return d, err
}

// FromURL normalizes raw and extracts its root domain.
func (e *Extractor) FromURL(raw string) (domain.Domain, error) {
	d, err := ExtractRootDomainFromURL(raw, e.rules)
	e.trace(raw, d, err)
	return d, err
}

func (e *Extractor) trace(input string, d domain.Domain, err error) {
	if err != nil {
		e.logger.Debug(map[string]any{
			"input": input,
			"kind":  domain.ErrorKind(err),
			"error": err,
		}, "root domain lookup failed")
		return
	}
	e.logger.Debug(map[string]any{
		"input":  input,
		"root":   d.RootDomain,
		"suffix": d.PublicSuffix,
		"rule":   d.Match.Rule,
	}, "root domain resolved")
}
