package extractor

import "github.com/haukened/rootdomain/internal/rootdomain/domain"

// SuffixMatcher finds the public suffix of a host.
type SuffixMatcher interface {
	// Match takes the ASCII labels of a host, left-to-right, and reports how
	// many of the rightmost labels form its public suffix.
	Match(labels []string) domain.Match
}
