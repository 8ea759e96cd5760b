package domain

// Match is the outcome of looking a host up in a suffix index.
//
// SuffixLabels is the number of rightmost host labels that form the public suffix.
// Implicit is set when no rule matched and the default "*" rule applied.
type Match struct {
	SuffixLabels int
	Rule         string
	Kind         RuleKind
	Section      RuleSection
	Implicit     bool
}

// Domain is a successful root domain extraction.
type Domain struct {
	// Host is the matched host in presentation form.
	Host string
	// PublicSuffix is the effective TLD of Host.
	PublicSuffix string
	// RootDomain is PublicSuffix plus exactly one label.
	RootDomain string
	Match      Match
}
