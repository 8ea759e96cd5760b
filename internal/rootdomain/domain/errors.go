package domain

import "errors"

var (
	// ErrInvalidFormat is returned when the input cannot be parsed as a URL, even with a default scheme.
	ErrInvalidFormat = errors.New("invalid URL format")
	// ErrNoHost is returned when the URL parses but carries no host.
	ErrNoHost = errors.New("URL has no valid host component")
	// ErrIPv4NotAllowed is returned when the host is an IPv4 literal.
	ErrIPv4NotAllowed = errors.New("IPv4 addresses are not valid domains")
	// ErrIPv6NotAllowed is returned when the host is an IPv6 literal.
	ErrIPv6NotAllowed = errors.New("IPv6 addresses are not valid domains")
	// ErrInvalidDomain is returned when the host fails IDNA conversion or label validation.
	ErrInvalidDomain = errors.New("invalid domain")
	// ErrDomainIsSuffixOnly is returned when the host is itself a public suffix.
	ErrDomainIsSuffixOnly = errors.New("domain is a public suffix with no registrable label")
	// ErrRulesetLoad is returned when ruleset text is missing, unreadable, or has no usable rules.
	ErrRulesetLoad = errors.New("failed to load suffix ruleset")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidFormat, "invalid_format"},
	{ErrNoHost, "no_host"},
	{ErrIPv4NotAllowed, "ipv4_not_allowed"},
	{ErrIPv6NotAllowed, "ipv6_not_allowed"},
	{ErrInvalidDomain, "invalid_domain"},
	{ErrDomainIsSuffixOnly, "domain_is_suffix_only"},
	{ErrRulesetLoad, "ruleset_load"},
}

// ErrorKind returns the stable kind name for err, "" for nil and "unknown"
// for errors outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return "unknown"
}
