// Package normalizer reduces loosely formatted URL or host strings to a
// canonical host name.
package normalizer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/haukened/rootdomain/internal/rootdomain/common/utils"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

const defaultScheme = "http://"

var errMissingScheme = errors.New("missing scheme")

// NormalizeHost extracts the host of raw and returns it lowercased, without a
// trailing dot, user-info or port.
//
// raw is parsed as an absolute URL first, ignoring surrounding whitespace.
// When that fails and raw looks like a bare host (no scheme, at least one
// dot, no whitespace anywhere, including at either end) it is parsed again
// with an http:// prefix. IP literals are rejected with domain.ErrIPv4NotAllowed
// or domain.ErrIPv6NotAllowed. The returned host may still contain Unicode labels.
func NormalizeHost(raw string) (string, error) {
	u, err := parseAbsolute(strings.TrimSpace(raw))
	if err != nil {
		if !retryable(raw) {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
		}
		u, err = parseAbsolute(defaultScheme + raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
		}
	}
	return hostFromURL(u)
}

// retryable reports whether raw may be a host given without a scheme.
// Input that already names a scheme is not retried, or "http://x.com:bad"
// would come back as the host "http".
func retryable(raw string) bool {
	if _, _, hasScheme := splitScheme(raw); hasScheme {
		return false
	}
	return strings.Contains(raw, ".") && strings.IndexFunc(raw, unicode.IsSpace) < 0
}

// parseAbsolute parses s as a URL that must carry a scheme.
func parseAbsolute(s string) (*url.URL, error) {
	u, err := url.Parse(canonicalizeAuthority(s))
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, uerr.Err
		}
		return nil, err
	}
	if u.Scheme == "" {
		return nil, errMissingScheme
	}
	return u, nil
}

func hostFromURL(u *url.URL) (string, error) {
	if u.Host == "" {
		return "", domain.ErrNoHost
	}
	if strings.HasPrefix(u.Host, "[") {
		return "", fmt.Errorf("%w: %s", domain.ErrIPv6NotAllowed, u.Hostname())
	}

	host := utils.CanonicalHostName(u.Hostname())
	if host == "" {
		return "", domain.ErrNoHost
	}

	if endsInNumber(host) {
		addr, ok := parseIPv4(host)
		if !ok {
			return "", fmt.Errorf("%w: malformed IPv4 address %q", domain.ErrInvalidFormat, host)
		}
		return "", fmt.Errorf("%w: %s", domain.ErrIPv4NotAllowed, addr)
	}

	if utils.HasEmptyLabel(host) {
		return "", fmt.Errorf("%w: empty label in %q", domain.ErrInvalidDomain, host)
	}
	return host, nil
}
