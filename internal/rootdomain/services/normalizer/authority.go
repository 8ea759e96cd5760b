package normalizer

import "strings"

// specialSchemes are the schemes whose URLs always carry an authority, so
// slashes between "scheme:" and the host are not significant.
var specialSchemes = map[string]bool{
	"ftp":   true,
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
}

// splitScheme returns the scheme of s and the text after its colon.
func splitScheme(s string) (scheme, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
			if i == 0 {
				return "", s, false
			}
		case c == ':':
			if i == 0 {
				return "", s, false
			}
			return s[:i], s[i+1:], true
		default:
			return "", s, false
		}
	}
	return "", s, false
}

// canonicalizeAuthority rewrites URLs with a special scheme so that net/url
// sees "scheme://authority": any run of '/' or '\' after the colon becomes
// "//", the authority ends at the first '/', '\', '?' or '#', and
// percent-escaped unreserved characters in the host are decoded.
// Other input is returned unchanged.
func canonicalizeAuthority(s string) string {
	scheme, rest, ok := splitScheme(s)
	if !ok || !specialSchemes[strings.ToLower(scheme)] {
		return s
	}

	rest = strings.TrimLeft(rest, `/\`)
	authority, tail := rest, ""
	if end := strings.IndexAny(rest, `/\?#`); end >= 0 {
		authority, tail = rest[:end], rest[end:]
	}
	if strings.HasPrefix(tail, `\`) {
		tail = "/" + tail[1:]
	}
	return scheme + "://" + decodeHostEscapes(authority) + tail
}

// decodeHostEscapes decodes %XX sequences naming unreserved ASCII characters
// in the host part of an authority. net/url refuses them in a host while URL
// parsers in browsers accept them. User-info and bracketed literals are left alone.
func decodeHostEscapes(authority string) string {
	userinfo, hostport := "", authority
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		userinfo, hostport = authority[:at+1], authority[at+1:]
	}
	if strings.HasPrefix(hostport, "[") || !strings.Contains(hostport, "%") {
		return authority
	}

	var b strings.Builder
	b.Grow(len(hostport))
	for i := 0; i < len(hostport); i++ {
		if hostport[i] == '%' && i+2 < len(hostport) && isHex(hostport[i+1]) && isHex(hostport[i+2]) {
			if c := unhex(hostport[i+1])<<4 | unhex(hostport[i+2]); isUnreserved(c) {
				b.WriteByte(c)
				i += 2
				continue
			}
		}
		b.WriteByte(hostport[i])
	}
	return userinfo + b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
