package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidFormat, "invalid_format"},
		{fmt.Errorf("%w: relative URL without a base", ErrInvalidFormat), "invalid_format"},
		{ErrNoHost, "no_host"},
		{ErrIPv4NotAllowed, "ipv4_not_allowed"},
		{ErrIPv6NotAllowed, "ipv6_not_allowed"},
		{fmt.Errorf("%w: idna: disallowed rune", ErrInvalidDomain), "invalid_domain"},
		{ErrDomainIsSuffixOnly, "domain_is_suffix_only"},
		{ErrRulesetLoad, "ruleset_load"},
		{errors.New("something else"), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "err=%v", tt.err)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, ErrIPv4NotAllowed.Error(), "IPv4 addresses are not valid domains")
	assert.Contains(t, ErrIPv6NotAllowed.Error(), "IPv6 addresses are not valid domains")
	assert.Contains(t, ErrInvalidFormat.Error(), "invalid URL")
}
