package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleKind_String(t *testing.T) {
	tests := []struct {
		kind RuleKind
		str  string
	}{
		{RuleNormal, "normal"},
		{RuleWildcard, "wildcard"},
		{RuleException, "exception"},
		{RuleKind(9), "RuleKind(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.str, tt.kind.String())
	}
}

func TestRuleSection_String(t *testing.T) {
	assert.Equal(t, "icann", SectionICANN.String())
	assert.Equal(t, "private", SectionPrivate.String())
	assert.Equal(t, "RuleSection(7)", RuleSection(7).String())
}

func TestNewSuffixRule(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		kind    RuleKind
		want    string
		wantErr bool
	}{
		{"normal", "co.uk", RuleNormal, "co.uk", false},
		{"single label", "com", RuleNormal, "com", false},
		{"wildcard", "ck", RuleWildcard, "*.ck", false},
		{"exception", "www.ck", RuleException, "!www.ck", false},
		{"exception needs two labels", "ck", RuleException, "", true},
		{"empty", "", RuleNormal, "", true},
		{"empty label", "a..b", RuleNormal, "", true},
		{"embedded wildcard", "a.*.b", RuleNormal, "", true},
		{"bad kind", "com", RuleKind(42), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewSuffixRule(tt.in, tt.kind, SectionICANN)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())
			assert.Equal(t, tt.in, r.Name())
		})
	}
}

func TestSuffixRule_ReversedAndPredicates(t *testing.T) {
	r, err := NewSuffixRule("city.kawasaki.jp", RuleException, SectionICANN)
	require.NoError(t, err)
	assert.Equal(t, []string{"jp", "kawasaki", "city"}, r.Reversed())
	assert.Equal(t, []string{"city", "kawasaki", "jp"}, r.Labels, "Reversed must not mutate")
	assert.True(t, r.IsException())
	assert.False(t, r.IsWildcard())

	w, err := NewSuffixRule("kawasaki.jp", RuleWildcard, SectionICANN)
	require.NoError(t, err)
	assert.True(t, w.IsWildcard())
}
