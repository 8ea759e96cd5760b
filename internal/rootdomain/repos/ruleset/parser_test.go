package ruleset

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/idna"

	"github.com/haukened/rootdomain/internal/rootdomain/common/log"
	"github.com/haukened/rootdomain/internal/rootdomain/domain"
)

const fixturePath = "testdata/public_suffix_list.dat"

func readFixture(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(fixturePath)
	require.NoError(t, err)
	return string(b)
}

func ruleStrings(rules []domain.SuffixRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	return out
}

func TestParseRules_Fixture(t *testing.T) {
	text := readFixture(t)

	all, err := ParseRules(strings.NewReader(text), Options{Source: fixturePath, IncludePrivate: true}, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Len(t, all, 34)

	icann, err := ParseRules(strings.NewReader(text), Options{Source: fixturePath}, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Len(t, icann, 30)
	for _, r := range icann {
		assert.Equal(t, domain.SectionICANN, r.Section, "rule %s", r)
	}

	byName := make(map[string]domain.SuffixRule, len(all))
	for _, r := range all {
		byName[r.String()] = r
		assert.Positive(t, r.Line, "rule %s should record its line", r)
	}

	assert.Equal(t, domain.RuleWildcard, byName["*.kawasaki.jp"].Kind)
	assert.Equal(t, domain.RuleException, byName["!city.kawasaki.jp"].Kind)
	assert.Equal(t, domain.SectionPrivate, byName["blogspot.com"].Section)
	assert.Equal(t, domain.SectionICANN, byName["co.uk"].Section)

	// Unicode rules are stored as A-labels.
	assert.Contains(t, byName, "xn--fiqs8s")
	assert.Contains(t, byName, "xn--55qx5d.cn")
	var tokyo string
	for name := range byName {
		if strings.HasPrefix(name, "xn--") && strings.HasSuffix(name, ".jp") {
			tokyo = name
		}
	}
	require.NotEmpty(t, tokyo)
	u, err := idna.ToUnicode(tokyo)
	require.NoError(t, err)
	assert.Equal(t, "東京.jp", u)
}

func TestParseRules_Inline(t *testing.T) {
	input := "\uFEFF// header comment\n" +
		"# hash comment\n" +
		"\n" +
		"   \t \n" +
		"COM\n" +
		"co.uk    trailing text is ignored\n" +
		"  org  \n" +
		"*.ck\n" +
		"!www.ck\n" +
		"!ck\n" +
		"*.*.bad\n" +
		"a..b\n" +
		"com\n" +
		"*.ck\n" +
		"xn--mnchen-3ya.de\n"

	got, err := ParseRules(bytes.NewBufferString(input), Options{Source: "inline", IncludePrivate: true}, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"com", "co.uk", "org", "*.ck", "!www.ck", "xn--mnchen-3ya.de"}, ruleStrings(got))
	assert.Equal(t, 5, got[0].Line)
}

func TestParseRules_SectionMarkers(t *testing.T) {
	input := `
// ===BEGIN ICANN DOMAINS===
com
// ===END ICANN DOMAINS===
// ===BEGIN PRIVATE DOMAINS===
github.io
// ===END PRIVATE DOMAINS===
example
`
	got, err := ParseRules(strings.NewReader(input), Options{IncludePrivate: true}, log.NewNoopLogger())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.SectionICANN, got[0].Section)
	assert.Equal(t, domain.SectionPrivate, got[1].Section)
	assert.Equal(t, domain.SectionICANN, got[2].Section, "rules after END PRIVATE fall back to ICANN")

	got, err = ParseRules(strings.NewReader(input), Options{}, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"com", "example"}, ruleStrings(got))
}

func TestParseRules_ScannerError(t *testing.T) {
	big := bytes.Repeat([]byte{'a'}, 70000)
	_, err := ParseRules(bytes.NewBuffer(big), Options{}, log.NewNoopLogger())
	assert.Error(t, err)
}

func TestRuleKindFromRaw(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind domain.RuleKind
		wantRest string
	}{
		{"com", domain.RuleNormal, "com"},
		{"*.ck", domain.RuleWildcard, "ck"},
		{"!www.ck", domain.RuleException, "www.ck"},
		{"*", domain.RuleNormal, "*"},
		{"", domain.RuleNormal, ""},
	}
	for _, tt := range tests {
		kind, rest := ruleKindFromRaw(tt.raw)
		assert.Equal(t, tt.wantKind, kind, "raw=%q", tt.raw)
		assert.Equal(t, tt.wantRest, rest, "raw=%q", tt.raw)
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		in          string
		wantEmpty   bool
		wantComment bool
	}{
		{"", true, false},
		{"// comment", false, true},
		{"# comment", false, true},
		{"com", false, false},
		{"/com", false, false},
	}
	for _, tt := range tests {
		e, c := classifyLine(tt.in)
		assert.Equal(t, tt.wantEmpty, e, "line=%q", tt.in)
		assert.Equal(t, tt.wantComment, c, "line=%q", tt.in)
	}
}

func TestNormalizeRuleName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"CO.UK", "co.uk", false},
		{"co.uk.", "co.uk", false},
		{"中国", "xn--fiqs8s", false},
		{"", "", true},
		{"a..b", "", true},
		{"\uFFFD.com", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeRuleName(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "in=%q", tt.in)
			continue
		}
		require.NoError(t, err, "in=%q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
