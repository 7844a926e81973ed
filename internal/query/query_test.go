package query

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain code", "600519", "600519"},
		{"chinese name", "贵州茅台", "贵州茅台"},
		{"inner ascii space", "贵州 茅台", "贵州茅台"},
		{"ideographic space", "红利\u3000低波", "红利低波"},
		{"tabs and newlines", "\tAAPL\n", "AAPL"},
		{"nbsp", "半导体\u00a0ETF", "半导体ETF"},
		{"full width digits", "６００５１９", "600519"},
		{"full width letters", "ＡＡＰＬ", "AAPL"},
		{"zero width space", "茅\u200b台", "茅台"},
		{"bom", "\ufeff600519", "600519"},
		{"markup", `<b>"AAPL"</b>`, "bAAPL/b"},
		{"only whitespace", " \t\u3000 ", ""},
		{"empty", "", ""},
		{"mixed scripts", "Apple 苹果", "Apple苹果"},
		{"case preserved", "aapl", "aapl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	// Combining marks separated by removable runes compose on a later pass.
	for _, s := range []string{"e\u200b\u0301", "贵州 茅台", "Ａ\u3000Ｂ", "a\u0301 \u0301"} {
		once := Normalize(s)
		require.Equal(t, once, Normalize(once), "input %q", s)
	}

	f := func(s string) bool {
		once := Normalize(s)
		return Normalize(once) == once
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 2000}))
}

func TestNormalize_NoWhitespaceLeft(t *testing.T) {
	t.Parallel()

	f := func(s string) bool {
		for _, r := range Normalize(s) {
			if keep(r) == -1 {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(f, nil))
}
