package eastmoney

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockquote/internal/provider"
)

func TestClassifyMarket(t *testing.T) {
	t.Parallel()

	cases := map[string]provider.Class{
		"沪A":    provider.ClassStock,
		" 深A ":  provider.ClassStock,
		"ETF":   provider.ClassFund,
		"基金":    provider.ClassFund,
		"指数":    provider.ClassIndex,
		"美股":    provider.ClassOverseas,
		"港股":    provider.ClassOverseas,
		"美股指数":  provider.ClassIndex,
		"可转债":   provider.ClassBond,
		"期货":    provider.ClassFutures,
		"":      provider.ClassUnknown,
		"other": provider.ClassUnknown,
	}
	for label, want := range cases {
		assert.Equalf(t, want, classifyMarket(label), "label %q", label)
	}
}

func TestClassifyURL(t *testing.T) {
	t.Parallel()

	cases := map[string]provider.Class{
		"https://quote.eastmoney.com/sh600519.html":    provider.ClassStock,
		"https://quote.eastmoney.com/sz300750.html":    provider.ClassStock,
		"https://quote.eastmoney.com/sh000001.html":    provider.ClassIndex,
		"https://quote.eastmoney.com/zs399001.html":    provider.ClassIndex,
		"https://quote.eastmoney.com/sh512890.html":    provider.ClassFund,
		"https://quote.eastmoney.com/sz159915.html":    provider.ClassFund,
		"https://quote.eastmoney.com/sh113052.html":    provider.ClassBond,
		"https://quote.eastmoney.com/us/AAPL.html":     provider.ClassOverseas,
		"https://quote.eastmoney.com/hk/00700.html":    provider.ClassOverseas,
		"https://quote.eastmoney.com/gb/zsNDX.html":    provider.ClassIndex,
		"https://fund.eastmoney.com/512890.html":       provider.ClassFund,
		"https://quote.eastmoney.com/qihuo/AUM.html":   provider.ClassFutures,
		"https://quote.eastmoney.com/center/list.html": provider.ClassUnknown,
	}
	for raw, want := range cases {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equalf(t, want, classifyURL(u), "url %s", raw)
	}
}

func TestCodeFromURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://quote.eastmoney.com/sh600519.html":    "600519",
		"https://quote.eastmoney.com/us/AAPL.html":     "AAPL",
		"https://quote.eastmoney.com/unify/r/105.AAPL": "AAPL",
		"https://quote.eastmoney.com/zs/H30269.html":   "H30269",
		"https://quote.eastmoney.com/":                 "",
	}
	for raw, want := range cases {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equalf(t, want, codeFromURL(u), "url %s", raw)
	}
}

func TestSplitTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title, urlCode string
		name, code     string
	}{
		{"贵州茅台 (600519)", "600519", "贵州茅台", "600519"},
		{"贵州茅台（600519）", "", "贵州茅台", "600519"},
		{"苹果 AAPL", "AAPL", "苹果", "AAPL"},
		{"标普500ETF", "513500", "标普500ETF", "513500"},
	}
	for _, tt := range tests {
		name, code := splitTitle(tt.title, tt.urlCode)
		assert.Equal(t, tt.name, name, tt.title)
		assert.Equal(t, tt.code, code, tt.title)
	}
}
