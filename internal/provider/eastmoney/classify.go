package eastmoney

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"stockquote/internal/provider"
)

// marketClasses maps the market labels shown in search results to a class.
// Keys are lower-cased.
var marketClasses = map[string]provider.Class{
	"沪a":   provider.ClassStock,
	"深a":   provider.ClassStock,
	"京a":   provider.ClassStock,
	"北a":   provider.ClassStock,
	"沪b":   provider.ClassStock,
	"深b":   provider.ClassStock,
	"a股":   provider.ClassStock,
	"b股":   provider.ClassStock,
	"科创板":  provider.ClassStock,
	"创业板":  provider.ClassStock,
	"新三板":  provider.ClassStock,
	"三板":   provider.ClassStock,
	"指数":   provider.ClassIndex,
	"板块":   provider.ClassIndex,
	"基金":   provider.ClassFund,
	"etf":  provider.ClassFund,
	"lof":  provider.ClassFund,
	"场内基金": provider.ClassFund,
	"债券":   provider.ClassBond,
	"可转债":  provider.ClassBond,
	"期货":   provider.ClassFutures,
	"美股":   provider.ClassOverseas,
	"港股":   provider.ClassOverseas,
	"英股":   provider.ClassOverseas,
	"外汇":   provider.ClassOverseas,
}

// marketKeywords classify labels with a qualifier, e.g. 美股指数 or 港股通.
// Earlier entries win.
var marketKeywords = []struct {
	keyword string
	class   provider.Class
}{
	{"指数", provider.ClassIndex},
	{"基金", provider.ClassFund},
	{"etf", provider.ClassFund},
	{"债", provider.ClassBond},
	{"期", provider.ClassFutures},
	{"美股", provider.ClassOverseas},
	{"港股", provider.ClassOverseas},
	{"沪", provider.ClassStock},
	{"深", provider.ClassStock},
}

// classifyMarket returns the class for a market label, or ClassUnknown.
func classifyMarket(label string) provider.Class {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return provider.ClassUnknown
	}
	if class, ok := marketClasses[l]; ok {
		return class
	}
	for _, k := range marketKeywords {
		if strings.Contains(l, k.keyword) {
			return k.class
		}
	}
	return provider.ClassUnknown
}

// quotePage matches quote page names such as sh600519, sz159915, bj830799
// and zs000001.
var quotePage = regexp.MustCompile(`^(sh|sz|bj|zs)(\d{6})$`)

// classifyURL infers the class from a quote page URL.
func classifyURL(u *url.URL) provider.Class {
	host := strings.ToLower(u.Hostname())
	p := strings.ToLower(u.Path)
	switch {
	case strings.HasPrefix(host, "fund."):
		return provider.ClassFund
	case strings.HasPrefix(host, "futures.") || strings.Contains(p, "/qihuo/"):
		return provider.ClassFutures
	case strings.Contains(p, "/bond/"):
		return provider.ClassBond
	case strings.Contains(p, "/us/"), strings.Contains(p, "/hk/"), strings.Contains(p, "/uk/"):
		return provider.ClassOverseas
	case strings.Contains(p, "/gb/"), strings.Contains(p, "/zs/"):
		return provider.ClassIndex
	}

	m := quotePage.FindStringSubmatch(trimPageExt(path.Base(p)))
	if m == nil {
		return provider.ClassUnknown
	}
	prefix, code := m[1], m[2]
	switch {
	case prefix == "zs":
		return provider.ClassIndex
	case prefix == "sh" && strings.HasPrefix(code, "000"):
		return provider.ClassIndex
	case prefix == "sz" && strings.HasPrefix(code, "399"):
		return provider.ClassIndex
	case prefix == "sh" && strings.HasPrefix(code, "5"),
		prefix == "sz" && (strings.HasPrefix(code, "15") || strings.HasPrefix(code, "16")):
		return provider.ClassFund
	case prefix == "sh" && strings.HasPrefix(code, "11"),
		prefix == "sz" && strings.HasPrefix(code, "12"):
		return provider.ClassBond
	default:
		return provider.ClassStock
	}
}

// codeFromURL recovers an instrument code from a quote page URL:
// /sh600519.html gives 600519, /us/AAPL.html gives AAPL.
func codeFromURL(u *url.URL) string {
	base := trimPageExt(path.Base(u.Path))
	if base == "" || base == "." || base == "/" {
		return ""
	}
	if m := quotePage.FindStringSubmatch(strings.ToLower(base)); m != nil {
		return m[2]
	}
	// Unified quote links carry a market id: 105.AAPL.
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[i+1:]
	}
	return base
}

func trimPageExt(name string) string {
	switch ext := path.Ext(name); ext {
	case ".html", ".htm", ".shtml":
		return strings.TrimSuffix(name, ext)
	}
	return name
}
