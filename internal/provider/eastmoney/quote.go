package eastmoney

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"stockquote/internal/browser"
	"stockquote/internal/provider"
)

// quoteLayout holds the selectors of one quote page design.
type quoteLayout struct {
	id        string
	name      string
	code      string
	price     string
	change    string
	changePct string
}

// quoteLayouts are tried in order; the first with all five fields wins.
var quoteLayouts = []quoteLayout{
	{
		// A-share, fund and bond quote pages.
		id:        "quote_title",
		name:      ".quote_title_name",
		code:      ".quote_title_code",
		price:     ".zxj",
		change:    ".zd > span:nth-of-type(1)",
		changePct: ".zd > span:nth-of-type(2)",
	},
	{
		// Index and overseas quote pages.
		id:        "price9",
		name:      "#name",
		code:      "#code",
		price:     "#price9",
		change:    "#km1",
		changePct: "#km2",
	},
}

// quoteReady is visible once any layout has drawn its price.
var quoteReady = func() string {
	sels := make([]string, 0, len(quoteLayouts))
	for _, l := range quoteLayouts {
		sels = append(sels, l.price)
	}
	return strings.Join(sels, ", ")
}()

// priceFilled reports whether any layout shows a price. The widget is drawn
// with placeholders before its script fills in the values.
func priceFilled(doc *goquery.Document) bool {
	for _, l := range quoteLayouts {
		if !absent(text(doc.Selection, l.price)) {
			return true
		}
	}
	return false
}

// read returns the field texts and the first absent field, if any.
func (l quoteLayout) read(doc *goquery.Document) (provider.QuoteFields, string) {
	f := provider.QuoteFields{
		Name:      text(doc.Selection, l.name),
		Code:      text(doc.Selection, l.code),
		Price:     text(doc.Selection, l.price),
		Change:    text(doc.Selection, l.change),
		ChangePct: text(doc.Selection, l.changePct),
	}
	for _, field := range []struct{ name, value string }{
		{"name", f.Name},
		{"code", f.Code},
		{"price", f.Price},
		{"change", f.Change},
		{"change_pct", f.ChangePct},
	} {
		if absent(field.value) {
			return f, field.name
		}
	}
	return f, ""
}

func countPresent(f provider.QuoteFields) int {
	n := 0
	for _, v := range []string{f.Name, f.Code, f.Price, f.Change, f.ChangePct} {
		if !absent(v) {
			n++
		}
	}
	return n
}

func absent(v string) bool {
	return provider.IsPlaceholder(strings.TrimSpace(v))
}

// Extract reads the quote of in from its quote page. Every field must be
// present on the page; nothing is filled in from the search result.
func (c *Client) Extract(ctx context.Context, s browser.Session, in provider.Instrument) (provider.QuoteRecord, error) {
	if in.URL == "" {
		return provider.QuoteRecord{}, &provider.ExtractionError{Instrument: in, Err: errors.New("no quote page")}
	}

	doc, err := c.render(ctx, s, in.URL, quoteReady, priceFilled)
	if err != nil {
		if ctx.Err() != nil {
			return provider.QuoteRecord{}, ctx.Err()
		}
		return provider.QuoteRecord{}, &provider.ExtractionError{Instrument: in, Err: err}
	}

	fields, layout, missing := readQuote(doc)
	if missing != "" {
		return provider.QuoteRecord{}, &provider.ExtractionError{
			Instrument: in,
			Field:      missing,
			Err:        errors.New("not found on quote page"),
		}
	}

	rec, field, err := provider.NewQuoteRecord(fields)
	if err != nil {
		return provider.QuoteRecord{}, &provider.ExtractionError{Instrument: in, Field: field, Err: err}
	}
	c.log.Debug("quote extracted",
		zap.String("code", rec.Code),
		zap.String("layout", layout),
	)
	return rec, nil
}

// readQuote returns the fields of the first complete layout. When none is
// complete it reports the first absent field of the most complete one.
func readQuote(doc *goquery.Document) (provider.QuoteFields, string, string) {
	var (
		best        provider.QuoteFields
		bestMissing string
		bestCount   = -1
	)
	for _, l := range quoteLayouts {
		f, missing := l.read(doc)
		if missing == "" {
			return f, l.id, ""
		}
		if n := countPresent(f); n > bestCount {
			best, bestMissing, bestCount = f, missing, n
		}
	}
	return best, "", bestMissing
}
