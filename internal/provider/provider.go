package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockquote/internal/browser"
)

// Class is the instrument class reported by the source.
type Class string

const (
	ClassStock    Class = "stock"
	ClassIndex    Class = "index"
	ClassFund     Class = "fund"
	ClassBond     Class = "bond"
	ClassFutures  Class = "futures"
	ClassOverseas Class = "overseas"
	ClassUnknown  Class = "unknown"
)

// Candidate is one row of the source's search results, in source order.
type Candidate struct {
	Name   string
	Code   string
	Class  Class
	Market string // market label as displayed, e.g. 沪A, 美股
	URL    string // absolute quote page URL
}

// Instrument is the candidate selected by resolution.
type Instrument struct {
	Name  string
	Code  string
	Class Class
	URL   string
}

func (c Candidate) Instrument() Instrument {
	return Instrument{Name: c.Name, Code: c.Code, Class: c.Class, URL: c.URL}
}

func (i Instrument) String() string {
	if i.Name == "" {
		return i.Code
	}
	return fmt.Sprintf("%s(%s)", i.Name, i.Code)
}

// Number is a numeric page value. Text is printed verbatim; Value proves
// that Text was numeric.
type Number struct {
	Text  string
	Value decimal.Decimal
}

// ParseNumber accepts what quote pages render: optional sign (including the
// Unicode minus), thousands separators and a trailing percent sign.
func ParseNumber(text string) (Number, error) {
	t := strings.TrimSpace(text)
	if IsPlaceholder(t) {
		return Number{}, fmt.Errorf("no value: %q", text)
	}
	s := strings.ReplaceAll(t, ",", "")
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimPrefix(s, "+")
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}, fmt.Errorf("parse %q: %w", text, err)
	}
	return Number{Text: t, Value: v}, nil
}

// IsPlaceholder reports whether s is one of the marks pages render in place
// of a missing value.
func IsPlaceholder(s string) bool {
	switch s {
	case "", "-", "--", "—", "——", "N/A":
		return true
	}
	return false
}

// QuoteRecord is a fully read quote. Construct it with NewQuoteRecord.
type QuoteRecord struct {
	Name      string
	Code      string
	Price     Number
	Change    Number
	ChangePct Number
}

// QuoteFields carries the raw texts read from a quote page.
type QuoteFields struct {
	Name      string
	Code      string
	Price     string
	Change    string
	ChangePct string
}

// NewQuoteRecord validates every field. It returns the name of the first
// field that is missing or not numeric, so no partial record can exist.
func NewQuoteRecord(f QuoteFields) (QuoteRecord, string, error) {
	name := strings.TrimSpace(f.Name)
	if IsPlaceholder(name) {
		return QuoteRecord{}, "name", fmt.Errorf("no value: %q", f.Name)
	}
	code := strings.TrimSpace(f.Code)
	if IsPlaceholder(code) {
		return QuoteRecord{}, "code", fmt.Errorf("no value: %q", f.Code)
	}
	price, err := ParseNumber(f.Price)
	if err != nil {
		return QuoteRecord{}, "price", err
	}
	change, err := ParseNumber(f.Change)
	if err != nil {
		return QuoteRecord{}, "change", err
	}
	pct, err := ParseNumber(f.ChangePct)
	if err != nil {
		return QuoteRecord{}, "change_pct", err
	}
	return QuoteRecord{Name: name, Code: code, Price: price, Change: change, ChangePct: pct}, "", nil
}

// Status is the kind of Outcome.
type Status string

const (
	StatusFound       Status = "found"
	StatusNoMatch     Status = "no_match"
	StatusUnavailable Status = "unavailable"
)

// Outcome is the result of one lookup: exactly one quote, or an explicit
// absence. Quote is non-nil only when Status is StatusFound.
type Outcome struct {
	Query      string
	Status     Status
	Instrument *Instrument
	Quote      *QuoteRecord
	Reason     string
}

// Resolver maps a normalized query to one instrument. No match is reported
// as an error matching ErrNoMatch.
//
//go:generate mockgen -package=providermock -destination=providermock/mock_provider.go -source=provider.go Resolver,Extractor
type Resolver interface {
	Resolve(ctx context.Context, s browser.Session, query string) (Instrument, error)
}

// Extractor reads the quote of a resolved instrument. Unreadable quotes are
// reported as an error matching ErrExtraction.
type Extractor interface {
	Extract(ctx context.Context, s browser.Session, in Instrument) (QuoteRecord, error)
}
