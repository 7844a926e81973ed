package eastmoney

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"stockquote/internal/browser"
	"stockquote/internal/provider"
)

const (
	cardSelector = ".exstock"
	rowSelector  = ".c_table tbody tr, .index_stocks table tbody tr"
	// emptySelector is the notice shown when a search has no results.
	emptySelector = ".search_noresult, .noresult"

	searchReady = cardSelector + ", " + rowSelector + ", " + emptySelector
)

// cardTitle matches quote card titles such as "贵州茅台 (600519)".
var cardTitle = regexp.MustCompile(`^(.+?)\s*[(（]\s*([A-Za-z0-9.]+)\s*[)）]$`)

// Resolve maps query to the source's top-ranked instrument. Ranking is the
// source's; the first candidate is taken as is.
func (c *Client) Resolve(ctx context.Context, s browser.Session, query string) (provider.Instrument, error) {
	if query == "" {
		return provider.Instrument{}, &provider.NoMatchError{Query: query, Reason: "empty query"}
	}

	searchURL, err := c.searchPage(query)
	if err != nil {
		return provider.Instrument{}, err
	}
	doc, err := c.render(ctx, s, searchURL, searchReady, nil)
	if err != nil {
		if errors.Is(err, browser.ErrRenderTimeout) {
			return provider.Instrument{}, &provider.NoMatchError{
				Query:   query,
				Reason:  "search results did not render",
				Timeout: true,
			}
		}
		return provider.Instrument{}, fmt.Errorf("searching %q: %w", query, err)
	}

	candidates := parseCandidates(doc)
	c.log.Debug("search results parsed",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
	)
	if len(candidates) == 0 {
		return provider.Instrument{}, &provider.NoMatchError{Query: query, Reason: "no candidates"}
	}
	return candidates[0].Instrument(), nil
}

func (c *Client) searchPage(query string) (string, error) {
	u, err := url.Parse(c.searchURL)
	if err != nil {
		return "", fmt.Errorf("parsing search url: %w", err)
	}
	q := u.Query()
	q.Set("keyword", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseCandidates lists quote cards in document order, then rows of the
// related-instruments table. Entries without a code or a quote link are
// skipped.
func parseCandidates(doc *goquery.Document) []provider.Candidate {
	var out []provider.Candidate
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		if c, ok := cardCandidate(doc.Url, card); ok {
			out = append(out, c)
		}
	})
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		if c, ok := rowCandidate(doc.Url, row); ok {
			out = append(out, c)
		}
	})
	return out
}

func cardCandidate(base *url.URL, card *goquery.Selection) (provider.Candidate, bool) {
	title := card.Find(".exstock_t_l").First()
	link, ok := quoteLink(base, title.Find("a[href]").First())
	if !ok {
		link, ok = quoteLink(base, card.Find("a[href]").First())
	}
	if !ok {
		return provider.Candidate{}, false
	}

	name, code := splitTitle(strings.Join(strings.Fields(title.Text()), " "), codeFromURL(link))
	if code == "" {
		return provider.Candidate{}, false
	}

	market := text(card, ".exstock_market")
	class := classifyMarket(market)
	if class == provider.ClassUnknown {
		class = classifyURL(link)
	}
	return provider.Candidate{Name: name, Code: code, Class: class, Market: market, URL: link.String()}, true
}

func rowCandidate(base *url.URL, row *goquery.Selection) (provider.Candidate, bool) {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return provider.Candidate{}, false
	}

	codeLink := cells.Eq(0).Find("a[href]").First()
	code := strings.TrimSpace(codeLink.Text())
	link, ok := quoteLink(base, codeLink)
	if code == "" || !ok {
		return provider.Candidate{}, false
	}

	nameCell := cells.Eq(1)
	name, _ := nameCell.Find("span[title]").First().Attr("title")
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.Join(strings.Fields(nameCell.Text()), " ")
	}

	market := strings.TrimSpace(cells.Eq(2).Text())
	class := classifyMarket(market)
	if class == provider.ClassUnknown {
		class = classifyURL(link)
	}
	return provider.Candidate{Name: name, Code: code, Class: class, Market: market, URL: link.String()}, true
}

// quoteLink resolves the href of a against base. Only http(s) links qualify.
func quoteLink(base *url.URL, a *goquery.Selection) (*url.URL, bool) {
	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

// splitTitle separates the code from a card title. Without a parenthesized
// code, a trailing urlCode is stripped from the name.
func splitTitle(title, urlCode string) (name, code string) {
	if m := cardTitle.FindStringSubmatch(title); m != nil {
		return m[1], m[2]
	}
	if urlCode != "" && len(title) > len(urlCode) && strings.EqualFold(title[len(title)-len(urlCode):], urlCode) {
		return strings.TrimSpace(title[:len(title)-len(urlCode)]), urlCode
	}
	return title, urlCode
}
