package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Strategy locates the raw price text for a SKU in a rendered page.
type Strategy interface {
	// WaitSelector is the element whose presence signals the page is ready.
	WaitSelector() string
	// Locate returns the price text and whether one was found.
	Locate(html, sku string) (string, bool, error)
}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func compile(name, selector string) (cascadia.Selector, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, selector, err)
	}
	return sel, nil
}

// DirectStrategy reads the first element matching a single known selector.
type DirectStrategy struct {
	selector string
	sel      cascadia.Selector
}

func NewDirectStrategy(selector string) (*DirectStrategy, error) {
	sel, err := compile("price selector", selector)
	if err != nil {
		return nil, err
	}
	return &DirectStrategy{selector: selector, sel: sel}, nil
}

func (s *DirectStrategy) WaitSelector() string {
	return s.selector
}

func (s *DirectStrategy) Locate(html, sku string) (string, bool, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return "", false, err
	}

	node := doc.FindMatcher(s.sel).First()
	if node.Length() == 0 {
		return "", false, nil
	}
	return strings.TrimSpace(node.Text()), true, nil
}

// GridStrategy scans a product grid and picks the entry whose cart control
// mentions the SKU.
//
// Matching is substring containment on the control's attribute value, so a
// SKU that is a substring of another SKU on the same page can match the wrong
// entry ("AB1" matches "addToCart('AB12')"). Entries are scanned in document
// order and the first match wins.
type GridStrategy struct {
	gridItem    string
	cartControl cascadia.Selector
	cartAttr    string
	priceSel    cascadia.Selector
	gridSel     cascadia.Selector
}

type GridOptions struct {
	GridItemSelector     string
	CartControlSelector  string
	CartControlAttr      string // empty means the control's outer HTML
	PriceElementSelector string
}

func NewGridStrategy(opts GridOptions) (*GridStrategy, error) {
	gridSel, err := compile("grid item selector", opts.GridItemSelector)
	if err != nil {
		return nil, err
	}
	cartSel, err := compile("cart control selector", opts.CartControlSelector)
	if err != nil {
		return nil, err
	}
	priceSel, err := compile("price element selector", opts.PriceElementSelector)
	if err != nil {
		return nil, err
	}
	return &GridStrategy{
		gridItem:    opts.GridItemSelector,
		gridSel:     gridSel,
		cartControl: cartSel,
		cartAttr:    opts.CartControlAttr,
		priceSel:    priceSel,
	}, nil
}

func (s *GridStrategy) WaitSelector() string {
	return s.gridItem
}

func (s *GridStrategy) Locate(html, sku string) (string, bool, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return "", false, err
	}

	var (
		price string
		found bool
	)
	doc.FindMatcher(s.gridSel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		control := item.FindMatcher(s.cartControl).First()
		if control.Length() == 0 {
			return true
		}
		if !strings.Contains(s.token(control), sku) {
			return true
		}
		if p := item.FindMatcher(s.priceSel).First(); p.Length() > 0 {
			price = strings.TrimSpace(p.Text())
			found = true
		}
		return false
	})

	return price, found, nil
}

func (s *GridStrategy) token(control *goquery.Selection) string {
	if s.cartAttr != "" {
		return control.AttrOr(s.cartAttr, "")
	}
	html, err := goquery.OuterHtml(control)
	if err != nil {
		return ""
	}
	return html
}
