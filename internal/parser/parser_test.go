package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Currency and code", "$123.45 CAD", "123.45"},
		{"Already clean", "45", "45"},
		{"Thousands separator", "$1,299.00", "1299.00"},
		{"Whitespace", "  $ 9.99 \n", "9.99"},
		{"Empty", "", "N/A"},
		{"Text only", "Call for price", "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePrice(tt.input))
		})
	}
}

func TestNormalizePriceIsIdempotent(t *testing.T) {
	for _, in := range []string{"$123.45 CAD", "45", "N/A"} {
		once := NormalizePrice(in)
		assert.Equal(t, once, NormalizePrice(once), in)
	}
}

func TestDirectStrategy(t *testing.T) {
	s, err := NewDirectStrategy("div.cat-price")
	require.NoError(t, err)
	assert.Equal(t, "div.cat-price", s.WaitSelector())

	html := `<html><body>
		<div class="cat-price"> $9.99 </div>
		<div class="cat-price">$1.00</div>
	</body></html>`

	text, found, err := s.Locate(html, "A1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "$9.99", text)

	_, found, err = s.Locate(`<html><body><p>nothing</p></body></html>`, "A1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDirectStrategyRejectsBadSelector(t *testing.T) {
	_, err := NewDirectStrategy("div[")
	assert.Error(t, err)

	_, err = NewDirectStrategy("  ")
	assert.Error(t, err)
}

const gridHTML = `<html><body><ul>
	<li class="item">
		<button class="cart" onclick="addToCart('SKU1')">Add</button>
		<span class="price">$10</span>
	</li>
	<li class="item">
		<button class="cart" onclick="addToCart('SKU2')">Add</button>
		<span class="price">$20</span>
	</li>
</ul></body></html>`

func newGrid(t *testing.T, attr string) *GridStrategy {
	t.Helper()
	s, err := NewGridStrategy(GridOptions{
		GridItemSelector:     "li.item",
		CartControlSelector:  "button.cart",
		CartControlAttr:      attr,
		PriceElementSelector: "span.price",
	})
	require.NoError(t, err)
	return s
}

func TestGridStrategyDisambiguates(t *testing.T) {
	s := newGrid(t, "onclick")
	assert.Equal(t, "li.item", s.WaitSelector())

	text, found, err := s.Locate(gridHTML, "SKU2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "20", NormalizePrice(text))

	text, found, err = s.Locate(gridHTML, "SKU1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "$10", text)
}

func TestGridStrategyNoMatch(t *testing.T) {
	s := newGrid(t, "onclick")

	_, found, err := s.Locate(gridHTML, "SKU9")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGridStrategyOuterHTMLToken(t *testing.T) {
	s := newGrid(t, "")

	text, found, err := s.Locate(gridHTML, "SKU2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "$20", text)
}

func TestGridStrategySubstringMatchesFirstEntry(t *testing.T) {
	html := `<div class="item"><a class="cart" onclick="addToCart('AB12')"></a><b class="price">$5</b></div>
		<div class="item"><a class="cart" onclick="addToCart('AB1')"></a><b class="price">$7</b></div>`
	s, err := NewGridStrategy(GridOptions{
		GridItemSelector:     "div.item",
		CartControlSelector:  "a.cart",
		CartControlAttr:      "onclick",
		PriceElementSelector: "b.price",
	})
	require.NoError(t, err)

	text, found, err := s.Locate(html, "AB1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "$5", text, "containment match picks the first entry mentioning the sku")
}

func TestNewGridStrategyValidation(t *testing.T) {
	_, err := NewGridStrategy(GridOptions{GridItemSelector: "li", CartControlSelector: "button"})
	assert.ErrorContains(t, err, "price element selector")
}
