package parser

import (
	"strings"

	"github.com/maltedev/sku-price-scraper/internal/models"
)

// NormalizePrice keeps only decimal digits and the decimal point. Text that
// leaves nothing behind maps to the N/A sentinel.
func NormalizePrice(text string) string {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return models.PriceNotAvailable
	}
	return b.String()
}
