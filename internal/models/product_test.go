package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOutcomeFormatsTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 7, 9, 5, 1, 0, time.UTC)

	o := NewOutcome("A1", "9.99", at)

	assert.Equal(t, "A1", o.SKU)
	assert.Equal(t, "9.99", o.Price)
	assert.Equal(t, "2024-03-07 09:05:01", o.Timestamp)
}

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		price    string
		expected Status
	}{
		{"12.50", StatusOK},
		{"0", StatusOK},
		{PriceNotAvailable, StatusNotAvailable},
		{PriceError, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assert.Equal(t, tt.expected, Outcome{Price: tt.price}.Status())
		})
	}
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{SKU: "A", Price: "1.00"},
		{SKU: "B", Price: PriceNotAvailable},
		{SKU: "C", Price: PriceError},
		{SKU: "D", Price: "3"},
	}

	s := Summarize(outcomes)

	assert.Equal(t, Summary{Total: 4, OK: 2, NotAvailable: 1, Errors: 1}, s)
}
