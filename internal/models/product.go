package models

import (
	"time"
)

const (
	PriceNotAvailable = "N/A"
	PriceError        = "ERROR"

	// TimestampLayout is the last_updated format written to output tables.
	TimestampLayout = "2006-01-02 15:04:05"
)

type Status string

const (
	StatusOK           Status = "ok"
	StatusNotAvailable Status = "not_available"
	StatusError        Status = "error"
)

// ProductRecord identifies one product page to scrape.
type ProductRecord struct {
	SKU string `json:"sku"`
	URL string `json:"url"`
}

// Outcome is the single result produced for a ProductRecord.
type Outcome struct {
	SKU       string `json:"sku"`
	Price     string `json:"price"`
	Timestamp string `json:"last_updated"`
}

func NewOutcome(sku, price string, at time.Time) Outcome {
	return Outcome{
		SKU:       sku,
		Price:     price,
		Timestamp: at.Format(TimestampLayout),
	}
}

func (o Outcome) Status() Status {
	switch o.Price {
	case PriceNotAvailable:
		return StatusNotAvailable
	case PriceError:
		return StatusError
	default:
		return StatusOK
	}
}

// Summary counts outcomes by status.
type Summary struct {
	Total        int `json:"total"`
	OK           int `json:"ok"`
	NotAvailable int `json:"not_available"`
	Errors       int `json:"errors"`
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status() {
		case StatusOK:
			s.OK++
		case StatusNotAvailable:
			s.NotAvailable++
		case StatusError:
			s.Errors++
		}
	}
	return s
}
