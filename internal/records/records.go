package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/xuri/excelize/v2"
)

const skuPlaceholder = "{sku}"

var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError reports the first bad row. Row is 1-based and counts
// the header, so it matches what a spreadsheet shows.
type MalformedInputError struct {
	Row    int
	Field  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed input at row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed input: %s: %s", e.Field, e.Reason)
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// Raw is an unvalidated input row.
type Raw struct {
	Row int
	SKU string
	URL string
}

// Load reads records from a .csv or .xlsx file.
func Load(path, baseURLTemplate string) ([]models.ProductRecord, error) {
	var (
		raws []Raw
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		raws, err = readXLSX(path)
	case ".csv", "":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		raws, err = readCSV(f)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return Build(raws, baseURLTemplate)
}

// ReadCSV reads records from a delimited table with a header row.
func ReadCSV(r io.Reader, baseURLTemplate string) ([]models.ProductRecord, error) {
	raws, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return Build(raws, baseURLTemplate)
}

func readCSV(r io.Reader) ([]Raw, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return fromRows(rows)
}

func readXLSX(path string) ([]Raw, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet rows: %w", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]Raw, error) {
	if len(rows) == 0 {
		return nil, &MalformedInputError{Field: "header", Reason: "input is empty"}
	}

	skuCol, urlCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "sku":
			skuCol = i
		case "url":
			urlCol = i
		}
	}
	if skuCol < 0 {
		return nil, &MalformedInputError{Row: 1, Field: "sku", Reason: "column is missing"}
	}

	raws := make([]Raw, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		raw := Raw{Row: i + 2, SKU: cell(row, skuCol)}
		if urlCol >= 0 {
			raw.URL = cell(row, urlCol)
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// Build validates raw rows and synthesizes missing URLs from baseURLTemplate.
// Any bad row aborts the whole batch.
func Build(raws []Raw, baseURLTemplate string) ([]models.ProductRecord, error) {
	seen := make(map[string]int, len(raws))
	out := make([]models.ProductRecord, 0, len(raws))

	for i, raw := range raws {
		row := raw.Row
		if row == 0 {
			row = i + 1
		}

		sku := strings.TrimSpace(raw.SKU)
		if sku == "" {
			return nil, &MalformedInputError{Row: row, Field: "sku", Reason: "value is empty"}
		}
		if prev, dup := seen[sku]; dup {
			return nil, &MalformedInputError{Row: row, Field: "sku", Reason: fmt.Sprintf("duplicate of row %d", prev)}
		}
		seen[sku] = row

		url := strings.TrimSpace(raw.URL)
		if url == "" {
			if baseURLTemplate == "" {
				return nil, &MalformedInputError{Row: row, Field: "url", Reason: "value is empty and no base URL template is configured"}
			}
			url = SynthesizeURL(baseURLTemplate, sku)
		}

		out = append(out, models.ProductRecord{SKU: sku, URL: url})
	}

	return out, nil
}

// SynthesizeURL substitutes {sku} in template, or appends the SKU when the
// template has no placeholder.
func SynthesizeURL(template, sku string) string {
	if strings.Contains(template, skuPlaceholder) {
		return strings.ReplaceAll(template, skuPlaceholder, sku)
	}
	return template + sku
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
