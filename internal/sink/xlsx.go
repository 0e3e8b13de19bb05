package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Prices"

// XLSX rewrites a spreadsheet on every Write.
type XLSX struct {
	path             string
	includeTimestamp bool
}

func NewXLSX(path string, includeTimestamp bool) *XLSX {
	return &XLSX{path: path, includeTimestamp: includeTimestamp}
}

func (x *XLSX) Path() string {
	return x.path
}

func (x *XLSX) Write(ctx context.Context, outcomes []models.Outcome) error {
	if dir := filepath.Dir(x.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := x.setRow(f, 1, header(x.includeTimestamp)); err != nil {
		return err
	}
	for i, o := range outcomes {
		if err := x.setRow(f, i+2, row(o, x.includeTimestamp)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(x.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", x.path, err)
	}
	return nil
}

func (x *XLSX) setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", n, err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", n, err)
	}
	return nil
}
