package export

import (
	"errors"
	"fmt"

	"github.com/FranksOps/qaharvest/internal/qa"
	"github.com/xuri/excelize/v2"
)

// ErrNoRecords is returned when there is nothing to export. No file is written.
var ErrNoRecords = errors.New("no records to export")

// defaultSheet is the sheet every new excelize workbook starts with.
const defaultSheet = "Sheet1"

// XLSX writes records to a single-sheet workbook.
type XLSX struct {
	Path    string
	Sheet   string
	Variant qa.Variant
}

// NewXLSX returns an exporter using the variant's default file and sheet
// names for any empty argument.
func NewXLSX(path, sheet string, v qa.Variant) *XLSX {
	p := v.Profile()
	if path == "" {
		path = p.OutputFile
	}
	if sheet == "" {
		sheet = p.SheetName
	}
	return &XLSX{Path: path, Sheet: sheet, Variant: v}
}

// Destination is the path the workbook is written to.
func (x *XLSX) Destination() string { return x.Path }

// Export builds the workbook in one go and saves it to x.Path, replacing any
// existing file. An empty slice yields ErrNoRecords.
func (x *XLSX) Export(records []qa.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, x.Sheet); err != nil {
		return fmt.Errorf("name sheet %q: %w", x.Sheet, err)
	}

	header := make([]any, 0, 3)
	for _, c := range x.Variant.Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(x.Sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		row := x.Variant.Row(r)
		if err := f.SetSheetRow(x.Sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(x.Path); err != nil {
		return fmt.Errorf("save %s: %w", x.Path, err)
	}
	return nil
}
