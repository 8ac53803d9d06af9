package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// MaxSheetName is the longest sheet name a workbook accepts
const MaxSheetName = 31

// XLSXWriter writes a single sheet workbook
type XLSXWriter struct{}

// NewXLSXWriter creates an XLSX writer
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{}
}

// Write puts headers and records on sheet and writes the workbook to out.
// The header row is bold and frozen.
func (x *XLSXWriter) Write(out io.Writer, sheet string, headers []string, records [][]string) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	if len(sheet) > MaxSheetName {
		sheet = sheet[:MaxSheetName]
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if len(headers) > 0 {
		if err := sw.SetPanes(&excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
		cells := make([]interface{}, len(headers))
		for i, h := range headers {
			cells[i] = excelize.Cell{StyleID: bold, Value: h}
		}
		if err := sw.SetRow("A1", cells); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	start := 1
	if len(headers) > 0 {
		start = 2
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
