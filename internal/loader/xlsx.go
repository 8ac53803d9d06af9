package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"netdash/internal/dataset"
)

func isWorkbook(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// readWorkbook returns the rows of the first sheet holding data. Short rows
// are padded to the header width; trailing blank rows are ignored.
func readWorkbook(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &dataset.ParseError{Reason: "not a readable workbook", Err: err}
	}
	defer f.Close()

	var rows [][]string
	for _, sheet := range f.GetSheetList() {
		rows, err = f.GetRows(sheet)
		if err != nil {
			return nil, nil, &dataset.ParseError{Reason: fmt.Sprintf("sheet %q: %v", sheet, err), Err: err}
		}
		if len(rows) > 0 {
			break
		}
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyFile
	}

	header := trimTrailingBlank(rows[0])
	if len(header) == 0 {
		return nil, nil, ErrEmptyFile
	}

	var records [][]string
	for i, row := range rows[1:] {
		if isBlankRecord(row) {
			continue
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		rec, err := fitRecord(row, len(header), i+2)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return header, records, nil
}
