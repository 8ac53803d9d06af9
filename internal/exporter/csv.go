package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"netdash/internal/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct{}

// NewCSVWriter creates a comma separated writer
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// WriteTable streams the rows of t to out behind a UTF-8 BOM and the
// header row. It returns the number of records written.
func (w *CSVWriter) WriteTable(out io.Writer, t *dataset.Table, columns []string) (int, error) {
	headers, idx := exportColumns(t, columns)
	stream, err := w.NewStreamWriter(out, headers)
	if err != nil {
		return 0, err
	}
	rec := make([]string, len(idx))
	for _, row := range t.Rows {
		for j, i := range idx {
			rec[j] = row[i].String()
		}
		if err := stream.WriteRecord(rec); err != nil {
			return stream.Count(), err
		}
	}
	return stream.Count(), stream.Close()
}

// StreamWriter writes CSV records one at a time
type StreamWriter struct {
	writer *csv.Writer
	count  int
}

// NewStreamWriter writes the BOM and headers to out and returns a writer
// for the records
func (w *CSVWriter) NewStreamWriter(out io.Writer, headers []string) (*StreamWriter, error) {
	if _, err := out.Write(utf8BOM); err != nil {
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}
	writer := csv.NewWriter(out)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	if err := s.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record %d: %w", s.count, err)
	}
	s.count++
	return nil
}

// Count is the number of records written so far
func (s *StreamWriter) Count() int {
	return s.count
}

// Close flushes buffered records
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	return s.writer.Error()
}
