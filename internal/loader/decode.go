package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"netdash/internal/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns data as UTF-8. Input that is not valid UTF-8 is read
// as Latin-1.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		if bytes.IndexByte(data, 0) >= 0 {
			return "", fmt.Errorf("%w: binary content", ErrEncoding)
		}
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if bytes.IndexByte(decoded, 0) >= 0 {
		return "", fmt.Errorf("%w: binary content", ErrEncoding)
	}
	return string(decoded), nil
}

var separators = []rune{';', ',', '\t', '|'}

// detectSeparator picks the most frequent candidate in the first line. The
// fallback wins ties.
func detectSeparator(text string, fallback rune) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}

	best, bestN := fallback, strings.Count(line, string(fallback))
	for _, sep := range separators {
		if n := strings.Count(line, string(sep)); n > bestN {
			best, bestN = sep, n
		}
	}
	return best
}

// readCSV splits text into header and records. Every record must have as
// many fields as the header; surplus fields are accepted only when blank.
func readCSV(text string, sep rune) ([]string, [][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sep
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, csvError(err)
	}

	header = trimTrailingBlank(header)
	if len(header) == 0 {
		return nil, nil, ErrEmptyFile
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, csvError(err)
		}
		line, _ := r.FieldPos(0)
		if isBlankRecord(rec) {
			continue
		}
		rec, err = fitRecord(rec, len(header), line)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func fitRecord(rec []string, width, line int) ([]string, error) {
	if len(rec) > width {
		for _, extra := range rec[width:] {
			if strings.TrimSpace(extra) != "" {
				return nil, &dataset.ParseError{
					Line:   line,
					Reason: fmt.Sprintf("expected %d fields, found %d", width, len(rec)),
				}
			}
		}
		return rec[:width], nil
	}
	if len(rec) < width {
		return nil, &dataset.ParseError{
			Line:   line,
			Reason: fmt.Sprintf("expected %d fields, found %d", width, len(rec)),
		}
	}
	return rec, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &dataset.ParseError{Line: pe.Line, Reason: pe.Err.Error(), Err: err}
	}
	return &dataset.ParseError{Reason: err.Error(), Err: err}
}

func trimTrailingBlank(cells []string) []string {
	n := len(cells)
	for n > 0 && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
