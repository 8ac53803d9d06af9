package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"netdash/internal/config"
	"netdash/internal/dataset"
)

// Limits bound what a single upload may cost
type Limits struct {
	MaxFileBytes        int64
	Separator           rune
	MaxConcurrentParses int64
}

// LimitsFrom converts the upload configuration section
func LimitsFrom(cfg config.UploadConfig) Limits {
	sep := ';'
	if r := []rune(cfg.Separator); len(r) == 1 {
		sep = r[0]
	}
	return Limits{
		MaxFileBytes:        cfg.MaxFileBytes,
		Separator:           sep,
		MaxConcurrentParses: cfg.MaxConcurrentParses,
	}
}

// Upload is a file as received from the client
type Upload struct {
	Filename string
	Kind     dataset.Kind
	Body     io.Reader
}

// Loader parses uploads into tables
type Loader struct {
	logger *slog.Logger
	limits Limits
	sem    *semaphore.Weighted
	now    func() time.Time
}

// New creates a loader
func New(logger *slog.Logger, limits Limits) *Loader {
	if limits.MaxConcurrentParses <= 0 {
		limits.MaxConcurrentParses = 1
	}
	if limits.Separator == 0 {
		limits.Separator = ';'
	}
	return &Loader{
		logger: logger.With(slog.String("component", "loader")),
		limits: limits,
		sem:    semaphore.NewWeighted(limits.MaxConcurrentParses),
		now:    time.Now,
	}
}

// Limits returns the loader's limits
func (l *Loader) Limits() Limits { return l.limits }

// Load reads, decodes and validates one upload. up.Kind must be set.
func (l *Loader) Load(ctx context.Context, up Upload) (*dataset.Table, error) {
	schema, err := dataset.SchemaFor(up.Kind)
	if err != nil {
		return nil, err
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a parse slot: %w", err)
	}
	defer l.sem.Release(1)

	data, err := l.readAll(up.Body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyFile
	}

	raw, err := l.parse(up.Filename, data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	raw.Source = up.Filename
	raw.Fingerprint = hex.EncodeToString(sum[:])

	table, err := schema.Validate(raw)
	if err != nil {
		return nil, err
	}
	table.LoadedAt = l.now()

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("kind", string(up.Kind)),
		slog.String("file", up.Filename),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)),
		slog.Int("warnings", len(table.Warnings)),
	)
	return table, nil
}

func (l *Loader) readAll(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, ErrEmptyFile
	}
	limit := l.limits.MaxFileBytes
	if limit <= 0 {
		return io.ReadAll(body)
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func (l *Loader) parse(filename string, data []byte) (*dataset.Raw, error) {
	var header []string
	var records [][]string
	var err error

	if isWorkbook(filename) {
		header, records, err = readWorkbook(data)
	} else {
		var text string
		text, err = decodeText(data)
		if err != nil {
			return nil, err
		}
		header, records, err = readCSV(text, detectSeparator(text, l.limits.Separator))
	}
	if err != nil {
		return nil, err
	}

	if err := checkHeader(header); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	header, records = cleanColumns(header, records)
	return &dataset.Raw{Header: header, Records: records}, nil
}

// checkHeader rejects files whose first row is data rather than names. A
// name may look like a number, such as a "700" band column, so the row is
// taken for data only when most of its cells look like values and either
// all of them do or one is a timestamp.
func checkHeader(header []string) error {
	values, stamps := 0, 0
	var example string
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return fmt.Errorf("%w: column %d has no name", ErrMissingHeader, i+1)
		}
		_, isNum := dataset.ParseNumber(h)
		_, isTime := dataset.ParseTimestamp(h)
		if !isNum && !isTime {
			continue
		}
		values++
		if isTime {
			stamps++
		}
		if example == "" {
			example = h
		}
	}
	if values*2 > len(header) && (values == len(header) || stamps > 0) {
		return fmt.Errorf("%w: %d of %d names look like values, such as %q",
			ErrMissingHeader, values, len(header), example)
	}
	return nil
}

// cleanColumns trims names, drops start_time.1 and repeated names, and
// moves start_time and end_time to the front
func cleanColumns(header []string, records [][]string) ([]string, [][]string) {
	var keep []int
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "start_time.1" || seen[name] {
			continue
		}
		seen[name] = true
		keep = append(keep, i)
	}

	var order []int
	for _, want := range []string{dataset.ColStartTime, dataset.ColEndTime} {
		for _, i := range keep {
			if strings.EqualFold(strings.TrimSpace(header[i]), want) {
				order = append(order, i)
			}
		}
	}
	for _, i := range keep {
		name := strings.TrimSpace(header[i])
		if !strings.EqualFold(name, dataset.ColStartTime) && !strings.EqualFold(name, dataset.ColEndTime) {
			order = append(order, i)
		}
	}

	outHeader := make([]string, len(order))
	for j, i := range order {
		outHeader[j] = strings.TrimSpace(header[i])
	}
	outRecords := make([][]string, len(records))
	for r, rec := range records {
		row := make([]string, len(order))
		for j, i := range order {
			if i < len(rec) {
				row[j] = rec[i]
			}
		}
		outRecords[r] = row
	}
	return outHeader, outRecords
}
