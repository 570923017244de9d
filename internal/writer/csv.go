package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"quotecollector/internal/fetcher"
)

// DefaultPath is where rows accumulate across runs.
const DefaultPath = "data_csv/result.csv"

// Header is written once, when the file is first created.
var Header = []string{"Symbol", "Close_Values"}

// CSVWriter appends one row per fetched result to a CSV file.
// It is the single consumer of the results channel and the sole owner of the file.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a writer for path. Nothing touches the filesystem until Drain.
func NewCSVWriter(path string) *CSVWriter {
	if path == "" {
		path = DefaultPath
	}
	return &CSVWriter{path: path}
}

// Path returns the destination file.
func (w *CSVWriter) Path() string {
	return w.path
}

// Drain opens the destination in append mode and writes one durable row per
// received result until results is closed. Each row is flushed and synced
// before the next one is read.
func (w *CSVWriter) Drain(results <-chan fetcher.Result) (err error) {
	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", w.path, cerr)
		}
	}()

	cw := csv.NewWriter(f)

	if created {
		if err := writeRow(cw, f, Header); err != nil {
			return fmt.Errorf("write header to %s: %w", w.path, err)
		}
	}

	rows := 0
	for r := range results {
		if err := writeRow(cw, f, FormatRow(r)); err != nil {
			return fmt.Errorf("write row for %s: %w", r.Symbol, err)
		}
		rows++
		slog.Debug("row written", "symbol", r.Symbol, "closes", len(r.Closes))
	}

	slog.Debug("writer finished", "path", w.path, "rows", rows, "created", created)
	return nil
}

// open creates the parent directory and opens the file for appending.
// created reports whether the file did not exist beforehand.
func (w *CSVWriter) open() (*os.File, bool, error) {
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	_, statErr := os.Stat(w.path)
	created := errors.Is(statErr, fs.ErrNotExist)
	if statErr != nil && !created {
		return nil, false, fmt.Errorf("stat %s: %w", w.path, statErr)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", w.path, err)
	}
	return f, created, nil
}

func writeRow(cw *csv.Writer, f *os.File, record []string) error {
	if err := cw.Write(record); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// FormatRow renders a result as [symbol, close...]. Null closes become empty cells.
func FormatRow(r fetcher.Result) []string {
	row := make([]string, 0, len(r.Closes)+1)
	row = append(row, r.Symbol)
	for _, c := range r.Closes {
		if c == nil {
			row = append(row, "")
			continue
		}
		row = append(row, strconv.FormatFloat(*c, 'f', -1, 64))
	}
	return row
}
