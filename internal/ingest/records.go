package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const DefaultTextColumn = "text"

const utf8BOM = "\ufeff"

// ErrMissingColumn is returned when the CSV header lacks the text column.
type ErrMissingColumn struct {
	Column    string
	Available []string
}

func (e ErrMissingColumn) Error() string {
	return fmt.Sprintf("column '%s' does not exist in the CSV, check the column names (available: %v)",
		e.Column, e.Available)
}

// Record is one CSV row. Row is the zero based index of the data row,
// not counting the header.
type Record struct {
	Row  int
	Text string
}

// ReadRecords reads every row of a CSV with a header line and returns the
// values of column. Rows with an empty value are skipped.
func ReadRecords(r io.Reader, column string) ([]Record, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingColumn{Column: column}
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	idx := -1
	for i, name := range header {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrMissingColumn{Column: column, Available: header}
	}

	records := make([]Record, 0)
	for row := 0; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row, err)
		}

		text := fields[idx]
		if strings.TrimSpace(text) == "" {
			slog.Warn("skipping row with empty text", "row", row, "column", column)
			continue
		}

		records = append(records, Record{Row: row, Text: text})
	}

	return records, nil
}
