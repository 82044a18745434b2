package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVSource parses comma-separated uploads. Headers are trimmed; rows with
// fewer cells than headers are padded with empty strings and extra cells are
// dropped, because real-world exports are rarely rectangular.
type CSVSource struct{}

func NewCSVSource() *CSVSource { return &CSVSource{} }

func (s *CSVSource) Parse(r io.Reader, name string) ([]Row, error) {
	if r == nil {
		return nil, fmt.Errorf("no file attached")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	var rows []Row
	lineNumber := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNumber++
		if err != nil {
			return nil, fmt.Errorf("parse error at line %d: %w", lineNumber, err)
		}

		fields := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(record) {
				fields[h] = record[i]
			} else {
				fields[h] = ""
			}
		}
		rows = append(rows, Row{Number: lineNumber, Fields: fields})
	}
	return rows, nil
}
