package tabular

import "io"

// Row is one parsed source line: a 1-based source line number and the raw
// field map keyed by column header. Data rows start at 2 because line 1 is
// the header.
type Row struct {
	Number int               `json:"number"`
	Fields map[string]string `json:"fields"`
}

// Source turns an uploaded file into an ordered sequence of rows. A failure
// is a single parse-level error for the whole file, never per-row.
type Source interface {
	Parse(r io.Reader, name string) ([]Row, error)
}
