package tabular

import (
	"strings"
	"testing"
)

func TestCSVSourceParse(t *testing.T) {
	src := NewCSVSource()

	rows, err := src.Parse(strings.NewReader("email,course,score\na@example.com,FIRE-101,90\nb@example.com,FIRE-101,85\n"), "upload.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Number != 2 || rows[1].Number != 3 {
		t.Fatalf("expected source line numbers 2 and 3, got %d and %d", rows[0].Number, rows[1].Number)
	}
	if rows[0].Fields["email"] != "a@example.com" || rows[0].Fields["score"] != "90" {
		t.Fatalf("unexpected first row fields: %+v", rows[0].Fields)
	}
}

func TestCSVSourceParseShortRowPadded(t *testing.T) {
	src := NewCSVSource()

	rows, err := src.Parse(strings.NewReader("email,course\na@example.com\n"), "upload.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := rows[0].Fields["course"]; got != "" {
		t.Fatalf("expected missing cell padded to empty, got %q", got)
	}
}

func TestCSVSourceParseTrimsHeadersAndBOM(t *testing.T) {
	src := NewCSVSource()

	rows, err := src.Parse(strings.NewReader("\uFEFF email , course \nx@example.com,FIRE-101\n"), "upload.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rows[0].Fields["email"] != "x@example.com" {
		t.Fatalf("expected trimmed header keys, got %+v", rows[0].Fields)
	}
}

func TestCSVSourceParseEmptyFile(t *testing.T) {
	src := NewCSVSource()

	if _, err := src.Parse(strings.NewReader(""), "upload.csv"); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := src.Parse(nil, "upload.csv"); err == nil {
		t.Fatal("expected error for nil reader")
	}
}

func TestCSVSourceParseHeaderOnly(t *testing.T) {
	src := NewCSVSource()

	rows, err := src.Parse(strings.NewReader("email,course\n"), "upload.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows for header-only file, got %d", len(rows))
	}
}
