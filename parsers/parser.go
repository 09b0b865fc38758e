// Package parsers turns stored raw files into rows, a schema and summary
// statistics. Parsers report failures inside the ProcessingResult; they never
// return an error to the caller.
package parsers

import (
	"context"
	"fmt"
	"io"
	"slices"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/storage"
)

// Supported mime types.
const (
	MimeCSV  = "text/csv"
	MimeJSON = "application/json"
	MimeXLS  = "application/vnd.ms-excel"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type FormatParser interface {
	Parse(ctx context.Context, path string) models.ProcessingResult
}

// ParseFunc adapts a plain function to FormatParser.
type ParseFunc func(ctx context.Context, path string) models.ProcessingResult

func (f ParseFunc) Parse(ctx context.Context, path string) models.ProcessingResult {
	return f(ctx, path)
}

// Failure builds an unsuccessful result.
func Failure(msg string) models.ProcessingResult {
	return models.ProcessingResult{Success: false, Error: msg}
}

// decodeFunc reads every row of one format together with the ordered column names.
type decodeFunc func(ctx context.Context, r io.Reader) ([]models.Row, []string, error)

// objectParser opens the stored object and hands the stream to a format decoder.
type objectParser struct {
	format string
	open   storage.Opener
	decode decodeFunc
}

func (p *objectParser) Parse(ctx context.Context, path string) models.ProcessingResult {
	rc, err := p.open.Open(ctx, path)
	if err != nil {
		logging.Logger.Error("fail opening raw file", "format", p.format, "path", path, "error", err)
		return Failure(fmt.Sprintf("%s processing failed: %v", p.format, err))
	}
	defer rc.Close()

	rows, columns, err := p.decode(ctx, rc)
	if err != nil {
		logging.Logger.Warn("fail parsing raw file", "format", p.format, "path", path, "error", err)
		return Failure(fmt.Sprintf("%s processing failed: %v", p.format, err))
	}
	return buildResult(rows, columns)
}

func NewCSVParser(open storage.Opener) FormatParser {
	return &objectParser{format: "CSV", open: open, decode: decodeCSV}
}

func NewJSONParser(open storage.Opener) FormatParser {
	return &objectParser{format: "JSON", open: open, decode: decodeJSON}
}

func NewExcelParser(open storage.Opener) FormatParser {
	return &objectParser{format: "Excel", open: open, decode: decodeExcel}
}

// Registry selects a parser by mime type. Register is meant for startup wiring
// and is not safe to call concurrently with For.
type Registry struct {
	parsers map[string]FormatParser
}

// NewRegistry returns a registry with the CSV, JSON and Excel parsers reading
// from open.
func NewRegistry(open storage.Opener) *Registry {
	r := &Registry{parsers: make(map[string]FormatParser)}
	if open == nil {
		return r
	}
	excel := NewExcelParser(open)
	r.Register(MimeCSV, NewCSVParser(open))
	r.Register(MimeJSON, NewJSONParser(open))
	r.Register(MimeXLS, excel)
	r.Register(MimeXLSX, excel)
	return r
}

func (r *Registry) Register(mimeType string, p FormatParser) {
	r.parsers[mimeType] = p
}

// For returns the parser for mimeType or an UnsupportedFormatError.
func (r *Registry) For(mimeType string) (FormatParser, error) {
	p, ok := r.parsers[mimeType]
	if !ok {
		return nil, apperr.UnsupportedFormat(mimeType)
	}
	return p, nil
}

func (r *Registry) MimeTypes() []string {
	out := make([]string, 0, len(r.parsers))
	for m := range r.parsers {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}
