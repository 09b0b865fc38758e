package parsers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go_ingest_backend/models"
)

const ctxCheckEvery = 1000

var floatPattern = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// typedCell converts a raw text cell: numbers become float64, true/false become
// bool and empty cells null. Everything else stays a string.
func typedCell(raw string) any {
	if raw == "" {
		return nil
	}
	switch raw {
	case "true", "TRUE", "True":
		return true
	case "false", "FALSE", "False":
		return false
	}
	if floatPattern.MatchString(raw) {
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return f
		}
	}
	return raw
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// headerColumns cleans header names: BOM stripped, blanks named after their
// position and duplicates suffixed with _1, _2, ...
func headerColumns(header []string) []string {
	columns := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.ToValidUTF8(h, "\uFFFD"))
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		used[name] = true
		columns[i] = name
	}
	return columns
}

// rowFromRecord maps cells onto columns. Missing trailing cells are null and
// cells beyond the header are dropped.
func rowFromRecord(columns, record []string) models.Row {
	row := make(models.Row, len(columns))
	for i, col := range columns {
		if i < len(record) {
			row[col] = typedCell(strings.ToValidUTF8(record[i], "\uFFFD"))
		} else {
			row[col] = nil
		}
	}
	return row
}

func decodeCSV(ctx context.Context, r io.Reader) ([]models.Row, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Row{}, []string{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	columns := headerColumns(header)

	rows := make([]models.Row, 0)
	for n := 1; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if isEmptyRow(record) {
			continue
		}
		rows = append(rows, rowFromRecord(columns, record))
	}
	return rows, columns, nil
}
