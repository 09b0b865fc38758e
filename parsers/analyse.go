package parsers

import (
	"encoding/json"
	"math"

	"go_ingest_backend/models"
)

// Value type names reported in schemas and summaries.
const (
	TypeNumber  = "number"
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeNull    = "null"
)

func typeOf(v any) string {
	switch v.(type) {
	case nil:
		return TypeNull
	case float64:
		return TypeNumber
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case []any:
		return TypeArray
	}
	return TypeObject
}

// GenerateSchema infers a schema from one sample row. Null cells are left out and
// object cells nest a schema of their own.
func GenerateSchema(sample map[string]any) models.Schema {
	schema := models.Schema{}
	for key, v := range sample {
		switch t := v.(type) {
		case nil:
		case map[string]any:
			schema[key] = GenerateSchema(t)
		default:
			schema[key] = map[string]any{"type": typeOf(v)}
		}
	}
	return schema
}

// complexKey keeps object and array cells apart from plain strings when counting
// distinct values.
type complexKey string

func distinctKey(v any) any {
	switch v.(type) {
	case float64, string, bool:
		return v
	}
	b, _ := json.Marshal(v)
	return complexKey(b)
}

// GenerateSummary computes per-column statistics. The column type is the type of
// the first non-null value; the type-specific statistics only consider values of
// that type.
func GenerateSummary(rows []models.Row, columns []string) models.Summary {
	summary := models.Summary{
		RowCount: len(rows),
		Columns:  make(map[string]models.ColumnSummary, len(columns)),
	}
	if len(rows) == 0 {
		return summary
	}
	for _, col := range columns {
		summary.Columns[col] = summarizeColumn(rows, col)
	}
	return summary
}

func summarizeColumn(rows []models.Row, col string) models.ColumnSummary {
	var (
		values = make([]any, 0, len(rows))
		unique = make(map[any]struct{})
	)
	for _, row := range rows {
		v := row[col]
		if v == nil {
			continue
		}
		values = append(values, v)
		unique[distinctKey(v)] = struct{}{}
	}

	cs := models.ColumnSummary{
		Type:        TypeNull,
		NullCount:   len(rows) - len(values),
		UniqueCount: len(unique),
	}
	if len(values) == 0 {
		return cs
	}
	cs.Type = typeOf(values[0])

	switch cs.Type {
	case TypeNumber:
		minV, maxV, sum, n := math.Inf(1), math.Inf(-1), 0.0, 0
		for _, v := range values {
			f, ok := v.(float64)
			if !ok {
				continue
			}
			minV = math.Min(minV, f)
			maxV = math.Max(maxV, f)
			sum += f
			n++
		}
		avg := sum / float64(n)
		cs.Min, cs.Max, cs.Sum, cs.Avg = &minV, &maxV, &sum, &avg
	case TypeString:
		minL, maxL, empty := math.MaxInt, 0, 0
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			l := len([]rune(s))
			minL = min(minL, l)
			maxL = max(maxL, l)
			if s == "" {
				empty++
			}
		}
		cs.MinLength, cs.MaxLength, cs.Empty = &minL, &maxL, &empty
	case TypeBoolean:
		trueCount, falseCount := 0, 0
		for _, v := range values {
			switch v {
			case true:
				trueCount++
			case false:
				falseCount++
			}
		}
		cs.TrueCount, cs.FalseCount = &trueCount, &falseCount
	}
	return cs
}

// buildResult assembles a successful result from decoded rows.
func buildResult(rows []models.Row, columns []string) models.ProcessingResult {
	if rows == nil {
		rows = []models.Row{}
	}
	schema := models.Schema{}
	if len(rows) > 0 {
		schema = GenerateSchema(rows[0])
	}
	summary := GenerateSummary(rows, columns)
	return models.ProcessingResult{
		Success: true,
		Data:    rows,
		Schema:  schema,
		Summary: &summary,
		Columns: columns,
	}
}
