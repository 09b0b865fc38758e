package models

// Row is one flattened data row. Numeric cells are float64, text cells string,
// boolean cells bool and empty cells nil.
type Row map[string]any

// Schema maps a column to its inferred type, e.g. {"age": {"type": "number"}}.
// Object-valued columns nest another Schema.
type Schema map[string]any

type ColumnSummary struct {
	Type        string `json:"type"`
	NullCount   int    `json:"nullCount"`
	UniqueCount int    `json:"uniqueCount"`

	// number
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
	Avg *float64 `json:"avg,omitempty"`
	Sum *float64 `json:"sum,omitempty"`

	// string
	MinLength *int `json:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty"`
	Empty     *int `json:"empty,omitempty"`

	// boolean
	TrueCount  *int `json:"trueCount,omitempty"`
	FalseCount *int `json:"falseCount,omitempty"`
}

type Summary struct {
	RowCount int                      `json:"rowCount"`
	Columns  map[string]ColumnSummary `json:"columns"`
}

type ProcessedData struct {
	Data    []Row    `json:"data"`
	Schema  Schema   `json:"schema"`
	Summary Summary  `json:"summary"`
	Columns []string `json:"columns,omitempty"`
}

// ProcessingResult is what a FormatParser hands back to the worker.
type ProcessingResult struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Data    []Row    `json:"data,omitempty"`
	Schema  Schema   `json:"schema,omitempty"`
	Summary *Summary `json:"summary,omitempty"`
	Columns []string `json:"columns,omitempty"`
}

// Stripped drops the row data and schema so the result fits in an event payload.
func (r ProcessingResult) Stripped() ProcessingResult {
	return ProcessingResult{
		Success: r.Success,
		Error:   r.Error,
		Summary: r.Summary,
	}
}

func (r ProcessingResult) ProcessedData() *ProcessedData {
	pd := &ProcessedData{
		Data:    r.Data,
		Schema:  r.Schema,
		Columns: r.Columns,
	}
	if pd.Data == nil {
		pd.Data = []Row{}
	}
	if r.Summary != nil {
		pd.Summary = *r.Summary
	}
	return pd
}
