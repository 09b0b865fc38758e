package testutil

import (
	"context"
	"sync"

	"go_ingest_backend/models"
)

// ScriptedParser returns canned results keyed by path and records every call.
type ScriptedParser struct {
	mu       sync.Mutex
	results  map[string]models.ProcessingResult
	fallback models.ProcessingResult
	calls    []string
	gate     chan struct{}
}

func NewScriptedParser(fallback models.ProcessingResult) *ScriptedParser {
	return &ScriptedParser{results: map[string]models.ProcessingResult{}, fallback: fallback}
}

// On scripts the result for one path.
func (p *ScriptedParser) On(path string, res models.ProcessingResult) *ScriptedParser {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[path] = res
	return p
}

// Hold makes Parse block until Release is called or its context ends.
func (p *ScriptedParser) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate = make(chan struct{})
}

func (p *ScriptedParser) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate != nil {
		close(p.gate)
		p.gate = nil
	}
}

func (p *ScriptedParser) Parse(ctx context.Context, path string) models.ProcessingResult {
	p.mu.Lock()
	p.calls = append(p.calls, path)
	gate := p.gate
	res, ok := p.results[path]
	if !ok {
		res = p.fallback
	}
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.ProcessingResult{Success: false, Error: ctx.Err().Error()}
		}
	}
	return res
}

func (p *ScriptedParser) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// RowsResult builds a successful result over rows with a one-column-per-key summary.
func RowsResult(columns []string, rows ...models.Row) models.ProcessingResult {
	summary := &models.Summary{RowCount: len(rows), Columns: map[string]models.ColumnSummary{}}
	schema := models.Schema{}
	for _, c := range columns {
		summary.Columns[c] = models.ColumnSummary{Type: "string"}
		schema[c] = map[string]any{"type": "string"}
	}
	return models.ProcessingResult{
		Success: true,
		Data:    rows,
		Schema:  schema,
		Summary: summary,
		Columns: columns,
	}
}
