package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
)

func TestCompareValuesOrdersMixedTypes(t *testing.T) {
	ordered := []any{nil, -1.5, 2.0, "a", "b", false, true}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Equal(t, -1, compareValues(ordered[i], ordered[i+1]), "%v < %v", ordered[i], ordered[i+1])
		assert.Equal(t, 1, compareValues(ordered[i+1], ordered[i]))
	}
	assert.Equal(t, 0, compareValues(3, 3.0))
}

func TestColumnPredicate(t *testing.T) {
	tests := []struct {
		name  string
		want  any
		row   models.Row
		match bool
	}{
		{"number equal", 30.0, models.Row{"c": 30.0}, true},
		{"number differs", 30.0, models.Row{"c": 31.0}, false},
		{"number against string", 30.0, models.Row{"c": "30"}, false},
		{"bool", true, models.Row{"c": true}, true},
		{"bool mismatch", true, models.Row{"c": false}, false},
		{"regex case-insensitive", "ALI", models.Row{"c": "alice"}, true},
		{"regex against number", "3", models.Row{"c": 3.0}, false},
		{"missing column", "x", models.Row{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := columnPredicate("c", tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.match, pred(tt.row))
		})
	}
}

func TestCompileRowQueryRejects(t *testing.T) {
	_, err := compileRowQuery(models.RowQuery{Filter: map[string]any{"c": map[string]any{"$gt": 1}}})
	assert.True(t, apperr.IsValidation(err))

	_, err = compileRowQuery(models.RowQuery{Filter: map[string]any{"c": nil}})
	assert.True(t, apperr.IsValidation(err))

	_, err = compileRowQuery(models.RowQuery{Filter: map[string]any{"c": "[unclosed"}})
	assert.True(t, apperr.IsValidation(err))

	_, err = compileRowQuery(models.RowQuery{Sort: []models.SortField{{Column: "", Direction: 1}}})
	assert.True(t, apperr.IsValidation(err))
}

func TestRunMultiKeySort(t *testing.T) {
	rows := []models.Row{
		{"k": 1.0, "n": "b"},
		{"k": 2.0, "n": "a"},
		{"k": 1.0, "n": "a"},
		{"n": "z"},
	}
	rs, err := compileRowQuery(models.RowQuery{Sort: []models.SortField{
		{Column: "k", Direction: 1},
		{Column: "n", Direction: -1},
	}})
	require.NoError(t, err)

	page, total := rs.run(rows, 1, 10)
	assert.Equal(t, 4, total)
	assert.Equal(t, []models.Row{
		{"n": "z"},
		{"k": 1.0, "n": "b"},
		{"k": 1.0, "n": "a"},
		{"k": 2.0, "n": "a"},
	}, page)
	assert.Equal(t, models.Row{"k": 1.0, "n": "b"}, rows[0], "input untouched")
}

func TestRunWithoutSortKeepsInputOrder(t *testing.T) {
	rows := []models.Row{{"i": 3.0}, {"i": 1.0}, {"i": 2.0}}
	rs, err := compileRowQuery(models.RowQuery{})
	require.NoError(t, err)

	page, total := rs.run(rows, 2, 2)
	assert.Equal(t, 3, total)
	assert.Equal(t, []models.Row{{"i": 2.0}}, page)
}
