package parsers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/platform/storage"
)

func newStore(t *testing.T, files map[string]string) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	for key, body := range files {
		require.NoError(t, store.Save(context.Background(), key, strings.NewReader(body), int64(len(body)), ""))
	}
	return store
}

func TestCSVParserTypesCells(t *testing.T) {
	store := newStore(t, map[string]string{
		"f1/people.csv": "name,age,active,note\nAlice,30,true,\n\nBob,25.5,FALSE,hi\nCarl,-1e2,maybe\n",
	})

	res := NewCSVParser(store).Parse(context.Background(), "f1/people.csv")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"name", "age", "active", "note"}, res.Columns)
	require.Len(t, res.Data, 3)
	assert.Equal(t, models.Row{"name": "Alice", "age": 30.0, "active": true, "note": nil}, res.Data[0])
	assert.Equal(t, models.Row{"name": "Bob", "age": 25.5, "active": false, "note": "hi"}, res.Data[1])
	assert.Equal(t, models.Row{"name": "Carl", "age": -100.0, "active": "maybe", "note": nil}, res.Data[2])

	assert.Equal(t, map[string]any{"type": "number"}, res.Schema["age"])
	assert.NotContains(t, res.Schema, "note", "null cells are left out of the schema")

	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.RowCount)
	age := res.Summary.Columns["age"]
	assert.Equal(t, "number", age.Type)
	assert.Equal(t, -100.0, *age.Min)
	assert.Equal(t, 30.0, *age.Max)
	assert.Equal(t, 2, res.Summary.Columns["note"].NullCount)
}

func TestCSVParserHeaderOnly(t *testing.T) {
	store := newStore(t, map[string]string{"f/h.csv": "a,b\n"})
	res := NewCSVParser(store).Parse(context.Background(), "f/h.csv")
	require.True(t, res.Success)
	assert.Empty(t, res.Data)
	assert.Equal(t, 0, res.Summary.RowCount)
	assert.Empty(t, res.Schema)
}

func TestHeaderColumns(t *testing.T) {
	assert.Equal(t,
		[]string{"id", "name", "name_1", "column_4", "name_2"},
		headerColumns([]string{"\ufeffid", "name", "name", " ", "name"}),
	)
}

func TestJSONParser(t *testing.T) {
	store := newStore(t, map[string]string{
		"f/array.json":  `[{"b": 1, "a": {"x": "y"}, "tags": ["t"]}, {"b": 2, "a": null}]`,
		"f/object.json": `{"name": "solo", "ok": true}`,
		"f/scalar.json": `[1, 2]`,
		"f/broken.json": `{"name": `,
	})
	p := NewJSONParser(store)
	ctx := context.Background()

	res := p.Parse(ctx, "f/array.json")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"b", "a", "tags"}, res.Columns)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, models.Schema{"x": map[string]any{"type": "string"}}, res.Schema["a"])
	assert.Equal(t, map[string]any{"type": "array"}, res.Schema["tags"])
	assert.Equal(t, "object", res.Summary.Columns["a"].Type)
	assert.Equal(t, 1, res.Summary.Columns["a"].NullCount)

	res = p.Parse(ctx, "f/object.json")
	require.True(t, res.Success)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 1, *res.Summary.Columns["ok"].TrueCount)

	res = p.Parse(ctx, "f/scalar.json")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "JSON processing failed")

	res = p.Parse(ctx, "f/broken.json")
	assert.False(t, res.Success)
}

func TestParserMissingObject(t *testing.T) {
	res := NewCSVParser(newStore(t, nil)).Parse(context.Background(), "nope/x.csv")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "CSV processing failed")
}

func TestExcelParserConcatenatesSheets(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"name", "age"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Alice", 30}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Bob", 25}))
	_, err := f.NewSheet("Sheet2")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet2", "A1", &[]any{"name", "city"}))
	require.NoError(t, f.SetSheetRow("Sheet2", "A2", &[]any{"Carl", "Oslo"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	store := newStore(t, map[string]string{"f/book.xlsx": buf.String()})
	res := NewExcelParser(store).Parse(context.Background(), "f/book.xlsx")
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []string{"name", "age", "city"}, res.Columns)
	require.Len(t, res.Data, 3)
	assert.Equal(t, models.Row{"name": "Alice", "age": 30.0}, res.Data[0])
	assert.Equal(t, models.Row{"name": "Carl", "city": "Oslo"}, res.Data[2])
	assert.Equal(t, 3, res.Summary.RowCount)
	assert.Equal(t, 1, res.Summary.Columns["age"].NullCount)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(newStore(t, nil))
	for _, mime := range []string{MimeCSV, MimeJSON, MimeXLS, MimeXLSX} {
		_, err := r.For(mime)
		assert.NoError(t, err, mime)
	}

	_, err := r.For("application/pdf")
	assert.True(t, apperr.IsUnsupportedFormat(err))
	assert.EqualError(t, err, "Unsupported file type")

	r.Register("text/plain", ParseFunc(func(context.Context, string) models.ProcessingResult {
		return Failure("no")
	}))
	p, err := r.For("text/plain")
	require.NoError(t, err)
	assert.Equal(t, "no", p.Parse(context.Background(), "x").Error)
	assert.Len(t, r.MimeTypes(), 5)
}

func TestGenerateSummaryStrings(t *testing.T) {
	rows := []models.Row{{"s": "ab"}, {"s": ""}, {"s": "ab"}, {"s": nil}}
	sum := GenerateSummary(rows, []string{"s"})
	s := sum.Columns["s"]
	assert.Equal(t, "string", s.Type)
	assert.Equal(t, 2, s.UniqueCount)
	assert.Equal(t, 1, s.NullCount)
	assert.Equal(t, 0, *s.MinLength)
	assert.Equal(t, 2, *s.MaxLength)
	assert.Equal(t, 1, *s.Empty)
}
