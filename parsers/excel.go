package parsers

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/logging"
)

// decodeExcel concatenates the rows of every sheet. Each sheet's first row is its
// header; the column list is the union of all headers in order of appearance.
func decodeExcel(ctx context.Context, r io.Reader) ([]models.Row, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Logger.Warn("fail closing workbook", "error", err)
		}
	}()

	var (
		rows    = make([]models.Row, 0)
		columns = make([]string, 0)
		known   = map[string]bool{}
	)
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		records, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, err
		}
		if len(records) == 0 {
			continue
		}

		header := headerColumns(records[0])
		for _, col := range header {
			if !known[col] {
				known[col] = true
				columns = append(columns, col)
			}
		}
		for _, record := range records[1:] {
			if isEmptyRow(record) {
				continue
			}
			rows = append(rows, rowFromRecord(header, record))
		}
	}
	return rows, columns, nil
}
