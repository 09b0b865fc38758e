package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go_ingest_backend/models"
)

// decodeJSON accepts an array of objects or a single object. Column order is the
// key order of the first object.
func decodeJSON(ctx context.Context, r io.Reader) ([]models.Row, []string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("empty document")
	}

	var items []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, nil, err
		}
	} else {
		items = []json.RawMessage{raw}
	}

	rows := make([]models.Row, 0, len(items))
	for i, item := range items {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		var row models.Row
		if err := json.Unmarshal(item, &row); err != nil {
			return nil, nil, fmt.Errorf("item %d: %w", i, err)
		}
		if row == nil {
			return nil, nil, fmt.Errorf("item %d is not an object", i)
		}
		rows = append(rows, row)
	}

	columns := []string{}
	if len(items) > 0 {
		if columns, err = objectKeys(items[0]); err != nil {
			return nil, nil, err
		}
	}
	return rows, columns, nil
}

// objectKeys lists the top-level keys of a JSON object in document order.
func objectKeys(obj json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var (
		keys []string
		seen = map[string]bool{}
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
