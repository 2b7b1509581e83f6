package query

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Row is one result record: column name to scalar value, column case as the
// warehouse returned it.
type Row map[string]interface{}

// NormalizeRows converts a stored result payload into the canonical row
// sequence. Historical payloads come in three shapes: a raw array of records,
// an object wrapping a "data" array, or a single record. Normalization
// happens once here, at the boundary; downstream code never re-sniffs.
func NormalizeRows(raw []byte) ([]Row, error) {
	if len(raw) == 0 {
		return []Row{}, nil
	}

	var rows []Row
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("result payload is neither an array nor an object: %w", err)
	}

	if data, ok := obj["data"]; ok {
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
	}

	// Single record: wrap it.
	var single Row
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decoding result record: %w", err)
	}
	return []Row{single}, nil
}

// Columns returns the first row's column names, sorted for deterministic
// output (JSON objects carry no column order).
func Columns(rows []Row) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}
