package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet writes t with one string column per report column, named by
// column code.
func WriteParquet(w io.Writer, t Table) error {
	group := make(parquet.Group, len(t.Columns))
	for _, c := range t.Columns {
		group[c.Code] = parquet.String()
	}
	schema := parquet.NewSchema("slip_report", group)

	// Group leaves are ordered by name.
	codes := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		codes[i] = c.Code
	}
	sort.Strings(codes)
	leaf := make(map[string]int, len(codes))
	for i, code := range codes {
		leaf[code] = i
	}

	rows := make([]parquet.Row, 0, len(t.Rows))
	for _, values := range t.Rows {
		row := make(parquet.Row, len(t.Columns))
		for i, c := range t.Columns {
			idx := leaf[c.Code]
			row[idx] = parquet.ValueOf(values[i]).Level(0, 0, idx)
		}
		rows = append(rows, row)
	}

	writer := parquet.NewWriter(w, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
