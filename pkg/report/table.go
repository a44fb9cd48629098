// Package report turns enriched requested resources into a pick slip
// table and writes it as a printable text report, a spreadsheet, a Parquet
// file or JSON.
package report

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/Sternrassler/alma-slip-report/pkg/columns"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EmptyCell stands in for a column with no value.
const EmptyCell = "-"

// Column is one table column.
type Column struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Table is the slip report: one row per request.
type Table struct {
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Header returns the column display names.
func (t Table) Header() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// BuildTable extracts opts from every request of resources, in order.
func BuildTable(resources []*model.RequestedResource, opts []columns.Option) Table {
	t := Table{
		Columns: make([]Column, len(opts)),
		Rows:    [][]string{},
	}
	for i, o := range opts {
		t.Columns[i] = Column{Code: o.Code, Name: o.Name}
	}

	for _, row := range columns.Rows(resources) {
		cells := make([]string, len(opts))
		for i, o := range opts {
			v := o.Value(row)
			if v == "" {
				v = EmptyCell
			}
			cells[i] = v
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// WriteJSON writes t as {"columns": [...], "rows": [[...]]}.
func WriteJSON(w io.Writer, t Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
