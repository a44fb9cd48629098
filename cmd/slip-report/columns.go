package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/alma-slip-report/pkg/columns"
)

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the available report columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listColumns(cmd.OutOrStdout())
		},
	}
}

// listColumns prints every column code with its name and the enrichment it
// triggers. Default columns are marked with *.
func listColumns(w io.Writer) error {
	for _, def := range columns.All() {
		mark := " "
		if slices.Contains(columns.DefaultCodes, def.Code) {
			mark = color.GreenString("*")
		}
		if _, err := fmt.Fprintf(w, "%s %s %-28s %s\n",
			mark, color.CyanString("%-28s", def.Code), def.Name, enrichmentLabel(def)); err != nil {
			return err
		}
	}
	return nil
}

func enrichmentLabel(def columns.Definition) string {
	var parts []string
	e := def.Enrichment
	if e.Item {
		parts = append(parts, "item")
	}
	if e.Location {
		parts = append(parts, "location")
	}
	if e.Request {
		parts = append(parts, "request")
	}
	if e.User {
		parts = append(parts, "user")
	}
	if len(parts) == 0 {
		return ""
	}
	return color.HiBlackString("(%s)", strings.Join(parts, ", "))
}
