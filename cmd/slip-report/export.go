package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/alma-slip-report/pkg/report"
)

// exporters maps export formats to their writers.
var exporters = map[string]func(io.Writer, report.Table) error{
	"xlsx":    report.WriteXLSX,
	"parquet": report.WriteParquet,
	"json":    report.WriteJSON,
}

func exportFormats() []string {
	formats := make([]string, 0, len(exporters))
	for f := range exporters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// resolveFormat picks the format from the flag, then the output extension,
// then xlsx.
func resolveFormat(format, out string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	if format == "" {
		format = "xlsx"
	}
	if _, ok := exporters[format]; !ok {
		return "", fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(exportFormats(), ", "))
	}
	return format, nil
}

// defaultOutput names the export after the library and day.
func defaultOutput(library, format string, now time.Time) string {
	return fmt.Sprintf("slips-%s-%s.%s", strings.ToLower(library), now.Format("2006-01-02"), format)
}

func newExportCmd(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export requested resources as xlsx, parquet or json",
		Example: `  slip-report export --library MAIN
  slip-report export -l MAIN --format parquet --out slips.parquet
  slip-report export -l MAIN --format json --out -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(format, out)
			if err != nil {
				return err
			}

			toStdout := out == "-"
			onProgress := a.progressFunc(cmd.ErrOrStderr(), isTTY(os.Stderr))
			table, sel, err := a.buildTable(cmd.Context(), onProgress)
			if err != nil {
				return explain(cmd.ErrOrStderr(), err)
			}

			if toStdout {
				if err := exporters[format](cmd.OutOrStdout(), table); err != nil {
					return err
				}
				a.saveLastUsed(sel)
				return nil
			}
			if out == "" {
				out = defaultOutput(sel.Library, format, time.Now())
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := exporters[format](f, table); err != nil {
				f.Close()
				os.Remove(out)
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				os.Remove(out)
				return err
			}
			a.saveLastUsed(sel)

			fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %d rows to %s\n", color.GreenString("✓"), len(table.Rows), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: xlsx, parquet or json (default from --out extension, else xlsx)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, or - for stdout")

	return cmd
}
