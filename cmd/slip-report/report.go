package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/alma-slip-report/pkg/report"
)

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print pick slips for the selected circulation desk",
		Example: `  slip-report report --library MAIN
  slip-report report -l MAIN -d RES_DESK -c title,location,call-number,requested-for:20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			onProgress := a.progressFunc(cmd.ErrOrStderr(), isTTY(os.Stderr))
			table, sel, err := a.buildTable(cmd.Context(), onProgress)
			if err != nil {
				return explain(cmd.ErrOrStderr(), err)
			}
			if err := report.RenderSlips(cmd.OutOrStdout(), table); err != nil {
				return err
			}
			a.saveLastUsed(sel)
			return nil
		},
	}
}
