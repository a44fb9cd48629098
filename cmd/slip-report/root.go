package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/alma-slip-report/internal/config"
	"github.com/Sternrassler/alma-slip-report/pkg/logging"
)

// app holds the state shared by all subcommands once flags and config have
// been resolved.
type app struct {
	cfgPath  string
	library  string
	circDesk string
	columns  []string
	byLoc    bool
	noColor  bool
	quiet    bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "slip-report",
		Short: "Pick slips and exports for Alma requested resources",
		Long: `slip-report retrieves the requested resources (holds) waiting at an Alma
circulation desk, enriches them with item, location, request and user data,
and prints pick slips or exports them as a spreadsheet.

Settings come from ~/.config/slip-report/config.yml, SLIPREPORT_* environment
variables (a .env file is honoured) and the flags below.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "config file (default ~/.config/slip-report/config.yml)")
	flags.StringVarP(&a.library, "library", "l", "", "library code")
	flags.StringVarP(&a.circDesk, "circ-desk", "d", "", "circulation desk code (default from library config)")
	flags.StringSliceVarP(&a.columns, "columns", "c", nil, "columns to include, as code[:limit]")
	flags.BoolVar(&a.byLoc, "group-by-location", false, "order by location instead of call number")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "do not show a progress bar")

	cmd.AddCommand(
		newReportCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newColumnsCmd(),
		newConfigCmd(a),
	)

	return cmd
}

// init loads the configuration and applies flag overrides.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("library") {
		cfg.Report.Library = a.library
	}
	if flags.Changed("circ-desk") {
		cfg.Report.CircDesk = a.circDesk
	}
	if flags.Changed("columns") {
		cfg.Report.Columns = a.columns
	}
	if flags.Changed("group-by-location") {
		cfg.Report.GroupByLocation = a.byLoc
	}

	a.cfg = cfg
	a.logger = logging.Setup(logging.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		Output:  os.Stderr,
		Version: version,
	})

	a.logger.Debug().
		Str("library", cfg.Report.Library).
		Str("api_base", cfg.Alma.APIBase).
		Bool("redis", cfg.Redis.Addr != "").
		Msg("Configuration loaded")

	if a.noColor || !isTTY(os.Stdout) {
		color.NoColor = true
	}
	return nil
}

// isTTY reports whether f is a terminal.
func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
