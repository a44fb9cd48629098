package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/alma-slip-report/pkg/client"
	"github.com/Sternrassler/alma-slip-report/pkg/columns"
	"github.com/Sternrassler/alma-slip-report/pkg/enrich"
	"github.com/Sternrassler/alma-slip-report/pkg/logging"
	"github.com/Sternrassler/alma-slip-report/pkg/metrics"
	"github.com/Sternrassler/alma-slip-report/pkg/ratelimit"
	"github.com/Sternrassler/alma-slip-report/pkg/report"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var contentTypes = map[string]string{
	"json":    "application/json",
	"xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"parquet": "application/vnd.apache.parquet",
}

// server answers report requests over HTTP. Its tasks are shared by all
// requests, so location and user lookups carry over between them.
type server struct {
	app    *app
	client enrich.Getter
	tasks  *enrich.Set
	logger zerolog.Logger
}

func newServer(a *app, c enrich.Getter) *server {
	return &server{app: a, client: c, tasks: enrich.NewSet(c), logger: logging.NewLogger("server")}
}

// Handler returns the server's routes.
func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/requested-resources", s.handleRequestedResources)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// errorResponse is the JSON body of a failed API call.
type errorResponse struct {
	Error        string   `json:"error"`
	Parameter    string   `json:"parameter,omitempty"`
	ValidOptions []string `json:"valid_options,omitempty"`
}

func (s *server) handleRequestedResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg := s.app.cfg

	library := q.Get("library")
	if library == "" {
		library = cfg.Report.Library
	}
	specs := cfg.Report.Columns
	if raw := q.Get("columns"); raw != "" {
		specs = strings.Split(raw, ",")
	}
	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	write, ok := exporters[format]
	if !ok {
		s.writeError(w, http.StatusBadRequest, errorResponse{
			Error:        fmt.Sprintf("unsupported format %q", format),
			Parameter:    "format",
			ValidOptions: exportFormats(),
		})
		return
	}

	sel, err := s.app.newSelection(library, q.Get("circ_desk"), specs)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	start := time.Now()
	resources, err := s.app.retrieve(r.Context(), s.client, s.tasks, sel, nil)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	table := report.BuildTable(resources, sel.Options)

	var buf bytes.Buffer
	if err := write(&buf, table); err != nil {
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	if format != "json" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", defaultOutput(sel.Library, format, start)))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}

	s.logger.Info().
		Str("library", sel.Library).
		Str("circ_desk", sel.CircDesk).
		Str("format", format).
		Int("rows", len(table.Rows)).
		Dur("duration", time.Since(start)).
		Msg("Served requested resources")
}

// writeFailure maps a retrieval error to a status code.
func (s *server) writeFailure(w http.ResponseWriter, err error) {
	if ipe := client.InvalidParameterFrom(err); ipe != nil {
		s.writeError(w, http.StatusBadRequest, errorResponse{
			Error:        ipe.Error(),
			Parameter:    ipe.Parameter,
			ValidOptions: ipe.ValidOptions,
		})
		return
	}

	status := http.StatusBadGateway
	msg := err.Error()
	switch {
	case client.IsUnauthorized(err):
		msg = unauthorizedHint
	case errors.Is(err, ratelimit.ErrQuotaExhausted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return
	}
	s.logger.Error().Err(err).Int("status", status).Msg("Retrieval failed")
	s.writeError(w, status, errorResponse{Error: msg})
}

func (s *server) writeError(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write error response")
	}
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports and metrics over HTTP",
		Long: `serve exposes:
  GET /health
  GET /metrics
  GET /api/requested-resources?library=&circ_desk=&columns=&format=json|xlsx|parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Serve.Addr = addr
			}
			if _, err := columns.ParseOptions(a.cfg.Report.Columns); err != nil {
				return explain(cmd.ErrOrStderr(), err)
			}

			c, release, err := a.newClient()
			if err != nil {
				return err
			}
			defer release()

			srv := newServer(a, c)
			return srv.ListenAndServe(cmd.Context(), a.cfg.Serve.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from serve.addr)")
	return cmd
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting slip-report server")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("Shutting down slip-report server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
