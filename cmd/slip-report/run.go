package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/alma-slip-report/internal/config"
	"github.com/Sternrassler/alma-slip-report/pkg/client"
	"github.com/Sternrassler/alma-slip-report/pkg/columns"
	"github.com/Sternrassler/alma-slip-report/pkg/enrich"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
	"github.com/Sternrassler/alma-slip-report/pkg/pagination"
	"github.com/Sternrassler/alma-slip-report/pkg/ratelimit"
	"github.com/Sternrassler/alma-slip-report/pkg/report"
)

var errNoLibrary = errors.New("no library selected (use --library or report.library)")

// selection is one report request: which desk and which columns.
type selection struct {
	Library  string
	CircDesk string
	Options  []columns.Option
}

// newSelection resolves the circ desk and parses column specs.
func (a *app) newSelection(library, desk string, specs []string) (selection, error) {
	library = strings.TrimSpace(library)
	if library == "" {
		return selection{}, errNoLibrary
	}
	if len(specs) == 0 {
		specs = columns.DefaultCodes
	}
	opts, err := columns.ParseOptions(specs)
	if err != nil {
		return selection{}, err
	}
	return selection{
		Library:  library,
		CircDesk: a.cfg.CircDeskFor(library, desk),
		Options:  opts,
	}, nil
}

// defaultSelection is the selection described by config and flags.
func (a *app) defaultSelection() (selection, error) {
	return a.newSelection(a.cfg.Report.Library, a.cfg.Report.CircDesk, a.cfg.Report.Columns)
}

// newClient builds the Alma client. The returned func releases the Redis
// connection when one was configured.
func (a *app) newClient() (*client.Client, func(), error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, err
	}

	cc := client.DefaultConfig(a.cfg.Alma.APIBase, a.cfg.Alma.APIKey)
	cc.UserAgent = "alma-slip-report/" + version
	if a.cfg.Alma.Timeout > 0 {
		cc.Timeout = a.cfg.Alma.Timeout
	}
	cc.Quota = ratelimit.Thresholds{
		Critical: a.cfg.RateLimit.Critical,
		Warning:  a.cfg.RateLimit.Warning,
	}

	release := func() {}
	if a.cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		cc.Redis = rdb
		release = func() { _ = rdb.Close() }
	}

	c, err := client.New(cc)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("create alma client: %w", err)
	}
	return c, release, nil
}

// retrieve runs one Find for sel using tasks, whose lookups may be shared
// with other runs.
func (a *app) retrieve(ctx context.Context, c enrich.Getter, tasks *enrich.Set, sel selection, onProgress pagination.ProgressFunc) ([]*model.RequestedResource, error) {
	query := pagination.Query{
		Library:         sel.Library,
		CircDesk:        sel.CircDesk,
		Enrichment:      columns.CombinedEnrichment(sel.Options),
		GroupByLocation: a.cfg.Report.GroupByLocation,
	}
	finder := pagination.NewFinder(c, tasks, query, pagination.Config{
		PageSize:       a.cfg.Report.PageSize,
		MaxConcurrency: a.cfg.Alma.MaxConcurrency,
	})
	return finder.Find(ctx, a.cfg.Report.PageSize, onProgress)
}

// buildTable retrieves the default selection and lays it out as a table.
func (a *app) buildTable(ctx context.Context, onProgress pagination.ProgressFunc) (report.Table, selection, error) {
	sel, err := a.defaultSelection()
	if err != nil {
		return report.Table{}, sel, err
	}
	c, release, err := a.newClient()
	if err != nil {
		return report.Table{}, sel, err
	}
	defer release()

	resources, err := a.retrieve(ctx, c, enrich.NewSet(c), sel, onProgress)
	if err != nil {
		return report.Table{}, sel, err
	}
	return report.BuildTable(resources, sel.Options), sel, nil
}

// saveLastUsed stores the selection of a successful run so the next run
// starts from it. Failing to save never fails the run.
func (a *app) saveLastUsed(sel selection) {
	specs := make([]string, len(sel.Options))
	for i, o := range sel.Options {
		specs[i] = o.Code
		if o.Limit > 0 {
			specs[i] += ":" + strconv.Itoa(o.Limit)
		}
	}
	if err := config.SaveLastUsed(a.cfgPath, sel.Library, a.cfg.Report.CircDesk, specs); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to save last used selection")
	}
}
