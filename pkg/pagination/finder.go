package pagination

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/Sternrassler/alma-slip-report/pkg/enrich"
	"github.com/Sternrassler/alma-slip-report/pkg/logging"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

var (
	findRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alma_find_runs_total",
		Help: "Requested-resources retrievals by result",
	}, []string{"result"})

	findDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alma_find_duration_seconds",
		Help:    "Requested-resources retrieval duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	findProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alma_find_progress_percent",
		Help: "Progress of the most recent requested-resources retrieval",
	})
)

// ProgressFunc receives overall progress in percent. The first value is 0
// and the last is 100.
type ProgressFunc func(percent float64)

// Config holds finder configuration.
type Config struct {
	// PageSize is used when Find is called with a non-positive page size.
	// Alma accepts at most 100.
	PageSize int

	// MaxConcurrency bounds enrichment subtasks running at once across all
	// pages of a run.
	MaxConcurrency int
}

// DefaultConfig returns safe default configuration for Alma.
func DefaultConfig() Config {
	return Config{
		PageSize:       100,
		MaxConcurrency: 10,
	}
}

// Finder retrieves every requested resource matching a query.
type Finder struct {
	client enrich.Getter
	tasks  *enrich.Set
	query  Query
	config Config
	logger zerolog.Logger
}

// NewFinder creates a finder. tasks may be nil when the query enables no
// enrichment.
func NewFinder(c enrich.Getter, tasks *enrich.Set, query Query, config Config) *Finder {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if tasks == nil {
		tasks = &enrich.Set{}
	}
	return &Finder{
		client: c,
		tasks:  tasks,
		query:  query,
		config: config,
		logger: logging.NewLogger("finder"),
	}
}

// settled is one completed unit of pending work: a page listing (page set)
// or an enrichment subtask.
type settled struct {
	page   *Page
	result FetchResult
	err    error
}

// Find retrieves and enriches all requested resources in upstream order.
// onProgress may be nil. The first failure cancels outstanding work and is
// returned; no partial result is produced.
func (f *Finder) Find(ctx context.Context, pageSize int, onProgress ProgressFunc) ([]*model.RequestedResource, error) {
	if pageSize <= 0 {
		pageSize = f.config.PageSize
	}

	logger := f.logger.With().
		Str("run_id", uuid.NewString()).
		Str("library", f.query.Library).
		Str("circ_desk", f.query.CircDesk).
		Logger()

	emit := func(pct float64) {
		findProgress.Set(pct)
		if onProgress != nil {
			onProgress(pct)
		}
	}

	start := time.Now()
	defer func() { findDuration.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(f.config.MaxConcurrency))
	tasks := f.tasks.Select(f.query.Enrichment)
	newPage := func(n int) *Page {
		return NewPage(n, pageSize, f.query, f.client, tasks, sem, logger)
	}

	page0 := newPage(0)
	total, err := page0.FetchPageOnly(ctx)
	if err != nil {
		findRunsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Listing failed")
		return nil, err
	}
	emit(0)

	logger.Info().
		Int("total_record_count", total).
		Int("page_size", pageSize).
		Int("tasks", len(tasks)).
		Msg("Starting retrieval")

	pages := []*Page{page0}
	if total > 0 {
		numPages := (total + pageSize - 1) / pageSize
		for n := 1; n < numPages; n++ {
			pages = append(pages, newPage(n))
		}
		if err := drive(ctx, pages, emit); err != nil {
			findRunsTotal.WithLabelValues("error").Inc()
			logger.Error().Err(err).Msg("Retrieval aborted")
			return nil, err
		}
	}

	var resources []*model.RequestedResource
	for _, p := range pages {
		resources = append(resources, p.Resources()...)
	}
	if resources == nil {
		resources = []*model.RequestedResource{}
	}
	emit(100)

	findRunsTotal.WithLabelValues("ok").Inc()
	logger.Info().
		Int("pages", len(pages)).
		Int("resources", len(resources)).
		Dur("duration", time.Since(start)).
		Msg("Retrieval complete")

	return resources, nil
}

// drive runs the greedy-replacement pipeline until no work is pending. A
// page listing settling releases its subtasks into the pool and starts the
// next page.
func drive(ctx context.Context, pages []*Page, emit ProgressFunc) error {
	events := make(chan settled)
	pending := 0
	next := 0

	startNext := func() {
		if next >= len(pages) {
			return
		}
		p := pages[next]
		next++
		pending++
		go func() {
			result, err := p.Fetch(ctx)
			select {
			case events <- settled{page: p, result: result, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	watch := func(done <-chan error) {
		pending++
		go func() {
			select {
			case err := <-done:
				select {
				case events <- settled{err: err}:
				case <-ctx.Done():
				}
			case <-ctx.Done():
			}
		}()
	}

	startNext()
	for pending > 0 {
		emit(meanProgress(pages))

		var ev settled
		select {
		case ev = <-events:
		case <-ctx.Done():
			return ctx.Err()
		}
		pending--

		if ev.err != nil {
			return ev.err
		}
		if ev.page != nil {
			for _, done := range ev.result.Additional {
				watch(done)
			}
			startNext()
		}
	}
	return nil
}

// meanProgress is the unweighted mean of every planned page's progress.
func meanProgress(pages []*Page) float64 {
	if len(pages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pages {
		sum += p.Progress()
	}
	return sum / float64(len(pages))
}
