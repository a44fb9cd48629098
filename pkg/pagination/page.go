package pagination

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/Sternrassler/alma-slip-report/pkg/client"
	"github.com/Sternrassler/alma-slip-report/pkg/enrich"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

var (
	pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alma_page_fetches_total",
		Help: "Requested-resources page listings by result",
	}, []string{"result"})

	pageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alma_page_fetch_duration_seconds",
		Help:    "Requested-resources page listing duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	droppedResourcesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alma_dropped_resources_total",
		Help: "Requested resources dropped because they carried no request",
	})
)

// ListingPath is the requested-resources task list endpoint.
const ListingPath = "/task-lists/requested-resources"

// Query selects the requested resources to retrieve and how to enrich them.
type Query struct {
	Library    string
	CircDesk   string
	Enrichment model.EnrichmentOptions

	// GroupByLocation orders the listing by location instead of call number.
	GroupByLocation bool
}

func (q Query) orderBy() string {
	if q.GroupByLocation {
		return "location"
	}
	return "call_number"
}

// FetchResult carries the completion signals of a page's enrichment
// subtasks. Each channel receives exactly one value.
type FetchResult struct {
	Additional []<-chan error
}

// Page is one offset/limit slice of the listing.
type Page struct {
	number int
	size   int
	query  Query
	client enrich.Getter
	tasks  []enrich.Task
	sem    *semaphore.Weighted
	logger zerolog.Logger

	mu        sync.Mutex
	fetched   bool
	total     int
	resources []*model.RequestedResource

	// progress latch
	started   bool
	subtasks  int
	remaining int
}

// NewPage creates page number of size records. sem bounds concurrently
// running subtasks and may be nil.
func NewPage(number, size int, query Query, c enrich.Getter, tasks []enrich.Task, sem *semaphore.Weighted, logger zerolog.Logger) *Page {
	return &Page{
		number: number,
		size:   size,
		query:  query,
		client: c,
		tasks:  tasks,
		sem:    sem,
		logger: logger.With().Int("page", number).Logger(),
	}
}

// Number returns the zero-based page number.
func (p *Page) Number() int { return p.number }

// Offset returns the listing offset of the page.
func (p *Page) Offset() int { return p.number * p.size }

// Resources returns the page's resources in upstream order.
func (p *Page) Resources() []*model.RequestedResource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resources
}

// FetchPageOnly lists the page without enriching it and returns the total
// record count across all pages. Once the page is listed further calls
// return immediately.
func (p *Page) FetchPageOnly(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.fetched {
		total := p.total
		p.mu.Unlock()
		return total, nil
	}
	p.mu.Unlock()

	query := url.Values{
		"library":   {p.query.Library},
		"circ_desk": {p.query.CircDesk},
		"limit":     {strconv.Itoa(p.size)},
		"offset":    {strconv.Itoa(p.Offset())},
		"order_by":  {p.query.orderBy()},
	}

	start := time.Now()
	var resp model.RequestedResourcesPage
	err := p.client.Get(ctx, ListingPath, query, &resp)
	pageFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		pageFetchesTotal.WithLabelValues("error").Inc()
		if ipe := client.InvalidParameterFrom(err); ipe != nil {
			return 0, ipe
		}
		return 0, err
	}
	pageFetchesTotal.WithLabelValues("ok").Inc()

	resources := make([]*model.RequestedResource, 0, len(resp.RequestedResource))
	for _, r := range resp.RequestedResource {
		if r == nil || len(r.Request) == 0 {
			droppedResourcesTotal.Inc()
			p.logger.Warn().
				Int("offset", p.Offset()).
				Msg("Dropping requested resource without requests")
			continue
		}
		resources = append(resources, r)
	}

	p.logger.Debug().
		Int("resources", len(resources)).
		Int("total_record_count", resp.TotalRecordCount).
		Msg("Page listed")

	p.mu.Lock()
	p.fetched = true
	p.total = resp.TotalRecordCount
	p.resources = resources
	p.mu.Unlock()

	return resp.TotalRecordCount, nil
}

// Fetch lists the page if needed and starts every enrichment subtask for
// its resources. It returns once all subtasks are started.
func (p *Page) Fetch(ctx context.Context) (FetchResult, error) {
	if _, err := p.FetchPageOnly(ctx); err != nil {
		return FetchResult{}, err
	}

	resources := p.Resources()
	var subtasks []enrich.Subtask
	for _, task := range p.tasks {
		for _, r := range resources {
			subtasks = append(subtasks, task.Enrich(r)...)
		}
	}

	p.mu.Lock()
	p.started = true
	p.subtasks = len(subtasks)
	p.remaining = len(subtasks)
	p.mu.Unlock()

	p.logger.Debug().Int("subtasks", len(subtasks)).Msg("Enrichment started")

	result := FetchResult{Additional: make([]<-chan error, 0, len(subtasks))}
	for _, st := range subtasks {
		done := make(chan error, 1)
		result.Additional = append(result.Additional, done)
		go p.run(ctx, st, done)
	}
	return result, nil
}

func (p *Page) run(ctx context.Context, st enrich.Subtask, done chan<- error) {
	var err error
	if p.sem != nil {
		if err = p.sem.Acquire(ctx, 1); err == nil {
			err = st(ctx)
			p.sem.Release(1)
		}
	} else {
		err = st(ctx)
	}

	p.mu.Lock()
	p.remaining--
	p.mu.Unlock()

	done <- err
}

// Progress returns the page's completion in percent. It is 0 until
// enrichment starts, then 100*(settled+1)/(subtasks+1), reaching 100 once
// every subtask has settled.
func (p *Page) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return 0
	}
	return 100 * float64(p.subtasks-p.remaining+1) / float64(p.subtasks+1)
}
