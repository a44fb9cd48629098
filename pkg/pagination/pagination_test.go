package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/alma-slip-report/internal/testutil"
	"github.com/Sternrassler/alma-slip-report/pkg/client"
	"github.com/Sternrassler/alma-slip-report/pkg/enrich"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

const listing = "/almaws/v1" + ListingPath

type fixture struct {
	mock   *testutil.MockAlma
	client *client.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mock := testutil.NewMockAlma()
	t.Cleanup(mock.Close)

	c, err := client.New(client.DefaultConfig(mock.URL(), "test-key"))
	require.NoError(t, err)
	return &fixture{mock: mock, client: c}
}

func (f *fixture) itemLink(i int) string {
	return fmt.Sprintf("%s/almaws/v1/bibs/99%d/holdings/22%d/items/23%d", f.mock.URL(), i, i, i)
}

// serveListing serves total resources titled "r<i>", each with one copy
// whose item link points back at the mock.
func (f *fixture) serveListing(t *testing.T, total int) []*model.RequestedResource {
	t.Helper()

	all := make([]*model.RequestedResource, total)
	for i := range all {
		all[i] = &model.RequestedResource{
			ResourceMetadata: model.ResourceMetadata{Title: "r" + strconv.Itoa(i)},
			Location: model.Location{
				Library:          model.CodeDesc{Value: "MAIN"},
				ShelvingLocation: "STACKS",
				Copy:             []*model.Copy{{Link: f.itemLink(i), PID: "23" + strconv.Itoa(i)}},
			},
			Request: []*model.RequestDetail{{ID: "req" + strconv.Itoa(i)}},
		}
	}

	f.mock.SetHandler(listing, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "MAIN", q.Get("library"))
		assert.Equal(t, "DEFAULT_CIRC_DESK", q.Get("circ_desk"))
		assert.Equal(t, "call_number", q.Get("order_by"))

		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		end := min(offset+limit, total)
		var slice []*model.RequestedResource
		if offset < end {
			slice = all[offset:end]
		}
		testutil.WriteJSON(w, model.RequestedResourcesPage{
			RequestedResource: slice,
			TotalRecordCount:  total,
		})
	})

	for i := range all {
		path := fmt.Sprintf("/almaws/v1/bibs/99%d/holdings/22%d/items/23%d", i, i, i)
		f.mock.SetJSON(path, map[string]any{
			"bib_data":  map[string]string{"complete_edition": "ed" + strconv.Itoa(i)},
			"item_data": map[string]string{"description": "item" + strconv.Itoa(i)},
		})
	}
	return all
}

func (f *fixture) finder(opts model.EnrichmentOptions) *Finder {
	return NewFinder(f.client, enrich.NewSet(f.client), Query{
		Library:    "MAIN",
		CircDesk:   "DEFAULT_CIRC_DESK",
		Enrichment: opts,
	}, DefaultConfig())
}

// recorder collects progress emissions.
type recorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *recorder) record(pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, pct)
}

func assertProgress(t *testing.T, values []float64) {
	t.Helper()

	require.NotEmpty(t, values)
	assert.Equal(t, 0.0, values[0], "first emission")
	assert.Equal(t, 100.0, values[len(values)-1], "last emission")
	for i, v := range values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
		if i > 0 {
			assert.GreaterOrEqual(t, v, values[i-1], "progress went backwards at %d: %v", i, values)
		}
	}
}

func TestFinder_ConcatenatesPagesInOrder(t *testing.T) {
	f := newFixture(t)
	f.serveListing(t, 5)

	var rec recorder
	got, err := f.finder(model.EnrichmentOptions{Item: true}).Find(context.Background(), 2, rec.record)
	require.NoError(t, err)

	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, "r"+strconv.Itoa(i), r.ResourceMetadata.Title)
		assert.Equal(t, "ed"+strconv.Itoa(i), r.ResourceMetadata.CompleteEdition)
		assert.Equal(t, "item"+strconv.Itoa(i), r.Location.Copy[0].Description)
	}

	assert.Equal(t, 3, f.mock.PathCount(listing), "page 0 is listed once and reused")
	assertProgress(t, rec.values)
}

func TestFinder_ZeroResults(t *testing.T) {
	f := newFixture(t)
	f.serveListing(t, 0)

	var rec recorder
	got, err := f.finder(model.EnrichmentOptions{Item: true}).Find(context.Background(), 10, rec.record)
	require.NoError(t, err)

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, []float64{0, 100}, rec.values)
	assert.Equal(t, 1, f.mock.PathCount(listing))
}

func TestFinder_NoEnrichment(t *testing.T) {
	f := newFixture(t)
	f.serveListing(t, 3)

	got, err := f.finder(model.EnrichmentOptions{}).Find(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Empty(t, got[0].Location.Copy[0].Description)
	assert.Equal(t, 1, f.mock.PathCount(listing), "default page size covers all records")
}

func TestFinder_InvalidParameter(t *testing.T) {
	f := newFixture(t)
	f.mock.SetResponse(listing, testutil.InvalidParameterResponse("circ_desk", "DEFAULT_CIRC_DESK", "RES_DESK"))

	var rec recorder
	got, err := f.finder(model.EnrichmentOptions{}).Find(context.Background(), 10, rec.record)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Empty(t, rec.values, "no progress before the first listing succeeds")

	var ipe *client.InvalidParameterError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "circ_desk", ipe.Parameter)
	assert.Equal(t, []string{"DEFAULT_CIRC_DESK", "RES_DESK"}, ipe.ValidOptions)
}

func TestFinder_EnrichmentFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.serveListing(t, 4)
	f.mock.SetResponse("/almaws/v1/bibs/993/holdings/223/items/233", testutil.NewServerErrorResponse())

	got, err := f.finder(model.EnrichmentOptions{Item: true}).Find(context.Background(), 2, nil)
	require.Error(t, err)
	assert.Nil(t, got)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestFinder_LaterPageFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.serveListing(t, 4)
	f.mock.SetHandler(listing, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") != "0" {
			testutil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "listing failed")
			return
		}
		testutil.WriteJSON(w, model.RequestedResourcesPage{
			RequestedResource: []*model.RequestedResource{
				{Request: []*model.RequestDetail{{ID: "a"}}},
				{Request: []*model.RequestDetail{{ID: "b"}}},
			},
			TotalRecordCount: 4,
		})
	})

	got, err := f.finder(model.EnrichmentOptions{}).Find(context.Background(), 2, nil)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Nil(t, client.InvalidParameterFrom(err))
}

func TestFinder_SwallowedLendingFailureIsolated(t *testing.T) {
	f := newFixture(t)
	requestLink := f.mock.URL() + "/almaws/v1/users/42/requests/r1"

	f.mock.SetJSON(listing, model.RequestedResourcesPage{
		RequestedResource: []*model.RequestedResource{{
			ResourceMetadata: model.ResourceMetadata{Title: "ILL"},
			Location:         model.Location{Copy: []*model.Copy{{PID: "1"}}},
			Request:          []*model.RequestDetail{{ID: "r1", Link: requestLink}},
		}},
		TotalRecordCount: 1,
	})
	f.mock.SetJSON("/almaws/v1/users/42/requests/r1", map[string]any{
		"request_id":              "r1",
		"request_sub_type":        map[string]string{"value": "RESOURCE_SHARING_PHYSICAL_SHIPMENT"},
		"pickup_location_library": "MAIN",
		"resource_sharing":        map[string]any{"id": "rs-1", "status": map[string]string{"value": "REQUEST_CREATED_LEND"}},
	})
	f.mock.SetResponse("/almaws/v1/task-lists/rs/lending-requests", testutil.NewServerErrorResponse())

	got, err := f.finder(model.EnrichmentOptions{Request: true}).Find(context.Background(), 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	req := got[0].Request[0]
	require.NotNil(t, req.ResourceSharing)
	assert.Equal(t, "rs-1", req.ResourceSharing.ID)
	assert.Empty(t, req.ResourceSharing.Volume)
	assert.Len(t, req.Copies, 1)
}

func TestFinder_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	getter := &listingGetter{total: 1}
	set := &enrich.Set{Item: &blockingTask{n: 1, release: release}}
	finder := NewFinder(getter, set, Query{Enrichment: model.EnrichmentOptions{Item: true}}, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	got, err := finder.Find(ctx, 10, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

// listingGetter answers listing requests with total single-request
// resources and fails everything else.
type listingGetter struct {
	total int
	calls int
	mu    sync.Mutex
}

func (g *listingGetter) Get(_ context.Context, path string, _ url.Values, out any) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if path != ListingPath {
		return fmt.Errorf("unexpected GET %s", path)
	}
	page := out.(*model.RequestedResourcesPage)
	page.TotalRecordCount = g.total
	for i := 0; i < g.total; i++ {
		page.RequestedResource = append(page.RequestedResource, &model.RequestedResource{
			Request: []*model.RequestDetail{{ID: strconv.Itoa(i)}},
		})
	}
	return nil
}

// blockingTask emits n subtasks per resource that wait for release.
type blockingTask struct {
	n       int
	release <-chan struct{}
	err     error
}

func (b *blockingTask) Name() string { return "blocking" }

func (b *blockingTask) Enrich(*model.RequestedResource) []enrich.Subtask {
	subtasks := make([]enrich.Subtask, b.n)
	for i := range subtasks {
		subtasks[i] = func(ctx context.Context) error {
			select {
			case <-b.release:
				return b.err
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return subtasks
}

func TestPage_ProgressLatch(t *testing.T) {
	release := make(chan struct{})
	task := &blockingTask{n: 3, release: release}
	getter := &listingGetter{total: 1}
	p := NewPage(0, 10, Query{}, getter, []enrich.Task{task}, nil, zerolog.Nop())

	assert.Equal(t, 0.0, p.Progress(), "not started")

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Additional, 3)
	assert.InDelta(t, 25.0, p.Progress(), 1e-9, "100*(0+1)/(3+1)")

	close(release)
	for _, done := range result.Additional {
		assert.NoError(t, <-done)
	}
	assert.Equal(t, 100.0, p.Progress())
}

func TestPage_NoSubtasksIsComplete(t *testing.T) {
	p := NewPage(0, 10, Query{}, &listingGetter{total: 2}, nil, nil, zerolog.Nop())

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Additional)
	assert.Equal(t, 100.0, p.Progress())
	assert.Len(t, p.Resources(), 2)
}

func TestPage_FetchPageOnlyIsIdempotent(t *testing.T) {
	getter := &listingGetter{total: 3}
	p := NewPage(0, 10, Query{}, getter, nil, nil, zerolog.Nop())

	total, err := p.FetchPageOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	total, err = p.FetchPageOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	_, err = p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, getter.calls)
}

func TestPage_SubtaskErrorDelivered(t *testing.T) {
	release := make(chan struct{})
	close(release)
	boom := errors.New("boom")
	task := &blockingTask{n: 2, release: release, err: boom}
	p := NewPage(0, 10, Query{}, &listingGetter{total: 1}, []enrich.Task{task}, nil, zerolog.Nop())

	result, err := p.Fetch(context.Background())
	require.NoError(t, err)
	for _, done := range result.Additional {
		assert.ErrorIs(t, <-done, boom)
	}
}

func TestPage_DropsResourcesWithoutRequests(t *testing.T) {
	f := newFixture(t)
	f.mock.SetJSON(listing, map[string]any{
		"requested_resource": []map[string]any{
			{"resource_metadata": map[string]string{"title": "kept"}, "request": []map[string]string{{"id": "1"}}},
			{"resource_metadata": map[string]string{"title": "no requests"}, "request": []map[string]string{}},
			{"resource_metadata": map[string]string{"title": "missing requests"}},
		},
		"total_record_count": 3,
	})

	p := NewPage(0, 10, Query{Library: "MAIN", CircDesk: "DEFAULT_CIRC_DESK"}, f.client, nil, nil, zerolog.Nop())
	total, err := p.FetchPageOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, p.Resources(), 1)
	assert.Equal(t, "kept", p.Resources()[0].ResourceMetadata.Title)
}

func TestPage_MissingListIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.mock.SetJSON(listing, map[string]any{"total_record_count": 0})

	p := NewPage(0, 10, Query{}, f.client, nil, nil, zerolog.Nop())
	total, err := p.FetchPageOnly(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, p.Resources())
}

func TestPage_QueryParameters(t *testing.T) {
	f := newFixture(t)
	f.mock.SetHandler(listing, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "LAW", q.Get("library"))
		assert.Equal(t, "RES_DESK", q.Get("circ_desk"))
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, "50", q.Get("offset"))
		assert.Equal(t, "location", q.Get("order_by"))
		testutil.WriteJSON(w, map[string]any{"total_record_count": 60})
	})

	query := Query{Library: "LAW", CircDesk: "RES_DESK", GroupByLocation: true}
	p := NewPage(2, 25, query, f.client, nil, nil, zerolog.Nop())
	total, err := p.FetchPageOnly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, total)
	assert.Equal(t, 1, f.mock.PathCount(listing))
}

func TestMeanProgress(t *testing.T) {
	assert.Equal(t, 0.0, meanProgress(nil))

	done := NewPage(0, 10, Query{}, &listingGetter{total: 1}, nil, nil, zerolog.Nop())
	_, err := done.Fetch(context.Background())
	require.NoError(t, err)
	idle := NewPage(1, 10, Query{}, &listingGetter{total: 1}, nil, nil, zerolog.Nop())

	assert.Equal(t, 50.0, meanProgress([]*Page{done, idle}))
}
