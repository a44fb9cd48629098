package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/alma-slip-report/pkg/logging"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

// resourceSharingPrefix marks request sub-types that carry a lending request.
const resourceSharingPrefix = "RESOURCE_SHARING"

// RequestTask merges the full Alma request into each request detail and
// works out which copies can satisfy it.
type RequestTask struct {
	client  Getter
	lending LendingLookup
	logger  zerolog.Logger
}

// NewRequestTask creates a request enrichment task. lending may be nil, in
// which case resource sharing volumes are not backfilled.
func NewRequestTask(client Getter, lending LendingLookup) *RequestTask {
	return &RequestTask{
		client:  client,
		lending: lending,
		logger:  logging.NewLogger("enrich-request"),
	}
}

// Name implements Task.
func (t *RequestTask) Name() string { return "request" }

// Enrich picks a strategy by request count. A single request is fetched
// through its own link and is satisfiable by every copy. With several
// requests, each copy's request list decides which requests it serves.
func (t *RequestTask) Enrich(r *model.RequestedResource) []Subtask {
	if len(r.Request) == 1 {
		return t.single(r)
	}
	return t.multi(r)
}

func (t *RequestTask) single(r *model.RequestedResource) []Subtask {
	req := r.Request[0]
	return []Subtask{instrument(t.Name(), func(ctx context.Context) error {
		if req.Link != "" {
			var ur model.UserRequest
			if err := t.client.Get(ctx, req.Link, nil, &ur); err != nil {
				return fmt.Errorf("fetch request %s: %w", req.ID, err)
			}
			t.merge(ctx, req, &ur)
		}
		req.Copies = nonNilCopies(r.Location.Copy)
		return nil
	})}
}

// multiState is shared by the subtasks of one resource.
type multiState struct {
	mu   sync.Mutex
	byID map[string]*model.RequestDetail
	seen map[string]bool
}

func (t *RequestTask) multi(r *model.RequestedResource) []Subtask {
	st := &multiState{
		byID: make(map[string]*model.RequestDetail, len(r.Request)),
		seen: make(map[string]bool, len(r.Request)),
	}
	for _, req := range r.Request {
		if req == nil {
			continue
		}
		req.Copies = nil
		st.byID[req.ID] = req
	}

	var subtasks []Subtask
	for _, c := range r.Location.Copy {
		if c == nil || c.Link == "" {
			continue
		}
		subtasks = append(subtasks, instrument(t.Name(), func(ctx context.Context) error {
			var resp model.UserRequests
			if err := t.client.Get(ctx, strings.TrimRight(c.Link, "/")+"/requests", nil, &resp); err != nil {
				return fmt.Errorf("fetch requests for item %s: %w", c.PID, err)
			}
			for i := range resp.UserRequest {
				ur := &resp.UserRequest[i]

				st.mu.Lock()
				req, ok := st.byID[ur.RequestID]
				first := ok && !st.seen[ur.RequestID]
				if first {
					st.seen[ur.RequestID] = true
					req.Copies = []*model.Copy{c}
				} else if ok {
					req.AddCopy(c)
				}
				st.mu.Unlock()

				if !ok {
					t.logger.Debug().
						Str("request_id", ur.RequestID).
						Str("item", c.PID).
						Msg("Item request not part of this resource")
					continue
				}
				if first {
					t.merge(ctx, req, ur)
				}
			}
			return nil
		}))
	}
	return subtasks
}

// merge copies the extended request fields and backfills the lending
// request volume for resource sharing requests.
func (t *RequestTask) merge(ctx context.Context, req *model.RequestDetail, ur *model.UserRequest) {
	if ur.RequestSubType != nil {
		req.RequestSubType = ur.RequestSubType
	}
	req.Volume = ur.Volume
	req.Issue = ur.Issue
	req.ChapterOrArticleTitle = ur.ChapterOrArticleTitle
	req.ChapterOrArticleAuthor = ur.ChapterOrArticleAuthor
	req.PickupLocation = ur.PickupLocation
	req.PickupLocationLibrary = ur.PickupLocationLibrary
	if ur.RequiredPagesRange != nil {
		req.RequiredPagesRange = ur.RequiredPagesRange
	}
	if ur.ResourceSharing == nil {
		return
	}

	rs := *ur.ResourceSharing
	req.ResourceSharing = &rs
	if req.RequestSubType == nil || !strings.HasPrefix(req.RequestSubType.Value, resourceSharingPrefix) {
		return
	}
	if err := t.backfillVolume(ctx, ur.PickupLocationLibrary, &rs); err != nil {
		t.logger.Warn().
			Err(err).
			Str("request_id", req.ID).
			Str("resource_sharing_id", rs.ID).
			Msg("Resource sharing volume not available")
	}
}

func (t *RequestTask) backfillVolume(ctx context.Context, library string, rs *model.ResourceSharing) error {
	if t.lending == nil {
		return nil
	}
	if rs.Status == nil {
		return fmt.Errorf("resource sharing request %s has no status", rs.ID)
	}
	lending, err := t.lending.LendingRequests(ctx, library, rs.Status.Value)
	if err != nil {
		return err
	}
	for _, lr := range lending {
		if lr.RequestID == rs.ID {
			rs.Volume = lr.Volume
			return nil
		}
	}
	return fmt.Errorf("lending request %s not found for library %s", rs.ID, library)
}

func nonNilCopies(copies []*model.Copy) []*model.Copy {
	out := make([]*model.Copy, 0, len(copies))
	for _, c := range copies {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
