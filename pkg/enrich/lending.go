package enrich

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/alma-slip-report/pkg/cache"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

// LendingKey selects the lending requests of one library in one status.
type LendingKey struct {
	Library string
	Status  string
}

// LendingLookup lists resource sharing lending requests.
type LendingLookup interface {
	LendingRequests(ctx context.Context, library, status string) ([]model.LendingRequest, error)
}

// LendingService lists lending requests with shared, deduplicated lookups.
type LendingService struct {
	client Getter
	group  *cache.Group[LendingKey, []model.LendingRequest]
}

// NewLendingService creates a lending requests service backed by client.
func NewLendingService(client Getter) *LendingService {
	return &LendingService{
		client: client,
		group:  cache.NewGroup[LendingKey, []model.LendingRequest]("lending_requests", 2, 0),
	}
}

// LendingRequests returns the lending requests for library with status.
func (s *LendingService) LendingRequests(ctx context.Context, library, status string) ([]model.LendingRequest, error) {
	key := LendingKey{Library: library, Status: status}
	return s.group.Do(ctx, key, func(ctx context.Context) ([]model.LendingRequest, error) {
		var resp model.LendingRequests
		query := url.Values{"library": {library}, "status": {status}}
		if err := s.client.Get(ctx, "/almaws/v1/task-lists/rs/lending-requests", query, &resp); err != nil {
			return nil, fmt.Errorf("fetch lending requests for %s/%s: %w", library, status, err)
		}
		return resp.UserResourceSharingRequest, nil
	})
}
