package enrich

import (
	"context"
	"fmt"

	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

// LocationLookup resolves a shelving location code within a library. A nil
// location with a nil error means the code is unknown.
type LocationLookup interface {
	Location(ctx context.Context, library, code string) (*model.LibraryLocation, error)
}

// LocationTask resolves the shelving location to its display name.
type LocationTask struct {
	lookup LocationLookup
}

// NewLocationTask creates a location enrichment task.
func NewLocationTask(lookup LocationLookup) *LocationTask {
	return &LocationTask{lookup: lookup}
}

// Name implements Task.
func (t *LocationTask) Name() string { return "location" }

// Enrich always returns exactly one subtask.
func (t *LocationTask) Enrich(r *model.RequestedResource) []Subtask {
	return []Subtask{instrument(t.Name(), func(ctx context.Context) error {
		library := r.Location.Library.Value
		code := r.Location.ShelvingLocation

		loc, err := t.lookup.Location(ctx, library, code)
		if err != nil {
			return fmt.Errorf("resolve location %s/%s: %w", library, code, err)
		}

		details := &model.LocationDetails{Code: code}
		if loc != nil {
			details.Name = loc.Name
		}
		r.Location.ShelvingLocationDetails = details
		return nil
	})}
}
