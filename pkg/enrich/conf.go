package enrich

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/alma-slip-report/pkg/cache"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

// LocationKey identifies a shelving location within a library.
type LocationKey struct {
	Library  string
	Location string
}

// ConfService reads Alma configuration with shared, deduplicated lookups.
type ConfService struct {
	client      Getter
	locations   *cache.Group[LocationKey, *model.LibraryLocation]
	libraryLocs *cache.Group[string, []model.LibraryLocation]
}

// NewConfService creates a configuration service backed by client.
func NewConfService(client Getter) *ConfService {
	return &ConfService{
		client:      client,
		locations:   cache.NewGroup[LocationKey, *model.LibraryLocation]("location", 100, 0),
		libraryLocs: cache.NewGroup[string, []model.LibraryLocation]("library_locations", 5, 0),
	}
}

// Location returns the location with the given code, or nil when the
// library has no such location.
func (s *ConfService) Location(ctx context.Context, library, code string) (*model.LibraryLocation, error) {
	key := LocationKey{Library: library, Location: code}
	return s.locations.Do(ctx, key, func(ctx context.Context) (*model.LibraryLocation, error) {
		locations, err := s.LocationsForLibrary(ctx, library)
		if err != nil {
			return nil, err
		}
		for i := range locations {
			if locations[i].Code == code {
				loc := locations[i]
				return &loc, nil
			}
		}
		return nil, nil
	})
}

// LocationsForLibrary returns every location configured for a library.
func (s *ConfService) LocationsForLibrary(ctx context.Context, library string) ([]model.LibraryLocation, error) {
	return s.libraryLocs.Do(ctx, library, func(ctx context.Context) ([]model.LibraryLocation, error) {
		var resp model.LibraryLocations
		path := "/almaws/v1/conf/libraries/" + url.PathEscape(library) + "/locations"
		if err := s.client.Get(ctx, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("fetch locations for library %s: %w", library, err)
		}
		return resp.Location, nil
	})
}
