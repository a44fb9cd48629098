package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached Alma response.
type Key struct {
	// Path is the Alma path, e.g. "/almaws/v1/conf/libraries/MAIN/locations".
	Path string

	// Query holds the query parameters. The apikey parameter never takes part
	// in the key.
	Query url.Values
}

// String generates a deterministic key string.
// Format: alma:path:param1=a,b:param2=c
func (k Key) String() string {
	parts := []string{"alma"}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		if strings.EqualFold(name, "apikey") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, name+"="+strings.Join(k.Query[name], ","))
	}

	return strings.Join(parts, ":")
}
