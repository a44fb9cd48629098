package cache

import "time"

// Entry is a cached Alma response body with its validators.
type Entry struct {
	Data         []byte    `json:"data"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
	Expires      time.Time `json:"expires"`
	StatusCode   int       `json:"status_code"`
	CachedAt     time.Time `json:"cached_at"`
}

// IsExpired returns true once the entry is past its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether a conditional request can be made for e.
func (e *Entry) CanRevalidate() bool {
	return e != nil && (e.ETag != "" || !e.LastModified.IsZero())
}
