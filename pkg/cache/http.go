package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTTL applies when a response carries no usable Expires or max-age.
const DefaultTTL = 5 * time.Minute

// ResponseToEntry reads resp into an Entry. The body is restored so the
// caller can still decode it.
func ResponseToEntry(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		Data:        body,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        resp.Header.Get("ETag"),
		Expires:     parseExpires(resp.Header),
		StatusCode:  resp.StatusCode,
		CachedAt:    time.Now(),
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// EntryToResponse rebuilds an HTTP response from a cached entry.
func EntryToResponse(entry *Entry, req *http.Request) *http.Response {
	header := http.Header{}
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	if entry.ETag != "" {
		header.Set("ETag", entry.ETag)
	}
	header.Set("X-Cache", "HIT")

	return &http.Response{
		Status:        http.StatusText(entry.StatusCode),
		StatusCode:    entry.StatusCode,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
		Request:       req,
	}
}

// parseExpires returns the Expires header value, or now + DefaultTTL when
// missing or unparseable. Past values are clamped to now.
func parseExpires(headers http.Header) time.Time {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Now().Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Now().Add(DefaultTTL)
	}

	if expires.Before(time.Now()) {
		return time.Now()
	}
	return expires
}

// AddConditionalHeaders sets If-None-Match, or If-Modified-Since when the
// entry has no ETag.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if req == nil || !entry.CanRevalidate() {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else {
		req.Header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
	ConditionalRequests.Inc()
}
