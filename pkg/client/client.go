// Package client is the Alma REST client used by the requested-resources
// pipeline. Every call is a GET returning JSON; failures come back as
// *APIError so callers can branch on status and Alma error codes.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/alma-slip-report/pkg/cache"
	"github.com/Sternrassler/alma-slip-report/pkg/logging"
	"github.com/Sternrassler/alma-slip-report/pkg/ratelimit"
)

// Prometheus metrics for Alma client operations.
var (
	almaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alma_requests_total",
		Help: "Total Alma requests by endpoint and status",
	}, []string{"endpoint", "status"})

	almaRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alma_request_duration_seconds",
		Help:    "Alma request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	almaErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alma_errors_total",
		Help: "Total Alma errors by class",
	}, []string{"class"})
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorClass represents a classification of failed requests.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx errors other than 401.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassUnauthorized represents 401: the API key or role lacks
	// permission for the library or circulation desk.
	ErrorClassUnauthorized ErrorClass = "unauthorized"

	// ErrorClassServer represents 5xx errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 2xx response that could not be decoded.
	ErrorClassDecode ErrorClass = "decode"
)

// apiPrefix is prepended to relative paths that do not already carry it.
const apiPrefix = "/almaws/v1"

// Client is an Alma REST client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	quota      *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the regional Alma API gateway,
	// e.g. "https://api-eu.hosted.exlibrisgroup.com".
	BaseURL string

	// APIKey is sent as "Authorization: apikey <key>".
	APIKey string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per request.
	Timeout time.Duration

	// Redis enables the shared quota gate and the configuration response
	// cache. Nil runs ungated and uncached.
	Redis redis.Cmdable

	// Quota thresholds for the gate.
	Quota ratelimit.Thresholds

	// CachePrefixes are the paths whose responses may be cached in Redis.
	CachePrefixes []string
}

// DefaultConfig returns a configuration with safe defaults.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:       baseURL,
		APIKey:        apiKey,
		UserAgent:     "alma-slip-report/0.1.0",
		Timeout:       30 * time.Second,
		Quota:         ratelimit.DefaultThresholds(),
		CachePrefixes: []string{apiPrefix + "/conf/"},
	}
}

// New creates a new Alma client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid alma base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("alma-client")

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}
	if cfg.Redis != nil {
		c.quota = ratelimit.NewTracker(cfg.Redis, cfg.Quota, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}
	return c, nil
}

// Get issues one GET against pathOrURL and decodes the JSON body into out.
// Relative paths are resolved against the base URL and "/almaws/v1";
// absolute URLs (Alma link fields) are used as-is.
func (c *Client) Get(ctx context.Context, pathOrURL string, query url.Values, out any) error {
	u, err := c.resolve(pathOrURL, query)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", pathOrURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		almaErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Path:       req.URL.Path,
			Message:    "decode response",
			Err:        err,
		}
	}
	return nil
}

// Do performs an HTTP request with quota gating and configuration caching.
// Non-2xx responses are returned as-is; only transport failures and a
// blocked quota are errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	path := req.URL.Path
	endpoint := endpointLabel(path)

	startTime := time.Now()
	defer func() {
		almaRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: quota gate
	if c.quota != nil {
		if err := c.quota.ShouldAllowRequest(ctx); err != nil {
			almaRequestsTotal.WithLabelValues(endpoint, "quota_blocked").Inc()
			return nil, err
		}
	}

	// Step 2: configuration cache
	var cacheKey cache.Key
	var cached *cache.Entry
	cacheable := c.cacheable(path)
	if cacheable {
		cacheKey = cache.Key{Path: path, Query: req.URL.Query()}
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str("path", path).Msg("Serving cached response")
			almaRequestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return cache.EntryToResponse(entry, req), nil
		case err == nil:
			cached = entry
			cache.AddConditionalHeaders(req, entry)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("path", path).Msg("Cache get error")
		}
	}

	// Step 3: headers
	req.Header.Set("Authorization", "apikey "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	// Step 4: execute
	c.logger.Debug().Str("path", path).Msg("Executing Alma request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		almaErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		almaRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Path:       path,
			Message:    "request failed",
			Err:        err,
		}
	}
	almaRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 5: quota bookkeeping
	if c.quota != nil {
		if err := c.quota.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update quota from headers")
		}
	}

	// Step 6: revalidated cache entry
	if resp.StatusCode == http.StatusNotModified && cached != nil {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		expires := time.Now().Add(cache.DefaultTTL)
		if h := resp.Header.Get("Expires"); h != "" {
			if t, err := http.ParseTime(h); err == nil {
				expires = t
			}
		}
		if err := c.cache.Refresh(ctx, cacheKey, cached, expires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cache.EntryToResponse(cached, req), nil
	}

	// Step 7: store fresh configuration responses
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// resolve turns a path or Alma link into a request URL.
func (c *Client) resolve(pathOrURL string, query url.Values) (*url.URL, error) {
	var u *url.URL
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		parsed, err := url.Parse(pathOrURL)
		if err != nil {
			return nil, err
		}
		u = parsed
	} else {
		path := "/" + strings.TrimLeft(pathOrURL, "/")
		if !strings.HasPrefix(path, apiPrefix+"/") {
			path = apiPrefix + path
		}
		ref, err := url.Parse(path)
		if err != nil {
			return nil, err
		}
		u = c.baseURL.ResolveReference(ref)
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) cacheable(path string) bool {
	if c.cache == nil {
		return false
	}
	for _, prefix := range c.config.CachePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// responseError builds an APIError from a non-2xx response.
func (c *Client) responseError(resp *http.Response) error {
	class := classifyStatus(resp.StatusCode)
	almaErrorsTotal.WithLabelValues(string(class)).Inc()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: class,
		Message:    resp.Status,
	}
	if resp.Request != nil {
		apiErr.Path = resp.Request.URL.Path
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(body) > 0 {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Errors = eb.ErrorList.Error
		}
	}

	c.logger.Warn().
		Str("path", apiErr.Path).
		Int("status", resp.StatusCode).
		Str("error_class", string(class)).
		Msg("Alma request error")

	return apiErr
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusUnauthorized:
		return ErrorClassUnauthorized
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// endpointLabel collapses record identifiers so metric labels stay bounded:
// /almaws/v1/bibs/991234/holdings/221234/items/231234 becomes
// /almaws/v1/bibs/{id}/holdings/{id}/items/{id}.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if strings.IndexFunc(s, unicode.IsDigit) >= 0 && i > 2 {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
