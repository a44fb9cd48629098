package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQuotaExhausted is returned when a request is blocked by the quota gate.
var ErrQuotaExhausted = errors.New("alma api quota below critical threshold")

var (
	almaQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alma_api_quota_remaining",
		Help: "Alma API calls remaining today as last reported by X-Exl-Api-Remaining",
	})

	almaQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alma_api_quota_blocks_total",
		Help: "Requests blocked because the Alma API quota fell below the critical threshold",
	})
)

// Tracker records the Alma API quota in Redis and gates requests.
type Tracker struct {
	redis      redis.Cmdable
	thresholds Thresholds
	logger     zerolog.Logger
	now        func() time.Time
}

// NewTracker creates a new quota tracker.
func NewTracker(redisClient redis.Cmdable, thresholds Thresholds, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:      redisClient,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// GetState retrieves the quota state from Redis. An unknown state is
// returned when nothing was recorded yet or the record predates the last
// daily reset.
func (t *Tracker) GetState(ctx context.Context) (*QuotaState, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if errors.Is(err, redis.Nil) {
		return &QuotaState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota remaining: %w", err)
	}

	lastUpdateUnix, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if errors.Is(err, redis.Nil) {
		return &QuotaState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota last update: %w", err)
	}

	state := &QuotaState{
		Remaining:  remaining,
		LastUpdate: time.Unix(lastUpdateUnix, 0),
		Known:      true,
	}
	if state.IsStale(t.now()) {
		t.logger.Debug().Time("last_update", state.LastUpdate).Msg("Quota state predates daily reset")
		return &QuotaState{}, nil
	}
	return state, nil
}

// UpdateFromHeaders stores the quota reported in headers. Responses without
// the header are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	now := t.now()
	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, remaining, 0)
	pipe.Set(ctx, RedisKeyLastUpdate, now.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	almaQuotaRemaining.Set(float64(remaining))

	state := QuotaState{Remaining: remaining, LastUpdate: now, Known: true}
	switch {
	case state.NeedsCriticalBlock(t.thresholds):
		t.logger.Error().Int("remaining", remaining).Msg("Alma API quota CRITICAL - requests will be blocked")
	case state.NeedsWarning(t.thresholds):
		t.logger.Warn().Int("remaining", remaining).Msg("Alma API quota low")
	default:
		t.logger.Debug().Int("remaining", remaining).Msg("Alma API quota updated")
	}

	return nil
}

// ShouldAllowRequest returns ErrQuotaExhausted when the recorded quota is
// below the critical threshold.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return fmt.Errorf("get quota state: %w", err)
	}

	if state.NeedsCriticalBlock(t.thresholds) {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt()).
			Msg("Alma API quota critical - blocking request")
		almaQuotaBlocksTotal.Inc()
		return fmt.Errorf("%w (%d remaining, resets %s)",
			ErrQuotaExhausted, state.Remaining, state.ResetAt().Format(time.RFC3339))
	}

	return nil
}
