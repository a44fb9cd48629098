// Package ratelimit tracks the Alma API daily request quota and gates
// requests before the quota runs out. Alma reports the remaining quota in
// the X-Exl-Api-Remaining header of every response; the figure is shared
// across processes through Redis.
package ratelimit

import (
	"time"
)

// HeaderRemaining is the Alma response header carrying the remaining quota.
const HeaderRemaining = "X-Exl-Api-Remaining"

// Redis keys for quota state storage.
const (
	RedisKeyRemaining  = "alma:quota:remaining"
	RedisKeyLastUpdate = "alma:quota:last_update"
)

// Default thresholds for quota decisions.
const (
	// DefaultThresholdCritical blocks requests when the remaining quota falls
	// below this value, leaving headroom for other integrations on the same
	// API key.
	DefaultThresholdCritical = 1000

	// DefaultThresholdWarning logs a warning below this value.
	DefaultThresholdWarning = 10000
)

// Thresholds configures when the tracker warns and blocks.
type Thresholds struct {
	Critical int
	Warning  int
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical: DefaultThresholdCritical,
		Warning:  DefaultThresholdWarning,
	}
}

// QuotaState is the last known Alma API quota.
type QuotaState struct {
	// Remaining is the number of API calls left today.
	Remaining int `json:"remaining"`

	// LastUpdate is when Remaining was last reported by Alma.
	LastUpdate time.Time `json:"last_update"`

	// Known is false until a response carrying the quota header was seen.
	Known bool `json:"known"`
}

// ResetAt returns when the daily quota resets (midnight UTC after LastUpdate).
func (s *QuotaState) ResetAt() time.Time {
	y, m, d := s.LastUpdate.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// IsStale reports whether the state was recorded before the last quota reset.
func (s *QuotaState) IsStale(now time.Time) bool {
	return !now.Before(s.ResetAt())
}

// NeedsCriticalBlock reports whether requests must be blocked.
func (s *QuotaState) NeedsCriticalBlock(th Thresholds) bool {
	return s.Known && s.Remaining < th.Critical
}

// NeedsWarning reports whether the quota is low but not yet critical.
func (s *QuotaState) NeedsWarning(th Thresholds) bool {
	return s.Known && s.Remaining < th.Warning && !s.NeedsCriticalBlock(th)
}
