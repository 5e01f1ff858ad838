package model

import (
	"fmt"

	looperrors "github.com/loopercore/looper/internal/looper/errors"
)

// RateLimitPeriod names the window of a rate limit's optional token-bucket
// check, applied on top of the lifetime counter. See SPEC_FULL.md §11.
type RateLimitPeriod string

const (
	RateLimitMinute RateLimitPeriod = "minute"
	RateLimitHour   RateLimitPeriod = "hour"
	RateLimitDay    RateLimitPeriod = "day"
	RateLimitWeek   RateLimitPeriod = "week"
	RateLimitMonth  RateLimitPeriod = "month"
)

// RateLimit bounds the number of successful dispatches an actuator may
// perform. Max must be >= 1 when the RateLimit is present at all (nil
// pointer means "no limit").
type RateLimit struct {
	Max    int
	Period RateLimitPeriod
}

// SafetyPolicy gates dispatch through an actuator (§3, §4.2).
type SafetyPolicy struct {
	AllowKeywords []string
	DenyKeywords  []string
	RateLimit     *RateLimit
	RequireHITL   bool
	Sandboxed     bool
}

// Validate enforces the two policy invariants: allowlist/denylist are
// mutually exclusive, and a present rate limit has Max >= 1.
func (p SafetyPolicy) Validate() error {
	if len(p.AllowKeywords) > 0 && len(p.DenyKeywords) > 0 {
		return fmt.Errorf("%w: allowlist and denylist are mutually exclusive", looperrors.ErrValidation)
	}
	if p.RateLimit != nil && p.RateLimit.Max < 1 {
		return fmt.Errorf("%w: rate_limit.max must be >= 1", looperrors.ErrValidation)
	}
	return nil
}
