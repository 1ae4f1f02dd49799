// Package quota enforces the daily cap on image generations per identity.
package quota

import (
	"context"
	"strings"
	"time"
)

// DefaultDailyLimit is the number of generations an identity gets per day.
const DefaultDailyLimit = 5

// AnonymousIdentity is charged when a request carries no identity at all.
const AnonymousIdentity = "anonymous"

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
}

// Gate decides whether an identity may generate another image today. An
// allowed call counts against the quota; a rejected call does not.
type Gate interface {
	Allow(ctx context.Context, identity string) (Decision, error)
}

func normalizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return AnonymousIdentity
	}
	return identity
}

// dayKey formats the calendar day of t in loc.
func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("20060102")
}

// nextMidnight returns the start of the day after t in loc.
func nextMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

func decide(count, limit int) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining, Limit: limit}
}
