package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// MemoryGate keeps counters in process memory. Counters are per instance and
// are lost on restart.
type MemoryGate struct {
	mu     sync.Mutex
	counts map[string]*counter
	limit  int
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

type counter struct {
	day   string
	count int
}

// NewMemoryGate returns a gate allowing limit generations per identity per
// calendar day in loc.
func NewMemoryGate(limit int, loc *time.Location, logger zerolog.Logger) *MemoryGate {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if loc == nil {
		loc = time.Local
	}
	return &MemoryGate{
		counts: make(map[string]*counter),
		limit:  limit,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (g *MemoryGate) Allow(ctx context.Context, identity string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	identity = normalizeIdentity(identity)
	today := dayKey(g.now(), g.loc)

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.counts[identity]
	if !ok || c.day != today {
		c = &counter{day: today}
		g.counts[identity] = c
	}
	if c.count >= g.limit {
		return Decision{Allowed: false, Remaining: 0, Limit: g.limit}, nil
	}
	c.count++
	return decide(c.count, g.limit), nil
}

// Reset clears every counter.
func (g *MemoryGate) Reset() {
	g.mu.Lock()
	n := len(g.counts)
	g.counts = make(map[string]*counter)
	g.mu.Unlock()
	g.logger.Info().Int("identities", n).Msg("daily generation quota reset")
}

// Start schedules Reset at local midnight until ctx is done.
func (g *MemoryGate) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(g.loc))
	if _, err := c.AddFunc("@midnight", g.Reset); err != nil {
		return fmt.Errorf("quota: schedule reset: %w", err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

var _ Gate = (*MemoryGate)(nil)
