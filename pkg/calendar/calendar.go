package calendar

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is the operating zone when none is configured.
const DefaultTimezone = "Asia/Seoul"

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a clock frozen at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR
// ══════════════════════════════════════════════════════════════════════════════

// Calendar resolves dates and windows in one fixed location.
type Calendar struct {
	loc   *time.Location
	clock Clock
}

// New creates a Calendar. A nil location means UTC, a nil clock the wall clock.
func New(loc *time.Location, clock Clock) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Calendar{loc: loc, clock: clock}
}

// NewInZone loads the named IANA zone and creates a Calendar for it.
func NewInZone(name string, clock Clock) (*Calendar, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("calendar: load location %q: %w", name, err)
	}
	return New(loc, clock), nil
}

// Location returns the operating location.
func (c *Calendar) Location() *time.Location { return c.loc }

// Clock returns the underlying clock.
func (c *Calendar) Clock() Clock { return c.clock }

// Now returns the current instant in the operating location.
func (c *Calendar) Now() time.Time { return c.clock.Now().In(c.loc) }

// Today returns the current local date.
func (c *Calendar) Today() Date { return DateOf(c.Now()) }

// DateOf returns the local date of an arbitrary instant.
func (c *Calendar) DateOf(t time.Time) Date { return DateOf(t.In(c.loc)) }

// CurrentWeek returns the Monday..Sunday window containing today.
func (c *Calendar) CurrentWeek() Range { return WeekOf(c.Today()) }

// CurrentMonth returns the month containing today.
func (c *Calendar) CurrentMonth() YearMonth { return c.Today().YearMonth() }

// PreviousMonth returns the last completed month.
func (c *Calendar) PreviousMonth() YearMonth { return c.CurrentMonth().Prev() }

// StartOf returns local midnight of d.
func (c *Calendar) StartOf(d Date) time.Time { return d.In(c.loc) }
