package session

import (
	"sync"
	"time"
)

// Clock abstracts time.Now for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Counters tracks how many applications and messages have been sent today
// against the session's limits. Counts only ever move forward within a day;
// they reset when the local calendar day rolls over.
type Counters struct {
	mu           sync.Mutex
	clock        Clock
	limits       Limits
	day          time.Time
	applications int
	messages     int
}

// NewCounters builds counters for the given limits using the real clock.
func NewCounters(limits Limits) *Counters {
	return NewCountersWithClock(limits, realClock{})
}

// NewCountersWithClock is NewCounters with an injectable clock.
func NewCountersWithClock(limits Limits, clock Clock) *Counters {
	return &Counters{
		clock:  clock,
		limits: limits,
		day:    startOfDay(clock.Now()),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfDay returns midnight of the current day per the counter's clock.
// Used to replay today's audit records into the counters at startup.
func (c *Counters) StartOfDay() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.day
}

// Seed loads counts recovered from the audit log. It only raises counts,
// never lowers them.
func (c *Counters) Seed(applications, messages int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	if applications > c.applications {
		c.applications = applications
	}
	if messages > c.messages {
		c.messages = messages
	}
}

func (c *Counters) rolloverLocked() {
	today := startOfDay(c.clock.Now())
	if today.After(c.day) {
		c.day = today
		c.applications = 0
		c.messages = 0
	}
}

// CanApply reports whether another application fits in today's quota.
func (c *Counters) CanApply() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.applications < c.limits.MaxApplicationsPerDay
}

// CanMessage reports whether another message fits in today's quota.
func (c *Counters) CanMessage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.messages < c.limits.MaxMessagesPerDay
}

// RecordApplication counts a successfully submitted application.
func (c *Counters) RecordApplication() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	c.applications++
}

// RecordMessage counts a successfully sent message.
func (c *Counters) RecordMessage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	c.messages++
}

// Snapshot returns today's counts alongside the limits.
func (c *Counters) Snapshot() (applications, messages int, limits Limits) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.applications, c.messages, c.limits
}
