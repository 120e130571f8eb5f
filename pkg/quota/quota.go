package quota

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"emmakit/pkg/logger"
	"emmakit/pkg/retry"

	"golang.org/x/sync/singleflight"
)

// Unknown marks a resource the provider does not report a window for.
// Such resources are never considered exhausted.
const Unknown = -1

const (
	defaultMargin = 5 * time.Second
	// fallbackWindow is assumed when the provider signals a rate limit without a reset time.
	fallbackWindow = 15 * time.Minute
)

// Quota is the remaining request budget for one resource path
type Quota struct {
	Resource  string
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Exhausted reports whether no calls remain in the current window
func (q Quota) Exhausted() bool {
	return q.Remaining == 0
}

// Fetcher reads quota state from the provider, grouped by resource family
type Fetcher interface {
	FetchQuotas(ctx context.Context, families []string) (map[string]Quota, error)
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Tracker keeps per-resource quota for one client.
// Quotas are fetched lazily per family and replaced wholesale on refresh.
type Tracker struct {
	fetcher Fetcher
	logger  logger.Logger
	sleep   SleepFunc
	now     func() time.Time
	margin  time.Duration

	mu     sync.Mutex
	quotas map[string]Quota
	gates  map[string]*sync.Mutex

	group singleflight.Group
}

// Option configures a Tracker
type Option func(*Tracker)

// WithSleep replaces the wait function (tests use it to avoid real sleeps)
func WithSleep(sleep SleepFunc) Option {
	return func(t *Tracker) { t.sleep = sleep }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMargin sets the extra time waited past a reported reset
func WithMargin(d time.Duration) Option {
	return func(t *Tracker) { t.margin = d }
}

// WithLogger sets the logger used for wait notices
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker that refreshes through fetcher
func NewTracker(fetcher Fetcher, opts ...Option) *Tracker {
	t := &Tracker{
		fetcher: fetcher,
		sleep:   retry.Wait,
		now:     time.Now,
		margin:  defaultMargin,
		quotas:  make(map[string]Quota),
		gates:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logger.OrGlobal(t.logger)
	return t
}

// Family returns the resource family a path belongs to, e.g. "/followers/ids" -> "followers"
func Family(resource string) string {
	trimmed := strings.TrimPrefix(resource, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// Get returns the quota for resource, fetching its family on first use
func (t *Tracker) Get(ctx context.Context, resource string) (Quota, error) {
	if q, ok := t.lookup(resource); ok {
		return q, nil
	}

	if err := t.refresh(ctx, Family(resource)); err != nil {
		return Quota{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.quotas[resource]
	if !ok {
		q = Quota{Resource: resource, Remaining: Unknown}
		t.quotas[resource] = q
	}
	return q, nil
}

// Consume records one successful call against resource
func (t *Tracker) Consume(resource string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.quotas[resource]
	if !ok || q.Remaining <= 0 {
		return
	}
	q.Remaining--
	t.quotas[resource] = q
}

// IsExhausted reports whether a known resource has no calls left
func (t *Tracker) IsExhausted(resource string) bool {
	q, ok := t.lookup(resource)
	return ok && q.Exhausted()
}

// MarkExhausted records a provider-signalled rate limit.
// A zero or already passed resetAt keeps a still-future known reset or
// assumes a full window.
func (t *Tracker) MarkExhausted(resource string, resetAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.quotas[resource]
	q.Resource = resource
	q.Remaining = 0
	switch {
	case resetAt.After(t.now()):
		q.ResetAt = resetAt
	case !q.ResetAt.After(t.now()):
		q.ResetAt = t.now().Add(fallbackWindow)
	}
	t.quotas[resource] = q
}

// Invalidate drops resource so the next Get re-fetches it
func (t *Tracker) Invalidate(resource string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.quotas, resource)
}

// Await blocks while resource is exhausted: it sleeps until the reported
// reset plus the margin, then refreshes from the provider. Concurrent
// callers for the same resource are serialised.
func (t *Tracker) Await(ctx context.Context, resource string) error {
	gate := t.gate(resource)
	gate.Lock()
	defer gate.Unlock()

	q, err := t.Get(ctx, resource)
	if err != nil {
		return err
	}

	for q.Exhausted() {
		wait := q.ResetAt.Sub(t.now()) + t.margin
		if wait < t.margin {
			wait = t.margin
		}

		logger.LogRateLimit(t.logger, resource, wait)
		if err := t.sleep(ctx, wait); err != nil {
			return fmt.Errorf("waiting for %s quota: %w", resource, err)
		}

		if err := t.refresh(ctx, Family(resource)); err != nil {
			return err
		}
		if q, err = t.Get(ctx, resource); err != nil {
			return err
		}
	}

	return nil
}

// Snapshot returns a copy of all known quotas
func (t *Tracker) Snapshot() map[string]Quota {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Quota, len(t.quotas))
	for k, v := range t.quotas {
		out[k] = v
	}
	return out
}

func (t *Tracker) lookup(resource string) (Quota, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.quotas[resource]
	return q, ok
}

func (t *Tracker) gate(resource string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gates[resource]
	if !ok {
		g = &sync.Mutex{}
		t.gates[resource] = g
	}
	return g
}

// refresh replaces every quota of family with the provider's current view
func (t *Tracker) refresh(ctx context.Context, family string) error {
	_, err, _ := t.group.Do(family, func() (interface{}, error) {
		fetched, err := t.fetcher.FetchQuotas(ctx, []string{family})
		if err != nil {
			return nil, fmt.Errorf("refreshing %s quotas: %w", family, err)
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		for resource := range t.quotas {
			if Family(resource) == family {
				delete(t.quotas, resource)
			}
		}
		for resource, q := range fetched {
			q.Resource = resource
			t.quotas[resource] = q
		}
		return nil, nil
	})
	return err
}
