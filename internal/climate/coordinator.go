package climate

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/climate-quest/internal/logger"
)

// User-facing status messages.
const (
	MsgLoading           = "Loading climate data..."
	MsgRetrying          = "Could not fetch climate data, retrying..."
	MsgFailed            = "Error fetching climate data."
	MsgPersistentFailure = "Error fetching climate data. Try another location or wait a moment."
)

const (
	DefaultDebounce        = 100 * time.Millisecond
	DefaultRetryDelay      = 1 * time.Second
	DefaultMaxRetries      = 2
	DefaultPersistentAfter = 2
)

// Outcome is the typed result of one dispatched fetch. Exactly one of
// Snapshot and Err is set.
type Outcome struct {
	Seq      uint64
	Location Location
	Snapshot *Snapshot
	Err      *ProviderError
	Message  string
}

// OK reports whether the fetch produced a snapshot.
func (o Outcome) OK() bool {
	return o.Snapshot != nil
}

// Hooks receive coordinator progress. Any field may be nil. Hooks run on the
// fetching goroutine and must not call back into Fetch.
type Hooks struct {
	OnStart   func(seq uint64, loc Location)
	OnRetry   func(seq uint64, loc Location, attempt int, err error)
	OnOutcome func(Outcome)
	OnDropped func(seq uint64, loc Location)
}

// Recorder receives fetch metrics.
type Recorder interface {
	ProviderAttempt(result string)
	FetchOutcome(result string)
}

type nopRecorder struct{}

func (nopRecorder) ProviderAttempt(string) {}
func (nopRecorder) FetchOutcome(string)    {}

// RequestState is the coordinator's view of its own traffic.
type RequestState struct {
	InFlight          bool `json:"inFlight"`
	ConsecutiveErrors int  `json:"consecutiveErrors"`
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Coordinator) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// WithPersistentAfter sets how many consecutive terminal failures are
// tolerated before outcomes are flagged persistent.
func WithPersistentAfter(n int) Option {
	return func(c *Coordinator) { c.persistentAfter = n }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.metrics = r }
}

// Coordinator turns selected locations into at most one outstanding
// provider fetch. Requests are debounced, a request arriving while a fetch
// runs is dropped, failed attempts are retried after a fixed delay, and
// terminal failures are counted for escalation.
type Coordinator struct {
	provider        Provider
	hooks           Hooks
	clock           clockwork.Clock
	debounce        time.Duration
	retryDelay      time.Duration
	maxRetries      int
	persistentAfter int
	log             *zap.SugaredLogger
	metrics         Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mu                sync.Mutex
	seq               uint64
	timer             clockwork.Timer
	inFlight          bool
	consecutiveErrors int
}

// NewCoordinator builds a Coordinator for provider.
func NewCoordinator(provider Provider, hooks Hooks, opts ...Option) *Coordinator {
	c := &Coordinator{
		provider:        provider,
		hooks:           hooks,
		clock:           clockwork.NewRealClock(),
		debounce:        DefaultDebounce,
		retryDelay:      DefaultRetryDelay,
		maxRetries:      DefaultMaxRetries,
		persistentAfter: DefaultPersistentAfter,
		metrics:         nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrNop(c.log)
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// InFlight reports whether a provider fetch is running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// State returns a copy of the request state.
func (c *Coordinator) State() RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RequestState{InFlight: c.inFlight, ConsecutiveErrors: c.consecutiveErrors}
}

// Request schedules a fetch for loc after the debounce window. A later
// Request inside the window replaces this one. The outcome is delivered to
// Hooks.OnOutcome. The returned sequence number identifies the request.
func (c *Coordinator) Request(loc Location) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	seq := c.seq
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.debounce, func() { c.dispatch(seq, loc) })
	return seq
}

// Fetch runs a fetch immediately, bypassing the debounce window. rng may be
// nil for the trailing default window. It returns ErrBusy when another fetch
// is running.
func (c *Coordinator) Fetch(ctx context.Context, loc Location, rng *DateRange) (Outcome, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	q := Query{Location: loc}
	if rng != nil {
		q.Range = *rng
	} else {
		q.Range = TrailingWindow(c.clock.Now())
	}
	return c.run(ctx, seq, q)
}

// Close cancels a pending debounced request and any retry wait.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.cancel()
}

func (c *Coordinator) dispatch(seq uint64, loc Location) {
	c.mu.Lock()
	superseded := seq != c.seq
	c.mu.Unlock()
	if superseded {
		return
	}

	out, err := c.run(c.ctx, seq, Query{Location: loc, Range: TrailingWindow(c.clock.Now())})
	if err != nil {
		c.log.Infow("dropping location request while fetch in flight", "seq", seq, "location", loc.Key())
		if c.hooks.OnDropped != nil {
			c.hooks.OnDropped(seq, loc)
		}
		return
	}
	if c.hooks.OnOutcome != nil {
		c.hooks.OnOutcome(out)
	}
}

func (c *Coordinator) run(ctx context.Context, seq uint64, q Query) (Outcome, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	if c.hooks.OnStart != nil {
		c.hooks.OnStart(seq, q.Location)
	}

	attempts := 1 + c.maxRetries
	var (
		lastErr error
		attempt int
	)
	for attempt = 1; ; attempt++ {
		snap, err := c.attempt(ctx, q)
		if err == nil {
			c.mu.Lock()
			c.consecutiveErrors = 0
			c.mu.Unlock()
			c.metrics.FetchOutcome("success")
			c.log.Debugw("climate snapshot resolved", "seq", seq, "location", q.Location.Key(), "attempts", attempt)
			return Outcome{Seq: seq, Location: q.Location, Snapshot: &snap}, nil
		}

		lastErr = err
		c.log.Warnw("climate fetch attempt failed", "seq", seq, "location", q.Location.Key(), "attempt", attempt, "error", err)
		if attempt >= attempts || ctx.Err() != nil {
			break
		}
		if c.hooks.OnRetry != nil {
			c.hooks.OnRetry(seq, q.Location, attempt, err)
		}
		if !c.wait(ctx) {
			break
		}
	}

	c.mu.Lock()
	c.consecutiveErrors++
	persistent := c.consecutiveErrors > c.persistentAfter
	c.mu.Unlock()

	c.metrics.FetchOutcome("failure")
	msg := MsgFailed
	if persistent {
		msg = MsgPersistentFailure
	}
	return Outcome{
		Seq:      seq,
		Location: q.Location,
		Err: &ProviderError{
			Kind:       classify(lastErr),
			Attempts:   attempt,
			Persistent: persistent,
			Err:        lastErr,
		},
		Message: msg,
	}, nil
}

func (c *Coordinator) attempt(ctx context.Context, q Query) (Snapshot, error) {
	resp, err := c.provider.Fetch(ctx, q)
	if err != nil {
		c.metrics.ProviderAttempt("transport_error")
		return Snapshot{}, err
	}
	snap, err := Normalize(q.Location, resp, c.clock.Now())
	if err != nil {
		c.metrics.ProviderAttempt("logical_error")
		return Snapshot{}, err
	}
	c.metrics.ProviderAttempt("ok")
	return snap, nil
}

func (c *Coordinator) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(c.retryDelay):
		return true
	}
}
