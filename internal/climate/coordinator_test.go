package climate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays queued results, then keeps returning the last one.
type scriptedProvider struct {
	mu      sync.Mutex
	calls   []Query
	results []func() (*Response, error)
	release chan struct{}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Fetch(ctx context.Context, q Query) (*Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, q)
	idx := len(p.calls) - 1
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	next := p.results[idx]
	release := p.release
	p.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return next()
}

func (p *scriptedProvider) Calls() []Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Query(nil), p.calls...)
}

func okResp() (*Response, error)    { return fullResponse(), nil }
func transport() (*Response, error) { return nil, errors.New("connection reset") }
func badStatus() (*Response, error) { return &Response{Code: 503, Description: "busy"}, nil }

func providerOf(fns ...func() (*Response, error)) *scriptedProvider {
	return &scriptedProvider{results: fns}
}

func fastRetry() Option { return WithRetry(DefaultMaxRetries, 5*time.Millisecond) }

func TestCoordinator_DebounceKeepsLastLocation(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := providerOf(okResp)
	outcomes := make(chan Outcome, 4)
	c := NewCoordinator(p, Hooks{OnOutcome: func(o Outcome) { outcomes <- o }}, WithClock(fc))
	defer c.Close()

	c.Request(Location{Lat: 1, Lon: 1})
	fc.Advance(20 * time.Millisecond)
	c.Request(Location{Lat: 2, Lon: 2})
	fc.Advance(20 * time.Millisecond)
	last := c.Request(Location{Lat: 3, Lon: 3})
	fc.Advance(DefaultDebounce)

	select {
	case out := <-outcomes:
		assert.True(t, out.OK())
		assert.Equal(t, last, out.Seq)
		assert.Equal(t, Location{Lat: 3, Lon: 3}, out.Location)
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
	}

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, Location{Lat: 3, Lon: 3}, calls[0].Location)
	assert.Equal(t, TrailingWindow(fc.Now()), calls[0].Range)
}

func TestCoordinator_RetryThenSuccessResetsErrors(t *testing.T) {
	p := providerOf(transport)
	c := NewCoordinator(p, Hooks{}, fastRetry())
	defer c.Close()

	out, err := c.Fetch(context.Background(), Location{}, nil)
	require.NoError(t, err)
	require.False(t, out.OK())
	assert.Equal(t, 1, c.State().ConsecutiveErrors)

	// Two failures, then success on the last allowed attempt.
	p.mu.Lock()
	p.calls = nil
	p.results = []func() (*Response, error){transport, transport, okResp}
	p.mu.Unlock()

	out, err = c.Fetch(context.Background(), Location{}, nil)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Nil(t, out.Err)
	assert.Len(t, p.Calls(), 3)
	assert.Equal(t, 0, c.State().ConsecutiveErrors)
	assert.False(t, c.InFlight())
}

func TestCoordinator_ExhaustionAndEscalation(t *testing.T) {
	var retries []int
	p := providerOf(transport)
	c := NewCoordinator(p, Hooks{
		OnRetry: func(_ uint64, _ Location, attempt int, _ error) { retries = append(retries, attempt) },
	}, fastRetry())
	defer c.Close()

	for i := 1; i <= 4; i++ {
		out, err := c.Fetch(context.Background(), Location{}, nil)
		require.NoError(t, err)
		require.NotNil(t, out.Err)
		assert.Equal(t, FailureTransport, out.Err.Kind)
		assert.Equal(t, 3, out.Err.Attempts)
		assert.Equal(t, i > 2, out.Err.Persistent, "failure #%d", i)
		if i > 2 {
			assert.Equal(t, MsgPersistentFailure, out.Message)
		} else {
			assert.Equal(t, MsgFailed, out.Message)
		}
	}

	assert.Len(t, p.Calls(), 12)
	assert.Equal(t, []int{1, 2, 1, 2, 1, 2, 1, 2}, retries)
	assert.Equal(t, 4, c.State().ConsecutiveErrors)

	p.mu.Lock()
	p.results = []func() (*Response, error){okResp}
	p.mu.Unlock()
	out, err := c.Fetch(context.Background(), Location{}, nil)
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, 0, c.State().ConsecutiveErrors)
}

func TestCoordinator_LogicalFailureIsRetried(t *testing.T) {
	p := providerOf(badStatus)
	c := NewCoordinator(p, Hooks{}, fastRetry())
	defer c.Close()

	out, err := c.Fetch(context.Background(), Location{}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Err)
	assert.Equal(t, FailureLogical, out.Err.Kind)
	assert.ErrorIs(t, out.Err, ErrBadStatus)
	assert.Len(t, p.Calls(), 3)
}

func TestCoordinator_SingleFlight(t *testing.T) {
	p := providerOf(okResp)
	p.release = make(chan struct{})
	var dropped []uint64
	var mu sync.Mutex
	c := NewCoordinator(p, Hooks{
		OnDropped: func(seq uint64, _ Location) {
			mu.Lock()
			dropped = append(dropped, seq)
			mu.Unlock()
		},
	}, WithDebounce(time.Millisecond))
	defer c.Close()

	done := make(chan Outcome, 1)
	go func() {
		out, _ := c.Fetch(context.Background(), Location{Lat: 1}, nil)
		done <- out
	}()

	require.Eventually(t, c.InFlight, time.Second, time.Millisecond)

	_, err := c.Fetch(context.Background(), Location{Lat: 2}, nil)
	assert.ErrorIs(t, err, ErrBusy)

	seq := c.Request(Location{Lat: 3})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dropped) == 1 && dropped[0] == seq
	}, time.Second, time.Millisecond)

	close(p.release)
	out := <-done
	assert.True(t, out.OK())
	assert.Len(t, p.Calls(), 1)
	assert.False(t, c.InFlight())
}

func TestCoordinator_ExplicitRange(t *testing.T) {
	p := providerOf(okResp)
	c := NewCoordinator(p, Hooks{})
	defer c.Close()

	rng := DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	_, err := c.Fetch(context.Background(), Location{}, &rng)
	require.NoError(t, err)
	assert.Equal(t, rng, p.Calls()[0].Range)
}

func TestCoordinator_CancelledContextStopsRetries(t *testing.T) {
	p := providerOf(transport)
	c := NewCoordinator(p, Hooks{}, WithRetry(5, time.Hour))
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Eventually(t, func() bool { return len(p.Calls()) == 1 }, time.Second, time.Millisecond)
		cancel()
	}()

	out, err := c.Fetch(ctx, Location{}, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Err)
	assert.Equal(t, 1, out.Err.Attempts)
}
