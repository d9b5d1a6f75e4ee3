package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/climate-quest/internal/climate"
	"github.com/i474232898/climate-quest/internal/gesture"
	"github.com/i474232898/climate-quest/internal/ledger"
	"github.com/i474232898/climate-quest/internal/quiz"
	"github.com/i474232898/climate-quest/internal/session"
	"github.com/i474232898/climate-quest/internal/store"
)

type stubProvider struct {
	calls atomic.Int32
	fail  bool
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(context.Context, climate.Query) (*climate.Response, error) {
	p.calls.Add(1)
	if p.fail {
		return nil, errors.New("dial tcp: connection refused")
	}
	return &climate.Response{
		Code: climate.StatusOK,
		Data: &climate.Payload{Parameters: []climate.Parameter{
			{Variable: climate.VarTemperature, Values: map[string]float64{"20250101": 19, "20250102": 22}},
			{Variable: climate.VarHumidity, Values: map[string]float64{"20250102": 55}},
			{Variable: climate.VarWindSpeed, Values: map[string]float64{"20250102": 3}},
			{Variable: climate.VarPressure, Values: map[string]float64{"20250102": 101.3}},
			{Variable: climate.VarSolarRadiation, Values: map[string]float64{"20250102": 18}},
			{Variable: climate.VarMaxTemperature, Values: map[string]float64{"20250102": 25}},
			{Variable: climate.VarMinTemperature, Values: map[string]float64{"20250102": 18}},
		}},
	}, nil
}

type fixture struct {
	fc       *clockwork.FakeClock
	provider *stubProvider
	ledger   *ledger.Ledger
	store    *store.MemoryStore
	cfg      Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clockwork.NewFakeClock()
	l, err := ledger.New(context.Background(), ledger.NewMemoryStorage(), ledger.DefaultKey)
	require.NoError(t, err)

	f := &fixture{fc: fc, provider: &stubProvider{}, ledger: l, store: store.NewMemoryStore(0, 0).WithClock(fc)}
	f.cfg = Config{
		Provider:           f.provider,
		Generator:          quiz.NewGenerator(rand.NewPCG(1, 2)),
		Ledger:             l,
		Store:              f.store,
		Clock:              fc,
		CoordinatorOptions: []climate.Option{climate.WithRetry(0, time.Millisecond)},
	}
	return f
}

func waitFor(t *testing.T, ch <-chan Event, typ EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "subscription closed while waiting for %s", typ)
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func tapAt(g *Game, lat, lng float64) gesture.Result {
	t0 := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	g.HandlePointer(gesture.Event{Kind: gesture.KindDown, Source: gesture.SourceTouch, X: 50, Y: 50, Contacts: 1, At: t0})
	return g.HandlePointer(gesture.Event{
		Kind:     gesture.KindUp,
		Source:   gesture.SourceTouch,
		X:        52,
		Y:        51,
		Contacts: 1,
		At:       t0.Add(80 * time.Millisecond),
		Location: gesture.LatLng{Lat: lat, Lng: lng},
	})
}

func TestGame_TapResolvesIntoQuiz(t *testing.T) {
	f := newFixture(t)
	g := New("g1", f.cfg)
	defer g.Close()
	events, cancel := g.Subscribe()
	defer cancel()

	res := tapAt(g, -12.3856, -76.7812)
	require.True(t, res.Selected)

	sel := waitFor(t, events, EventLocationSelected)
	assert.Equal(t, climate.Location{Lat: -12.3856, Lon: -76.7812}, sel.Data.(LocationPayload).Location)

	f.fc.Advance(climate.DefaultDebounce)

	started := waitFor(t, events, EventFetchStarted)
	assert.Equal(t, climate.MsgLoading, started.Data.(FetchPayload).Message)

	resolved := waitFor(t, events, EventSnapshotResolved)
	assert.Equal(t, 22.0, resolved.Data.(SnapshotPayload).Snapshot.Temperature)

	changed := waitFor(t, events, EventQuestionChanged)
	view := changed.Data.(session.View)
	assert.Equal(t, session.StateActive, view.State)
	assert.Equal(t, quiz.DefaultQuestionCount, view.Total)

	v := g.View()
	require.NotNil(t, v.Snapshot)
	assert.False(t, v.Status.Loading)
	assert.Len(t, f.store.HeatPoints(), 1)
	assert.EqualValues(t, 1, f.provider.calls.Load())
}

func TestGame_CorrectAnswerMovesScore(t *testing.T) {
	f := newFixture(t)
	g := New("g1", f.cfg)
	defer g.Close()
	events, cancel := g.Subscribe()
	defer cancel()

	g.SelectLocation(climate.Location{Lat: 10, Lon: 10})
	f.fc.Advance(climate.DefaultDebounce)
	q := waitFor(t, events, EventQuestionChanged).Data.(session.View).Question
	require.NotNil(t, q)

	fb, err := g.SubmitAnswer(context.Background(), q.CorrectAnswer.ID)
	require.NoError(t, err)
	assert.True(t, fb.Correct)

	// score_changed comes from the ledger forwarder and may precede
	// answer_feedback.
	score := waitFor(t, events, EventScoreChanged).Data.(ScorePayload)
	assert.Equal(t, q.Points, score.Points)
	assert.Equal(t, ledger.RankFor(q.Points), score.Rank)
	assert.Equal(t, q.Points, g.View().Points)

	f.fc.Advance(session.DefaultFeedbackWindow)
	waitFor(t, events, EventFeedbackClosed)
	next := waitFor(t, events, EventQuestionChanged).Data.(session.View)
	assert.Equal(t, 1, next.Cursor)
}

func TestGame_FailureIsSurfaced(t *testing.T) {
	f := newFixture(t)
	f.provider.fail = true
	g := New("g1", f.cfg)
	defer g.Close()
	events, cancel := g.Subscribe()
	defer cancel()

	g.SelectLocation(climate.Location{Lat: 1, Lon: 1})
	f.fc.Advance(climate.DefaultDebounce)

	failed := waitFor(t, events, EventFetchFailed).Data.(FetchPayload)
	assert.Equal(t, climate.MsgFailed, failed.Message)
	assert.False(t, failed.Persistent)

	v := g.View()
	assert.Equal(t, climate.MsgFailed, v.Status.Message)
	assert.Equal(t, session.StateWelcome, v.Session.State)
	assert.Equal(t, 1, v.Request.ConsecutiveErrors)
}

func TestGame_StaleOutcomeIsDiscarded(t *testing.T) {
	f := newFixture(t)
	g := New("g1", f.cfg)
	defer g.Close()

	newer := climate.Snapshot{Location: climate.Location{Lat: 2}, Temperature: 30, Humidity: 50, Pressure: 101, MaxTemp: 31, MinTemp: 20}
	older := climate.Snapshot{Location: climate.Location{Lat: 1}, Temperature: 5, Humidity: 50, Pressure: 101, MaxTemp: 8, MinTemp: 1}

	g.apply(climate.Outcome{Seq: 5, Location: newer.Location, Snapshot: &newer})
	g.apply(climate.Outcome{Seq: 3, Location: older.Location, Snapshot: &older})
	g.apply(climate.Outcome{Seq: 4, Location: older.Location, Err: &climate.ProviderError{Err: errors.New("late")}, Message: climate.MsgFailed})

	v := g.View()
	require.NotNil(t, v.Snapshot)
	assert.Equal(t, 30.0, v.Snapshot.Temperature)
	assert.Empty(t, v.Status.Message)
}

func TestGame_ResetAndClose(t *testing.T) {
	f := newFixture(t)
	g := New("g1", f.cfg)
	events, _ := g.Subscribe()

	g.SelectLocation(climate.Location{Lat: 3, Lon: 3})
	f.fc.Advance(climate.DefaultDebounce)
	waitFor(t, events, EventQuestionChanged)

	v := g.Reset()
	assert.Equal(t, session.StateWelcome, v.State)
	waitFor(t, events, EventSessionReset)

	g.Close()
	g.Close()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

type gaugeRecorder struct{ n atomic.Int32 }

func (g *gaugeRecorder) GamesActive(n int) { g.n.Store(int32(n)) }

func TestRegistry_CreateGetEvict(t *testing.T) {
	f := newFixture(t)
	gauge := &gaugeRecorder{}
	r := NewRegistry(f.cfg, 30*time.Minute, gauge)
	defer r.Close()

	a := r.Create()
	b := r.Create()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.EqualValues(t, 2, gauge.n.Load())

	got, err := r.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	f.fc.Advance(20 * time.Minute)
	b.Skip()
	f.fc.Advance(15 * time.Minute)

	assert.Equal(t, 1, r.EvictIdle())
	assert.Equal(t, 1, r.Len())
	_, err = r.Get(a.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, gauge.n.Load())
}

func TestRegistry_NoTTLKeepsGames(t *testing.T) {
	f := newFixture(t)
	r := NewRegistry(f.cfg, 0, nil)
	r.Create()
	f.fc.Advance(48 * time.Hour)
	assert.Zero(t, r.EvictIdle())
	assert.Equal(t, 1, r.Len())
}
