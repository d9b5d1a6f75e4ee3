// Package game hosts one player's map quiz: gestures select a location, the
// coordinator resolves its climate, the generator builds a round and the
// session machine steps through it.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/climate-quest/internal/climate"
	"github.com/i474232898/climate-quest/internal/gesture"
	"github.com/i474232898/climate-quest/internal/ledger"
	"github.com/i474232898/climate-quest/internal/logger"
	"github.com/i474232898/climate-quest/internal/quiz"
	"github.com/i474232898/climate-quest/internal/session"
	"github.com/i474232898/climate-quest/internal/store"
)

// subscriberBuffer is the per-subscriber event backlog.
const subscriberBuffer = 64

// Config holds the collaborators shared by all games.
type Config struct {
	Provider  climate.Provider
	Generator *quiz.Generator
	Ledger    *ledger.Ledger
	Store     *store.MemoryStore // optional
	Clock     clockwork.Clock
	Logger    *zap.SugaredLogger

	CoordinatorOptions []climate.Option
	SessionOptions     []session.Option
	GestureOptions     []gesture.Option
}

// Status is the latest fetch progress shown to the player.
type Status struct {
	Loading    bool              `json:"loading"`
	Message    string            `json:"message,omitempty"`
	Persistent bool              `json:"persistent,omitempty"`
	Location   *climate.Location `json:"location,omitempty"`
}

// View is the full game state for presentation.
type View struct {
	ID       string               `json:"id"`
	Session  session.View         `json:"session"`
	Request  climate.RequestState `json:"request"`
	Status   Status               `json:"status"`
	Snapshot *climate.Snapshot    `json:"snapshot,omitempty"`
	Points   int                  `json:"points"`
	Rank     ledger.Rank          `json:"rank"`
}

// Game is one player's pipeline.
type Game struct {
	id    string
	cfg   Config
	clock clockwork.Clock
	log   *zap.SugaredLogger

	classifier  *gesture.Classifier
	coordinator *climate.Coordinator
	machine     *session.Machine

	gestureMu sync.Mutex

	mu         sync.Mutex
	applied    uint64
	status     Status
	snapshot   *climate.Snapshot
	lastActive time.Time

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool

	stopScore func()
	closeOnce sync.Once
}

// New builds a Game and starts forwarding ledger changes to subscribers.
func New(id string, cfg Config) *Game {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	g := &Game{
		id:    id,
		cfg:   cfg,
		clock: cfg.Clock,
		log:   logger.OrNop(cfg.Logger).With("game", id),
		subs:  make(map[int]chan Event),
	}
	g.lastActive = g.clock.Now()

	coordOpts := append([]climate.Option{
		climate.WithClock(cfg.Clock),
		climate.WithLogger(g.log.Named("coordinator")),
	}, cfg.CoordinatorOptions...)
	g.coordinator = climate.NewCoordinator(cfg.Provider, climate.Hooks{
		OnStart:   g.onFetchStart,
		OnRetry:   g.onFetchRetry,
		OnOutcome: g.apply,
		OnDropped: func(seq uint64, loc climate.Location) {
			g.log.Debugw("location request dropped", "seq", seq, "location", loc.Key())
		},
	}, coordOpts...)

	g.classifier = gesture.New(g.coordinator, cfg.GestureOptions...)

	sessOpts := append([]session.Option{
		session.WithClock(cfg.Clock),
		session.WithLogger(g.log.Named("session")),
		session.WithHooks(session.Hooks{
			OnQuestion:       func(v session.View) { g.publish(EventQuestionChanged, v) },
			OnFeedback:       func(fb session.Feedback, _ session.View) { g.publish(EventAnswerFeedback, fb) },
			OnFeedbackClosed: func(v session.View) { g.publish(EventFeedbackClosed, v) },
			OnCompleted:      func(v session.View) { g.publish(EventSessionCompleted, v) },
			OnReset:          func(v session.View) { g.publish(EventSessionReset, v) },
		}),
	}, cfg.SessionOptions...)
	g.machine = session.New(cfg.Ledger, sessOpts...)

	g.stopScore = g.forwardScore()
	return g
}

// ID returns the game id.
func (g *Game) ID() string { return g.id }

// HandlePointer classifies one pointer event and requests the tapped
// location when the gesture resolves to a selection.
func (g *Game) HandlePointer(ev gesture.Event) gesture.Result {
	g.touch()
	g.gestureMu.Lock()
	res := g.classifier.Handle(ev)
	g.gestureMu.Unlock()

	if res.Selected {
		g.SelectLocation(climate.Location{Lat: res.Location.Lat, Lon: res.Location.Lng})
	}
	return res
}

// SelectLocation requests loc through the debounced, single-flight
// coordinator and returns the request's sequence number.
func (g *Game) SelectLocation(loc climate.Location) uint64 {
	g.touch()
	seq := g.coordinator.Request(loc)
	g.publish(EventLocationSelected, LocationPayload{Seq: seq, Location: loc})
	return seq
}

// SubmitAnswer grades an answer for the current question.
func (g *Game) SubmitAnswer(ctx context.Context, answerID int) (session.Feedback, error) {
	g.touch()
	return g.machine.SubmitAnswer(ctx, answerID)
}

// Skip advances past the current question.
func (g *Game) Skip() (session.View, error) {
	g.touch()
	return g.machine.Skip()
}

// Reset returns the session to its welcome state.
func (g *Game) Reset() session.View {
	g.touch()
	g.mu.Lock()
	g.status = Status{}
	g.mu.Unlock()
	return g.machine.Reset()
}

// View returns the current game state.
func (g *Game) View() View {
	g.mu.Lock()
	status := g.status
	var snap *climate.Snapshot
	if g.snapshot != nil {
		c := g.snapshot.Clone()
		snap = &c
	}
	g.mu.Unlock()

	points := g.cfg.Ledger.Read()
	return View{
		ID:       g.id,
		Session:  g.machine.View(),
		Request:  g.coordinator.State(),
		Status:   status,
		Snapshot: snap,
		Points:   points,
		Rank:     ledger.RankFor(points),
	}
}

// Subscribe returns a channel of presentation events. Events are dropped
// for a subscriber whose buffer is full. The returned func cancels the
// subscription. Subscribing to a closed game yields a closed channel.
func (g *Game) Subscribe() (<-chan Event, func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if g.closed {
		close(ch)
		return ch, func() {}
	}
	id := g.nextID
	g.nextID++
	g.subs[id] = ch

	return ch, func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		if c, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(c)
		}
	}
}

// LastActive returns the time of the last player action.
func (g *Game) LastActive() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActive
}

// Close stops timers and ends all subscriptions.
func (g *Game) Close() {
	g.closeOnce.Do(func() {
		g.coordinator.Close()
		g.machine.Reset()
		g.stopScore()

		g.subMu.Lock()
		defer g.subMu.Unlock()
		g.closed = true
		for id, ch := range g.subs {
			delete(g.subs, id)
			close(ch)
		}
	})
}

func (g *Game) onFetchStart(seq uint64, loc climate.Location) {
	g.mu.Lock()
	g.status = Status{Loading: true, Message: climate.MsgLoading, Location: &loc}
	g.mu.Unlock()
	g.publish(EventFetchStarted, FetchPayload{Seq: seq, Location: loc, Message: climate.MsgLoading})
}

func (g *Game) onFetchRetry(seq uint64, loc climate.Location, attempt int, _ error) {
	g.mu.Lock()
	g.status = Status{Loading: true, Message: climate.MsgRetrying, Location: &loc}
	g.mu.Unlock()
	g.publish(EventFetchRetrying, FetchPayload{Seq: seq, Location: loc, Attempt: attempt, Message: climate.MsgRetrying})
}

// apply installs an outcome unless a newer one was already applied.
func (g *Game) apply(out climate.Outcome) {
	g.mu.Lock()
	if out.Seq <= g.applied {
		g.mu.Unlock()
		g.log.Debugw("discarding stale outcome", "seq", out.Seq, "applied", g.applied)
		return
	}
	g.applied = out.Seq
	loc := out.Location

	if !out.OK() {
		g.status = Status{Message: out.Message, Persistent: out.Err.Persistent, Location: &loc}
		g.mu.Unlock()
		g.log.Warnw("climate fetch failed", "seq", out.Seq, "location", loc.Key(), "persistent", out.Err.Persistent, "error", out.Err)
		g.publish(EventFetchFailed, FetchPayload{
			Seq:        out.Seq,
			Location:   loc,
			Attempt:    out.Err.Attempts,
			Message:    out.Message,
			Persistent: out.Err.Persistent,
		})
		return
	}

	snap := out.Snapshot.Clone()
	g.snapshot = &snap
	g.status = Status{Location: &loc}
	g.mu.Unlock()

	if g.cfg.Store != nil {
		g.cfg.Store.Save(snap)
	}
	g.publish(EventSnapshotResolved, SnapshotPayload{Seq: out.Seq, Snapshot: snap.Clone()})
	g.machine.Load(g.cfg.Generator.Generate(snap))
}

func (g *Game) forwardScore() func() {
	ch, cancel := g.cfg.Ledger.Subscribe()
	<-ch // primed with the current total
	go func() {
		for points := range ch {
			g.publish(EventScoreChanged, ScorePayload{Points: points, Rank: ledger.RankFor(points)})
		}
	}()
	return cancel
}

func (g *Game) publish(t EventType, data any) {
	ev := Event{Type: t, At: g.clock.Now(), Data: data}

	g.subMu.Lock()
	defer g.subMu.Unlock()
	for _, ch := range g.subs {
		select {
		case ch <- ev:
		default:
			g.log.Debugw("subscriber backlog full, dropping event", "type", t)
		}
	}
}

func (g *Game) touch() {
	g.mu.Lock()
	g.lastActive = g.clock.Now()
	g.mu.Unlock()
}
