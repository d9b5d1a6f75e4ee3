package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrNotFound is returned for an unknown game id.
var ErrNotFound = errors.New("game not found")

// Gauge mirrors the number of live games into metrics.
type Gauge interface {
	GamesActive(n int)
}

// Registry owns the live games.
type Registry struct {
	cfg   Config
	ttl   time.Duration
	gauge Gauge

	mu    sync.RWMutex
	games map[string]*Game
}

// NewRegistry returns an empty Registry. Games idle longer than ttl are
// removed by EvictIdle; ttl <= 0 disables eviction.
func NewRegistry(cfg Config, ttl time.Duration, gauge Gauge) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Registry{cfg: cfg, ttl: ttl, gauge: gauge, games: make(map[string]*Game)}
}

// Create starts a new game.
func (r *Registry) Create() *Game {
	g := New(uuid.NewString(), r.cfg)

	r.mu.Lock()
	r.games[g.ID()] = g
	n := len(r.games)
	r.mu.Unlock()

	r.observe(n)
	return g
}

// Get looks up a game by id.
func (r *Registry) Get(id string) (*Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

// Len returns the number of live games.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// EvictIdle closes and removes games idle longer than the ttl and returns
// how many were removed.
func (r *Registry) EvictIdle() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.cfg.Clock.Now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*Game
	for id, g := range r.games {
		if g.LastActive().Before(cutoff) {
			idle = append(idle, g)
			delete(r.games, id)
		}
	}
	n := len(r.games)
	r.mu.Unlock()

	for _, g := range idle {
		g.Close()
	}
	if len(idle) > 0 {
		r.observe(n)
	}
	return len(idle)
}

// Close closes every game.
func (r *Registry) Close() {
	r.mu.Lock()
	games := r.games
	r.games = make(map[string]*Game)
	r.mu.Unlock()

	for _, g := range games {
		g.Close()
	}
	r.observe(0)
}

func (r *Registry) observe(n int) {
	if r.gauge != nil {
		r.gauge.GamesActive(n)
	}
}
