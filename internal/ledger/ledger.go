// Package ledger keeps the player's durable running point total.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/climate-quest/internal/logger"
)

// DefaultKey is the storage key of the total.
const DefaultKey = "totalPoints"

// Rank is an explorer tier derived from the total.
type Rank string

const (
	RankCurious   Rank = "curious"
	RankExplorer  Rank = "explorer"
	RankScientist Rank = "scientist"
)

// RankFor maps a point total to its tier.
func RankFor(points int) Rank {
	switch {
	case points < 100:
		return RankCurious
	case points < 300:
		return RankExplorer
	default:
		return RankScientist
	}
}

// Gauge mirrors the total into metrics.
type Gauge interface {
	LedgerPoints(total int)
}

// Option customizes a Ledger.
type Option func(*Ledger)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(lg *Ledger) { lg.log = l }
}

func WithGauge(g Gauge) Option {
	return func(lg *Ledger) { lg.gauge = g }
}

// Ledger is a single shared counter. Every change is persisted before
// subscribers are notified.
type Ledger struct {
	storage Storage
	key     string
	log     *zap.SugaredLogger
	gauge   Gauge

	mu     sync.Mutex
	value  int
	nextID int
	subs   map[int]chan int
}

// New loads the current total from storage. An absent key starts at 0.
func New(ctx context.Context, storage Storage, key string, opts ...Option) (*Ledger, error) {
	if key == "" {
		key = DefaultKey
	}
	l := &Ledger{storage: storage, key: key, subs: make(map[int]chan int)}
	for _, opt := range opts {
		opt(l)
	}
	l.log = logger.OrNop(l.log)

	v, ok, err := storage.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if ok {
		l.value = v
	}
	l.observe()
	return l, nil
}

// Read returns the current total.
func (l *Ledger) Read() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Write overwrites the total.
func (l *Ledger) Write(ctx context.Context, value int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setLocked(ctx, value)
}

// Add applies delta as one read-modify-write step and returns the new total.
func (l *Ledger) Add(ctx context.Context, delta int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.setLocked(ctx, l.value+delta); err != nil {
		return l.value, err
	}
	return l.value, nil
}

// Subscribe returns a channel carrying the latest total after each change,
// primed with the current value. Intermediate values may be skipped for a
// slow reader. The returned func cancels the subscription.
func (l *Ledger) Subscribe() (<-chan int, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan int, 1)
	ch <- l.value
	l.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs, id)
			close(ch)
		})
	}
}

func (l *Ledger) setLocked(ctx context.Context, value int) error {
	if err := l.storage.Save(ctx, l.key, value); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	l.log.Debugw("ledger updated", "from", l.value, "to", value)
	l.value = value
	l.observe()

	for _, ch := range l.subs {
		select {
		case <-ch:
		default:
		}
		ch <- value
	}
	return nil
}

func (l *Ledger) observe() {
	if l.gauge != nil {
		l.gauge.LedgerPoints(l.value)
	}
}
