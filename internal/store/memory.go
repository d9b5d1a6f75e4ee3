// Package store keeps resolved climate snapshots for the heatmap.
package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/climate-quest/internal/climate"
)

var (
	// ErrNotFound is returned when no snapshot is stored for a location.
	ErrNotFound = errors.New("no climate snapshot for location")
)

// Heat intensity maps temperatures from heatFloor (0) to heatFloor+heatSpan (1).
const (
	heatFloor = 10.0
	heatSpan  = 25.0
)

// HeatPoint is one heatmap sample.
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity float64 `json:"intensity"`
}

// Intensity projects a temperature onto [0, 1].
func Intensity(temperature float64) float64 {
	v := (temperature - heatFloor) / heatSpan
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

type history struct {
	snapshots []climate.Snapshot
}

// MemoryStore is a concurrency-safe snapshot history per map cell.
type MemoryStore struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	// key: climate.Location.Key()
	data map[string]*history

	maxHistory int           // max snapshots per cell; <= 0 is unlimited
	maxAge     time.Duration // <= 0 disables age retention
}

// NewMemoryStore creates a MemoryStore with optional limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		clock:      clockwork.NewRealClock(),
		data:       make(map[string]*history),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// WithClock replaces the clock used for age retention.
func (s *MemoryStore) WithClock(clock clockwork.Clock) *MemoryStore {
	s.clock = clock
	return s
}

// Save appends a snapshot to its cell and enforces retention.
func (s *MemoryStore) Save(snap climate.Snapshot) {
	key := snap.Location.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.data[key]
	if !ok {
		h = &history{}
		s.data[key] = h
	}
	h.snapshots = append(h.snapshots, snap.Clone())

	if s.maxHistory > 0 && len(h.snapshots) > s.maxHistory {
		over := len(h.snapshots) - s.maxHistory
		h.snapshots = h.snapshots[over:]
	}
	s.pruneLocked(key, h)
}

// Latest returns the newest snapshot stored for loc's cell.
func (s *MemoryStore) Latest(loc climate.Location) (climate.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.data[loc.Key()]
	if !ok || len(h.snapshots) == 0 {
		return climate.Snapshot{}, ErrNotFound
	}
	return h.snapshots[len(h.snapshots)-1].Clone(), nil
}

// HeatPoints projects the newest unexpired snapshot of every cell, ordered
// by latitude then longitude.
func (s *MemoryStore) HeatPoints() []HeatPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := make([]HeatPoint, 0, len(s.data))
	for key, h := range s.data {
		s.pruneLocked(key, h)
		if len(h.snapshots) == 0 {
			continue
		}
		latest := h.snapshots[len(h.snapshots)-1]
		points = append(points, HeatPoint{
			Lat:       latest.Location.Lat,
			Lng:       latest.Location.Lon,
			Intensity: Intensity(latest.Temperature),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Lat != points[j].Lat {
			return points[i].Lat < points[j].Lat
		}
		return points[i].Lng < points[j].Lng
	})
	return points
}

// Len returns the number of cells holding snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) pruneLocked(key string, h *history) {
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(h.snapshots); i++ {
			if !h.snapshots[i].ResolvedAt.Before(cutoff) {
				break
			}
		}
		h.snapshots = h.snapshots[i:]
	}
	if len(h.snapshots) == 0 {
		delete(s.data, key)
	}
}
