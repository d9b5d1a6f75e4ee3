package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct{ *MemoryStorage }

func (failingStorage) Save(context.Context, string, int) error { return errors.New("read-only") }

type lastGauge struct{ v int }

func (g *lastGauge) LedgerPoints(total int) { g.v = total }

func TestLedger_StartsAtZero(t *testing.T) {
	l, err := New(context.Background(), NewMemoryStorage(), "")
	require.NoError(t, err)
	assert.Zero(t, l.Read())
}

func TestLedger_LoadsExistingTotal(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Save(context.Background(), "score", 120))

	l, err := New(context.Background(), s, "score")
	require.NoError(t, err)
	assert.Equal(t, 120, l.Read())
}

func TestLedger_AddPersistsEveryChange(t *testing.T) {
	s := NewMemoryStorage()
	g := &lastGauge{}
	l, err := New(context.Background(), s, DefaultKey, WithGauge(g))
	require.NoError(t, err)

	total, err := l.Add(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, 15, total)

	stored, ok, err := s.Load(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 15, stored)
	assert.Equal(t, 15, g.v)

	require.NoError(t, l.Write(context.Background(), 3))
	assert.Equal(t, 3, l.Read())
}

func TestLedger_ConcurrentAddsAreAtomic(t *testing.T) {
	l, err := New(context.Background(), NewMemoryStorage(), DefaultKey)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Add(context.Background(), 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 500, l.Read())
}

func TestLedger_FailedSaveKeepsValue(t *testing.T) {
	l, err := New(context.Background(), failingStorage{NewMemoryStorage()}, DefaultKey)
	require.NoError(t, err)

	total, err := l.Add(context.Background(), 10)
	require.Error(t, err)
	assert.Zero(t, total)
	assert.Zero(t, l.Read())
}

func TestLedger_SubscribeSeesLatest(t *testing.T) {
	l, err := New(context.Background(), NewMemoryStorage(), DefaultKey)
	require.NoError(t, err)

	ch, cancel := l.Subscribe()
	assert.Equal(t, 0, <-ch)

	_, err = l.Add(context.Background(), 10)
	require.NoError(t, err)
	_, err = l.Add(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 30, <-ch)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)

	_, err = l.Add(context.Background(), 1)
	require.NoError(t, err)
}

func TestRankFor(t *testing.T) {
	assert.Equal(t, RankCurious, RankFor(0))
	assert.Equal(t, RankCurious, RankFor(99))
	assert.Equal(t, RankExplorer, RankFor(100))
	assert.Equal(t, RankExplorer, RankFor(250))
	assert.Equal(t, RankScientist, RankFor(300))
}

func TestFileStorage_RoundTripAndMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.yaml")
	s := NewFileStorage(path)

	_, ok, err := s.Load(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(context.Background(), DefaultKey, 85))
	require.NoError(t, s.Save(context.Background(), "other", 1))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "totalPoints: 85")

	l, err := New(context.Background(), NewFileStorage(path), DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, 85, l.Read())
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("totalPoints: [oops"), 0o644))

	_, err := New(context.Background(), NewFileStorage(path), DefaultKey)
	assert.Error(t, err)
}
