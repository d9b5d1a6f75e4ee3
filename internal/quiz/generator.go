package quiz

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/i474232898/climate-quest/internal/climate"
)

// DefaultQuestionCount is the number of questions in one round.
const DefaultQuestionCount = 7

// Palette holds the cosmetic option colors.
var Palette = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B",
	"#8B5CF6", "#EC4899", "#14B8A6", "#F97316",
}

// Recorder receives generation metrics.
type Recorder interface {
	QuestionsGenerated(n int)
}

// Option customizes a Generator.
type Option func(*Generator)

// WithQuestionCount overrides the round size.
func WithQuestionCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.count = n
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.metrics = r }
}

// Generator builds question rounds from snapshots. All randomness comes from
// one source so a seeded source reproduces a round exactly. It is safe for
// concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	count   int
	metrics Recorder
}

// NewGenerator returns a Generator drawing from src. A nil src seeds from the
// current time.
func NewGenerator(src rand.Source, opts ...Option) *Generator {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}
	g := &Generator{rng: rand.New(src), count: DefaultQuestionCount}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns min(count, pool size) questions for snap. Question ids
// are 1..n in selection order.
func (g *Generator) Generate(snap climate.Snapshot) []Question {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool := Pool(snap)
	n := min(g.count, len(pool))

	// Partial Fisher-Yates: the first n entries become a uniform sample.
	for i := 0; i < n; i++ {
		j := i + g.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	b := &builder{rng: g.rng}
	out := make([]Question, 0, n)
	for i, f := range pool[:n] {
		out = append(out, f.build(b, i+1, snap))
	}
	if g.metrics != nil {
		g.metrics.QuestionsGenerated(len(out))
	}
	return out
}

// Pool returns the factories eligible for snap. Trend factories join only
// when their series holds at least two samples.
func Pool(snap climate.Snapshot) []Factory {
	pool := make([]Factory, 0, len(baseFactories)+2)
	pool = append(pool, baseFactories...)
	if _, ok := snap.SeriesFor(climate.VarTemperature, 2); ok {
		pool = append(pool, temperatureTrendFactory)
	}
	if _, ok := snap.SeriesFor(climate.VarHumidity, 2); ok {
		pool = append(pool, humidityTrendFactory)
	}
	return pool
}
