// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the recorder interfaces of the climate, quiz, session
// and ledger packages.
type Metrics struct {
	providerAttempts   *prometheus.CounterVec
	fetchOutcomes      *prometheus.CounterVec
	questionsGenerated prometheus.Counter
	answers            *prometheus.CounterVec
	ledgerPoints       prometheus.Gauge
	gamesActive        prometheus.Gauge
}

// New registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		providerAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "climate_provider_attempts_total",
			Help: "Climate provider attempts by result.",
		}, []string{"result"}),
		fetchOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "climate_fetch_outcomes_total",
			Help: "Terminal climate fetch outcomes by result.",
		}, []string{"result"}),
		questionsGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "quiz_questions_generated_total",
			Help: "Quiz questions generated.",
		}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_total",
			Help: "Quiz answers by result.",
		}, []string{"result"}),
		ledgerPoints: f.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_points",
			Help: "Current points ledger total.",
		}),
		gamesActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "games_active",
			Help: "Live games in the registry.",
		}),
	}
}

func (m *Metrics) ProviderAttempt(result string) { m.providerAttempts.WithLabelValues(result).Inc() }
func (m *Metrics) FetchOutcome(result string)    { m.fetchOutcomes.WithLabelValues(result).Inc() }
func (m *Metrics) QuestionsGenerated(n int)      { m.questionsGenerated.Add(float64(n)) }
func (m *Metrics) Answer(result string)          { m.answers.WithLabelValues(result).Inc() }
func (m *Metrics) LedgerPoints(total int)        { m.ledgerPoints.Set(float64(total)) }
func (m *Metrics) GamesActive(n int)             { m.gamesActive.Set(float64(n)) }
