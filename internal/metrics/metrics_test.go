package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ProviderAttempt("ok")
	m.ProviderAttempt("transport_error")
	m.ProviderAttempt("transport_error")
	m.FetchOutcome("success")
	m.QuestionsGenerated(7)
	m.Answer("correct")
	m.LedgerPoints(135)
	m.GamesActive(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.providerAttempts.WithLabelValues("transport_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchOutcomes.WithLabelValues("success")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.questionsGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.answers.WithLabelValues("correct")))
	assert.Equal(t, 135.0, testutil.ToFloat64(m.ledgerPoints))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.gamesActive))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}
