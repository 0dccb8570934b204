package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Settlement agrupa os coletores da liquidação
type Settlement struct {
	WagersSettled  *prometheus.CounterVec
	LedgerFailures prometheus.Counter
	PassesSkipped  prometheus.Counter
	PassDuration   prometheus.Histogram
	Consumed       prometheus.Counter
	ConsumerErrors *prometheus.CounterVec
}

// NewSettlement cria e registra os coletores em reg
func NewSettlement(reg prometheus.Registerer) *Settlement {
	m := &Settlement{
		WagersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_wagers_settled_total", Help: "apostas levadas a estado terminal",
		}, []string{"status"}),
		LedgerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_ledger_failures_total", Help: "créditos de saldo que falharam",
		}),
		PassesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_passes_skipped_total", Help: "passadas ignoradas por resolução em andamento",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "settlement_pass_duration_seconds", Help: "duração de uma passada de resolução",
			Buckets: prometheus.DefBuckets,
		}),
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_consumer_messages_total", Help: "mensagens match_finished consumidas",
		}),
		ConsumerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_consumer_errors_total", Help: "erros do consumer por estágio",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.WagersSettled, m.LedgerFailures, m.PassesSkipped, m.PassDuration, m.Consumed, m.ConsumerErrors)
	return m
}

func (m *Settlement) Settled(status string)       { m.WagersSettled.WithLabelValues(status).Inc() }
func (m *Settlement) CreditFailed()               { m.LedgerFailures.Inc() }
func (m *Settlement) Skipped()                    { m.PassesSkipped.Inc() }
func (m *Settlement) ObservePass(d time.Duration) { m.PassDuration.Observe(d.Seconds()) }
func (m *Settlement) MessageConsumed()            { m.Consumed.Inc() }
func (m *Settlement) ConsumerError(stage string)  { m.ConsumerErrors.WithLabelValues(stage).Inc() }
