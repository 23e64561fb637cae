package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics counts lead economy outcomes.
type LeadMetrics struct {
	unlocks          *prometheus.CounterVec
	creditsSpent     prometheus.Counter
	creditsPurchased prometheus.Counter
	quotes           *prometheus.CounterVec
	quoteDecisions   *prometheus.CounterVec
}

// NewLeadMetrics registers the lead metrics on reg. A nil registerer yields a
// no-op recorder.
func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	if reg == nil {
		return &LeadMetrics{}
	}
	m := &LeadMetrics{
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_unlocks_total",
			Help: "Lead unlock attempts by outcome code.",
		}, []string{"outcome"}),
		creditsSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lead_credits_spent_total",
			Help: "Credits debited for lead unlocks.",
		}),
		creditsPurchased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lead_credits_purchased_total",
			Help: "Credits added through package purchases.",
		}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendor_quotes_total",
			Help: "Quote submissions by outcome code.",
		}, []string{"outcome"}),
		quoteDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendor_quote_decisions_total",
			Help: "Customer decisions on quotes.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.unlocks, m.creditsSpent, m.creditsPurchased, m.quotes, m.quoteDecisions)
	return m
}

// ObserveUnlock records an unlock attempt; spent is added on success.
func (m *LeadMetrics) ObserveUnlock(outcome string, spent int) {
	if m == nil || m.unlocks == nil {
		return
	}
	m.unlocks.WithLabelValues(normalizeLabel(outcome)).Inc()
	if spent > 0 {
		m.creditsSpent.Add(float64(spent))
	}
}

func (m *LeadMetrics) ObservePurchase(credits int) {
	if m == nil || m.creditsPurchased == nil || credits <= 0 {
		return
	}
	m.creditsPurchased.Add(float64(credits))
}

func (m *LeadMetrics) ObserveQuote(outcome string) {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *LeadMetrics) ObserveQuoteDecision(status string) {
	if m == nil || m.quoteDecisions == nil {
		return
	}
	m.quoteDecisions.WithLabelValues(normalizeLabel(status)).Inc()
}
