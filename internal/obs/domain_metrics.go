package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics holds collectors describing evaluation traffic and rule reloads.
type DomainMetrics struct {
	// EvaluationsTotal counts evaluations by store and outcome (ranked, no_rules, no_selection, not_eligible, invalid).
	EvaluationsTotal *prometheus.CounterVec
	// BestMethodTotal counts which combination ranked first.
	BestMethodTotal *prometheus.CounterVec
	// BestBenefit observes the winning total benefit in won.
	BestBenefit *prometheus.HistogramVec
	// CacheLookups counts result cache hits and misses.
	CacheLookups *prometheus.CounterVec
	// RulesReloads counts rule snapshot swaps by source and result.
	RulesReloads *prometheus.CounterVec
	// RulesStores reports the number of stores in the active snapshot.
	RulesStores prometheus.Gauge
}

// NewDomainMetrics registers evaluation collectors under namespace.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Count of discount evaluations by store and outcome.",
		}, []string{"store", "outcome"}),
		BestMethodTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_method_total",
			Help:      "Count of top-ranked payment methods.",
		}, []string{"store", "method"}),
		BestBenefit: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "best_benefit_won",
			Help:      "Total benefit of the top-ranked method in won.",
			Buckets:   []float64{100, 500, 1000, 2000, 5000, 10000, 50000},
		}, []string{"store"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		RulesReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_reloads_total",
			Help:      "Rule snapshot reloads by source and result.",
		}, []string{"source", "result"}),
		RulesStores: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_stores",
			Help:      "Number of stores in the active rule snapshot.",
		}),
	}
	m.EvaluationsTotal = register(reg, m.EvaluationsTotal)
	m.BestMethodTotal = register(reg, m.BestMethodTotal)
	m.BestBenefit = register(reg, m.BestBenefit)
	m.CacheLookups = register(reg, m.CacheLookups)
	m.RulesReloads = register(reg, m.RulesReloads)
	m.RulesStores = register(reg, m.RulesStores)
	return m
}

// UnknownStore labels evaluations whose store id is malformed or matches no
// configured store, keeping the store label bounded by the rule set.
const UnknownStore = "unknown"

// ObserveEvaluation records one evaluation outcome. method and benefit
// describe the top-ranked record and are ignored when method is empty.
func (m *DomainMetrics) ObserveEvaluation(store, outcome, method string, benefit int64) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(store, outcome).Inc()
	if method == "" {
		return
	}
	m.BestMethodTotal.WithLabelValues(store, method).Inc()
	m.BestBenefit.WithLabelValues(store).Observe(float64(benefit))
}

// ObserveCache records a cache hit or miss.
func (m *DomainMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveReload records a snapshot reload attempt.
func (m *DomainMetrics) ObserveReload(source string, stores int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.RulesReloads.WithLabelValues(source, "error").Inc()
		return
	}
	m.RulesReloads.WithLabelValues(source, "ok").Inc()
	m.RulesStores.Set(float64(stores))
}
