// Package metrics exposes Prometheus counters for transfer flows. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "disperser"

const (
	// FlowDisperse labels observations made by the dispersal flow.
	FlowDisperse = "disperse"

	// FlowCollect labels observations made by the collection flow.
	FlowCollect = "collect"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

const (
	StatusSucceeded = "succeeded"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Metrics holds the counters shared by the transfer flows.
type Metrics struct {
	submissions *prometheus.CounterVec
	retries     *prometheus.CounterVec
	wallets     *prometheus.CounterVec
}

// New creates the counters and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Transactions taken through submission, by final outcome.",
		}, []string{"flow", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_retries_total",
			Help:      "Submission attempts beyond the first.",
		}, []string{"flow"}),
		wallets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallets_total",
			Help:      "Wallets processed, by result.",
		}, []string{"flow", "status"}),
	}

	if reg == nil {
		return m, nil
	}

	collectors := []prometheus.Collector{
		m.submissions, m.retries, m.wallets,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveSubmission records the final outcome of one submission.
func (m *Metrics) ObserveSubmission(flow string, failed bool) {
	if m == nil {
		return
	}

	outcome := OutcomeSucceeded
	if failed {
		outcome = OutcomeFailed
	}
	m.submissions.WithLabelValues(flow, outcome).Inc()
}

// ObserveRetry records one retried submission attempt.
func (m *Metrics) ObserveRetry(flow string) {
	if m == nil {
		return
	}

	m.retries.WithLabelValues(flow).Inc()
}

// ObserveWallet records the result for one wallet.
func (m *Metrics) ObserveWallet(flow, status string) {
	if m == nil {
		return
	}

	m.wallets.WithLabelValues(flow, status).Inc()
}
