package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// VoteMetrics captures vote-casting outcomes.
type VoteMetrics struct {
	votesCast     *prometheus.CounterVec
	voteRejected  *prometheus.CounterVec
	ordersCreated *prometheus.CounterVec
}

func NewVoteMetrics() *VoteMetrics {
	return newVoteMetrics(prometheus.DefaultRegisterer)
}

func newVoteMetrics(registerer prometheus.Registerer) *VoteMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	votesCast := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stagevote_votes_cast_total",
		Help: "Votes recorded, by vote type and voter kind.",
	}, []string{"vote_type", "voter_kind"})
	voteRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stagevote_votes_rejected_total",
		Help: "Vote attempts rejected by the eligibility rules, by reason.",
	}, []string{"reason"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stagevote_vote_orders_total",
		Help: "Vote orders by payment status transition.",
	}, []string{"status"})

	registerer.MustRegister(votesCast, voteRejected, ordersCreated)

	return &VoteMetrics{
		votesCast:     votesCast,
		voteRejected:  voteRejected,
		ordersCreated: ordersCreated,
	}
}

func (m *VoteMetrics) RecordVoteCast(voteType, voterKind string) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(normalizeLabel(voteType), normalizeLabel(voterKind)).Inc()
}

func (m *VoteMetrics) RecordVoteRejected(reason string) {
	if m == nil {
		return
	}
	m.voteRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *VoteMetrics) RecordOrderTransition(status string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "unknown"
	}
	return value
}
