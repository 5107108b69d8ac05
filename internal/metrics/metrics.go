// Package metrics exposes the epoch manager's Prometheus instrumentation
// (spec §9 design note: "epoch number, validator count, and quorum voting
// power should be exported as metrics"). Grounded on the
// prometheus.NewGaugeVec/NewCounterVec-plus-sync.Once registration idiom
// used for oasis-core's worker committee node metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	epochNumber = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "epochcore_epoch_number",
		Help: "Current epoch number as seen by this node.",
	})
	validatorCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "epochcore_validator_count",
		Help: "Number of validators in the current epoch's committee.",
	})
	quorumVotingPower = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "epochcore_quorum_voting_power",
		Help: "Voting power required to reach Byzantine quorum in the current epoch.",
	})
	epochTransitionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "epochcore_epoch_transitions_total",
		Help: "Number of completed epoch transitions.",
	})
	rejectedMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "epochcore_rejected_messages_total",
		Help: "Number of consensus messages rejected by the message classifier, by reason.",
	}, []string{"reason"})
	timeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "epochcore_pacemaker_timeouts_total",
		Help: "Number of pacemaker round timeouts fired.",
	})

	collectors = []prometheus.Collector{
		epochNumber,
		validatorCount,
		quorumVotingPower,
		epochTransitionsTotal,
		rejectedMessagesTotal,
		timeoutsTotal,
	}

	registerOnce sync.Once
)

// Register registers every epoch-manager collector with reg. Safe to call
// more than once; registration happens at most one time per process.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		for _, c := range collectors {
			reg.MustRegister(c)
		}
	})
}

// SetEpoch records the current epoch number, validator count, and quorum
// voting power, called on every successful epoch transition (spec §4.5).
func SetEpoch(epoch uint64, validators int, quorum uint64) {
	epochNumber.Set(float64(epoch))
	validatorCount.Set(float64(validators))
	quorumVotingPower.Set(float64(quorum))
}

// IncEpochTransition records a completed epoch transition.
func IncEpochTransition() {
	epochTransitionsTotal.Inc()
}

// IncRejectedMessage records a message rejected by the classifier, tagged
// by a short reason label (e.g. "proposal_wrong_epoch").
func IncRejectedMessage(reason string) {
	rejectedMessagesTotal.WithLabelValues(reason).Inc()
}

// IncTimeout records a pacemaker round timeout.
func IncTimeout() {
	timeoutsTotal.Inc()
}
