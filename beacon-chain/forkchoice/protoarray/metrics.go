package protoarray

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	log = logrus.WithField("prefix", "forkchoice-protoarray")

	headSlotNumber = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proto_array_head_slot",
			Help: "The slot number of the current head.",
		},
	)
	nodeCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proto_array_node_count",
			Help: "The number of nodes in the DAG array based store structure.",
		},
	)
	headChangesCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proto_array_head_changed_count",
			Help: "The number of times head changes.",
		},
	)
	calledHeadCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proto_array_head_requested_count",
			Help: "The number of times someone called head.",
		},
	)
	processedBlockCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proto_array_block_processed_count",
			Help: "The number of times a block is processed for fork choice.",
		},
	)
	processedAttestationCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proto_array_attestation_processed_count",
			Help: "The number of times an attestation is processed for fork choice.",
		},
	)
	prunedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proto_array_pruned_count",
			Help: "The number of nodes removed by pruning.",
		},
	)
	invalidatedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proto_array_invalidated_count",
			Help: "The number of nodes marked with an invalid execution payload.",
		},
	)
	poisonedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proto_array_poisoned_count",
			Help: "The number of times the store detected an invariant violation.",
		},
	)
)
