package blockchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	beaconHeadSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_head_slot",
		Help: "Slot of the head block of the beacon chain",
	})
	beaconFinalizedEpoch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_finalized_epoch",
		Help: "Last finalized epoch of the processed state",
	})
	beaconCurrentJustifiedEpoch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_current_justified_epoch",
		Help: "Current justified epoch of the processed state",
	})
	reorgCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_reorg_total",
		Help: "Count the number of times beacon chain has a reorg",
	})
	deletedBlocksCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_deleted_blocks_total",
		Help: "Count the number of blocks removed from the database by fork choice",
	}, []string{"reason"})
	resyncCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forkchoice_resync_total",
		Help: "Count the number of times the fork choice store was rebuilt from the database",
	})
)
