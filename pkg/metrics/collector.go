// Package metrics exposes the indexer's runtime state as Prometheus
// collectors, the ambient observability stack the distilled spec doesn't
// mention but every long-running service in this codebase's family carries.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector bundles every metric the indexer publishes. Registered once at
// startup; pkg/indexer holds a reference and updates it inline as it
// processes blocks, the way the teacher's RPC status endpoint reads live
// chain/mempool/peer state rather than polling.
type Collector struct {
	ReorgsTotal          *prometheus.CounterVec
	ReorgDepth           *prometheus.HistogramVec
	ConfirmedBlocksTotal *prometheus.CounterVec
	OrphansPending       *prometheus.GaugeVec
	SegmentsLive         *prometheus.GaugeVec
	LockContentionTotal  prometheus.Counter
	BlocksProcessedTotal *prometheus.CounterVec
}

// NewCollector builds a Collector with every metric registered against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ReorgsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chrondx",
			Subsystem: "indexer",
			Name:      "reorgs_total",
			Help:      "Number of canonical-tip reorganizations observed, by chain.",
		}, []string{"chain"}),
		ReorgDepth: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chrondx",
			Subsystem: "indexer",
			Name:      "reorg_depth_blocks",
			Help:      "Number of blocks rolled back per reorg, by chain.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"chain"}),
		ConfirmedBlocksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chrondx",
			Subsystem: "indexer",
			Name:      "confirmed_blocks_total",
			Help:      "Number of blocks promoted past the finality depth, by chain.",
		}, []string{"chain"}),
		OrphansPending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chrondx",
			Subsystem: "indexer",
			Name:      "orphans_pending",
			Help:      "Number of blocks currently waiting on a missing parent, by chain.",
		}, []string{"chain"}),
		SegmentsLive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chrondx",
			Subsystem: "indexer",
			Name:      "segments_live",
			Help:      "Number of live (competing) chain segments, by chain.",
		}, []string{"chain"}),
		LockContentionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chrondx",
			Subsystem: "indexer",
			Name:      "lock_contention_total",
			Help:      "Number of times a caller had to retry after ErrLockContention.",
		}),
		BlocksProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chrondx",
			Subsystem: "indexer",
			Name:      "blocks_processed_total",
			Help:      "Number of blocks successfully processed, by chain.",
		}, []string{"chain"}),
	}
	reg.MustRegister(
		c.ReorgsTotal,
		c.ReorgDepth,
		c.ConfirmedBlocksTotal,
		c.OrphansPending,
		c.SegmentsLive,
		c.LockContentionTotal,
		c.BlocksProcessedTotal,
	)
	return c
}
