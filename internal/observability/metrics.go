package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for ScySettle.
type Metrics struct {
	// --- Core Processing ---
	CoreInstrApplied  *prometheus.CounterVec
	CoreInstrRejected *prometheus.CounterVec
	CoreInstrDuration *prometheus.HistogramVec
	CoreJournals      *prometheus.CounterVec
	CoreStateHashDur  prometheus.Histogram
	CoreSequence      prometheus.Gauge

	// --- Sale ---
	SaleUnitsSold     *prometheus.CounterVec
	SalePaymentsTaken *prometheus.CounterVec
	OracleRejects     *prometheus.CounterVec
	OracleQuoteAge    *prometheus.HistogramVec

	// --- Latency ---
	IngestToApply   *prometheus.HistogramVec
	ApplyToPersist  prometheus.Histogram
	NATSPullLatency *prometheus.HistogramVec
	PersistBatchDur prometheus.Histogram

	// --- Channel & Backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	ProjectionDrops     *prometheus.CounterVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Idempotency & Ordering ---
	IdempotencyDuplicates *prometheus.CounterVec
	DedupLRUSize          prometheus.Gauge
	DedupLRUEvictions     prometheus.Counter
	SlotGaps              *prometheus.CounterVec
	SlotRegressions       *prometheus.CounterVec

	// --- Persistence ---
	PersistInstrWritten    prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter
	PersistLastSequence    prometheus.Gauge

	// --- Snapshot ---
	SnapshotTaken     prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	SnapshotSizeBytes prometheus.Gauge
	SnapshotLastSeq   prometheus.Gauge
	ReplayInstrTotal  prometheus.Counter
	ReplayDuration    prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	ingestBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Core Processing
		CoreInstrApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_core_instructions_applied_total",
			Help: "Instructions successfully applied by core",
		}, []string{"instr_type"}),

		CoreInstrRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_core_instructions_rejected_total",
			Help: "Instructions rejected (dedup, ordering, validation)",
		}, []string{"instr_type", "reason"}),

		CoreInstrDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scysettle_core_instruction_apply_duration_seconds",
			Help:    "Time to apply a single instruction in core",
			Buckets: latencyBuckets,
		}, []string{"instr_type"}),

		CoreJournals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_core_journals_generated_total",
			Help: "Journal entries generated",
		}, []string{"journal_type"}),

		CoreStateHashDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scysettle_core_state_hash_duration_seconds",
			Help:    "Time to compute state hash",
			Buckets: latencyBuckets,
		}),

		CoreSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scysettle_core_sequence",
			Help: "Current global sequence number",
		}),

		// Sale
		SaleUnitsSold: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_sale_units_sold_total",
			Help: "Sale-token base units delivered to buyers",
		}, []string{"pay_asset"}),

		SalePaymentsTaken: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_sale_payments_taken_total",
			Help: "Payment base units received into custody",
		}, []string{"pay_asset"}),

		OracleRejects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_oracle_rejects_total",
			Help: "Oracle quote validation failures",
		}, []string{"asset", "reason"}),

		OracleQuoteAge: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scysettle_oracle_quote_age_seconds",
			Help:    "Age of accepted quotes at validation time",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60},
		}, []string{"asset"}),

		// Latency
		IngestToApply: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scysettle_ingest_to_apply_seconds",
			Help:    "NATS receive to core apply complete",
			Buckets: ingestBuckets,
		}, []string{"instr_type"}),

		ApplyToPersist: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scysettle_apply_to_persist_seconds",
			Help:    "Core emit to Postgres commit",
			Buckets: latencyBuckets,
		}),

		NATSPullLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scysettle_nats_pull_latency_seconds",
			Help:    "NATS pull request latency",
			Buckets: ingestBuckets,
		}, []string{"subject"}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scysettle_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		// Channel & Backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scysettle_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scysettle_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scysettle_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_projection_drops_total",
			Help: "Outputs dropped due to full projection channel",
		}, []string{"projection"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_publish_drops_total",
			Help: "Outbound notifications dropped due to full publish channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_persist_backpressure_total",
			Help: "Times core blocked on persist channel",
		}),

		// Idempotency & Ordering
		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_idempotency_duplicates_total",
			Help: "Duplicates caught (lru/postgres)",
		}, []string{"instr_type", "tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scysettle_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		DedupLRUEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_dedup_lru_evictions_total",
			Help: "LRU evictions",
		}),

		SlotGaps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_slot_gap_total",
			Help: "Source slot gaps observed (tolerated)",
		}, []string{"partition"}),

		SlotRegressions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_slot_regression_total",
			Help: "Slot regressions rejected",
		}, []string{"partition"}),

		// Persistence
		PersistInstrWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_persist_instructions_written_total",
			Help: "Instructions written to Postgres",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_persist_journals_written_total",
			Help: "Journal entries written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scysettle_persist_batch_size",
			Help:    "Instructions per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scysettle_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		// Snapshot
		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_snapshot_taken_total",
			Help: "Snapshots created",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scysettle_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),

		SnapshotSizeBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scysettle_snapshot_size_bytes",
			Help: "Last snapshot size",
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scysettle_snapshot_last_sequence",
			Help: "Sequence of last snapshot",
		}),

		ReplayInstrTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scysettle_replay_instructions_total",
			Help: "Instructions replayed on startup",
		}),

		ReplayDuration: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scysettle_replay_duration_seconds",
			Help: "Total replay time",
		}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scysettle_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scysettle_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
