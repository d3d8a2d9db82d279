// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audio_scoring"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Fragment metrics
	FragmentsTotal   prometheus.Counter
	FragmentsFailed  *prometheus.CounterVec
	FragmentsSkipped prometheus.Counter
	FragmentDuration prometheus.Histogram

	// Transcode metrics
	TranscodeDuration prometheus.Histogram
	TranscodeErrors   prometheus.Counter

	// Classifier metrics
	ClassifierInvocations prometheus.Counter
	ClassifierRetries     prometheus.Counter
	ClassifierBadResponse *prometheus.CounterVec
	ClassifierLatency     prometheus.Histogram
	DetectionsReturned    prometheus.Counter

	// Store metrics
	BatchWrites       prometheus.Counter
	ItemsWritten      prometheus.Counter
	ItemsRequeued     prometheus.Counter
	ReconcilePasses   prometheus.Histogram
	ConsumedCapacity  prometheus.Counter
	StoreWriteLatency prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		FragmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Total number of media fragments processed",
		}),
		FragmentsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_failed_total",
			Help:      "Total number of fragments that failed processing",
		}, []string{"stage"}),
		FragmentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_skipped_total",
			Help:      "Total number of fragments whose persistence was skipped after repeated bad classifier responses",
		}),
		FragmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fragment_duration_seconds",
			Help:      "End-to-end fragment processing duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		TranscodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_duration_seconds",
			Help:      "Duration of ffmpeg transcode invocations in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		TranscodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_errors_total",
			Help:      "Total number of failed transcode invocations",
		}),

		ClassifierInvocations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_invocations_total",
			Help:      "Total number of classifier invocations, including retries",
		}),
		ClassifierRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_retries_total",
			Help:      "Total number of delayed classifier retries",
		}),
		ClassifierBadResponse: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_bad_responses_total",
			Help:      "Total number of non-200 classifier responses",
		}, []string{"code"}),
		ClassifierLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_latency_seconds",
			Help:      "Classifier invocation latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		DetectionsReturned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_returned_total",
			Help:      "Total number of detections returned by the classifier",
		}),

		BatchWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_batch_writes_total",
			Help:      "Total number of batch write requests issued to the table store",
		}),
		ItemsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_items_written_total",
			Help:      "Total number of items durably accepted by the table store",
		}),
		ItemsRequeued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_items_requeued_total",
			Help:      "Total number of unprocessed items re-queued for another write attempt",
		}),
		ReconcilePasses: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_reconcile_passes",
			Help:      "Number of batch requests needed to drain one fragment's work queue",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50},
		}),
		ConsumedCapacity: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_consumed_capacity_units_total",
			Help:      "Total write capacity units reported consumed by the table store",
		}),
		StoreWriteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_latency_seconds",
			Help:      "Latency of draining one fragment's detections to the store",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordFragment records one completed fragment invocation.
func (m *Metrics) RecordFragment(durationSeconds float64) {
	m.FragmentsTotal.Inc()
	m.FragmentDuration.Observe(durationSeconds)
}

// RecordFragmentFailed records a fragment failing at a given stage.
func (m *Metrics) RecordFragmentFailed(stage string) {
	m.FragmentsFailed.WithLabelValues(stage).Inc()
}

// RecordFragmentSkipped records a fragment whose persistence was skipped.
func (m *Metrics) RecordFragmentSkipped() {
	m.FragmentsSkipped.Inc()
}

// RecordTranscode records a transcode attempt.
func (m *Metrics) RecordTranscode(err error, durationSeconds float64) {
	m.TranscodeDuration.Observe(durationSeconds)
	if err != nil {
		m.TranscodeErrors.Inc()
	}
}

// RecordClassifierInvocation records one classifier call.
func (m *Metrics) RecordClassifierInvocation(latencySeconds float64) {
	m.ClassifierInvocations.Inc()
	m.ClassifierLatency.Observe(latencySeconds)
}

// RecordClassifierRetry records the delayed retry branch being taken.
func (m *Metrics) RecordClassifierRetry() {
	m.ClassifierRetries.Inc()
}

// RecordClassifierBadResponse records a non-200 classifier response.
func (m *Metrics) RecordClassifierBadResponse(code string) {
	m.ClassifierBadResponse.WithLabelValues(code).Inc()
}

// RecordDetections records the number of detections a classifier call returned.
func (m *Metrics) RecordDetections(n int) {
	m.DetectionsReturned.Add(float64(n))
}

// RecordBatchWrite records one batch write request and its outcome.
func (m *Metrics) RecordBatchWrite(written, requeued int, capacityUnits float64) {
	m.BatchWrites.Inc()
	m.ItemsWritten.Add(float64(written))
	m.ItemsRequeued.Add(float64(requeued))
	m.ConsumedCapacity.Add(capacityUnits)
}

// RecordStoreDrain records a fragment's work queue draining completely.
func (m *Metrics) RecordStoreDrain(passes int, durationSeconds float64) {
	m.ReconcilePasses.Observe(float64(passes))
	m.StoreWriteLatency.Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
