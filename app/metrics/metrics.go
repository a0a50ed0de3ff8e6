// Package metrics exposes Prometheus collectors for collection runs,
// the relevance engine and background tasks.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lysyi3m/buzz-comb/app/relevance"
)

const (
	MetricSourceFetchesTotal  = "buzz_source_fetches_total"
	MetricSourceFetchDuration = "buzz_source_fetch_duration_seconds"
	MetricSourceItemsTotal    = "buzz_source_items_total"
	MetricEngineItemsTotal    = "buzz_engine_items_total"
	MetricTasksTotal          = "buzz_tasks_total"
	MetricTaskDuration        = "buzz_task_duration_seconds"
	MetricTopicItems          = "buzz_topic_items"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Engine outcomes.
const (
	OutcomeKept      = "kept"
	OutcomeOffTopic  = "off_topic"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Metrics is safe for concurrent use.
type Metrics struct {
	sourceFetches  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	sourceItems    *prometheus.CounterVec
	engineItems    *prometheus.CounterVec
	tasks          *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	topicItems     *prometheus.GaugeVec
}

// NewMetrics creates unregistered collectors; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		sourceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSourceFetchesTotal,
				Help: "Total number of source fetches by topic, source and status",
			},
			[]string{"topic", "source", "status"},
		),
		sourceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSourceFetchDuration,
				Help:    "Histogram of source fetch duration in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"source"},
		),
		sourceItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSourceItemsTotal,
				Help: "Total number of raw items returned by sources",
			},
			[]string{"topic", "source"},
		),
		engineItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEngineItemsTotal,
				Help: "Total number of items processed by the relevance engine by outcome",
			},
			[]string{"topic", "outcome"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricTasksTotal,
				Help: "Total number of background task executions by type and status",
			},
			[]string{"task_type", "status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricTaskDuration,
				Help:    "Histogram of background task duration in seconds by type",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"task_type"},
		),
		topicItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricTopicItems,
				Help: "Number of stored items per topic",
			},
			[]string{"topic"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.sourceFetches,
		m.sourceDuration,
		m.sourceItems,
		m.engineItems,
		m.tasks,
		m.taskDuration,
		m.topicItems,
	}
}

// ObserveSource records one source fetch.
func (m *Metrics) ObserveSource(topic, source string, items int, duration time.Duration, err error) {
	m.sourceFetches.WithLabelValues(topic, source, status(err)).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err == nil {
		m.sourceItems.WithLabelValues(topic, source).Add(float64(items))
	}
}

func (m *Metrics) ObserveEngine(topic string, result *relevance.Result) {
	if result == nil {
		return
	}
	m.engineItems.WithLabelValues(topic, OutcomeKept).Add(float64(len(result.Items)))
	m.engineItems.WithLabelValues(topic, OutcomeOffTopic).Add(float64(result.OffTopic))
	m.engineItems.WithLabelValues(topic, OutcomeDuplicate).Add(float64(result.Duplicates))
	m.engineItems.WithLabelValues(topic, OutcomeFailed).Add(float64(len(result.Failures)))
}

func (m *Metrics) ObserveTask(taskType string, duration time.Duration, err error) {
	m.tasks.WithLabelValues(taskType, status(err)).Inc()
	m.taskDuration.WithLabelValues(taskType).Observe(duration.Seconds())
}

func (m *Metrics) SetTopicItems(topic string, count int) {
	m.topicItems.WithLabelValues(topic).Set(float64(count))
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
