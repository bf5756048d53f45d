package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SubmissionTotal counts document submissions by kind and result.
	SubmissionTotal *prometheus.CounterVec
	// SubmissionLatency records document store write latency in milliseconds.
	SubmissionLatency *prometheus.HistogramVec
	// SummaryTotal counts summary generation outcomes by backend.
	SummaryTotal *prometheus.CounterVec
	// StoreRequestTotal counts document store calls by operation and result.
	StoreRequestTotal *prometheus.CounterVec
	// NotificationTotal counts submission notification outcomes.
	NotificationTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
// It is safe to call more than once; only the first call registers.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SubmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_total",
			Help:      "Count of document submissions by kind and result.",
		}, []string{"kind", "result"})
		SubmissionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_ms",
			Help:      "Document store write latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"kind"})
		SummaryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_total",
			Help:      "Count of summary generations by backend and result.",
		}, []string{"backend", "result"})
		StoreRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_request_total",
			Help:      "Count of document store requests by operation and result.",
		}, []string{"op", "result"})
		NotificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_total",
			Help:      "Count of submission notifications by stage and result.",
		}, []string{"stage", "result"})

		for _, c := range []**prometheus.CounterVec{&SubmissionTotal, &SummaryTotal, &StoreRequestTotal, &NotificationTotal} {
			target := c
			mustRegisterCollector(reg, *target, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					*target = v
				}
			})
		}
		mustRegisterCollector(reg, SubmissionLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				SubmissionLatency = v
			}
		})
	})
}

// CountSubmission records a submission outcome when metrics are registered.
func CountSubmission(kind, result string) {
	if SubmissionTotal != nil {
		SubmissionTotal.WithLabelValues(kind, result).Inc()
	}
}

// ObserveSubmission records store write latency when metrics are registered.
func ObserveSubmission(kind string, ms float64) {
	if SubmissionLatency != nil {
		SubmissionLatency.WithLabelValues(kind).Observe(ms)
	}
}

// CountSummary records a summary outcome when metrics are registered.
func CountSummary(backend, result string) {
	if SummaryTotal != nil {
		SummaryTotal.WithLabelValues(backend, result).Inc()
	}
}

// CountStoreRequest records a document store call when metrics are registered.
func CountStoreRequest(op, result string) {
	if StoreRequestTotal != nil {
		StoreRequestTotal.WithLabelValues(op, result).Inc()
	}
}

// CountNotification records a notification stage outcome when metrics are registered.
func CountNotification(stage, result string) {
	if NotificationTotal != nil {
		NotificationTotal.WithLabelValues(stage, result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
