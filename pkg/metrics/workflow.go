package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
)

const outcomeSuccess = "success"

// WorkflowMetrics records outcomes and latency of stock and request workflows.
type WorkflowMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_operations_total",
		Help: "Workflow operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_operation_duration_seconds",
		Help:    "Duration of workflow operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(operations, duration)
	return &WorkflowMetrics{
		operations: operations,
		duration:   duration,
	}
}

// Observe records one finished operation. The outcome label is "success" or
// the lowercased error code.
func (w *WorkflowMetrics) Observe(operation string, started time.Time, err error) {
	if w == nil || w.operations == nil || w.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	w.operations.WithLabelValues(op, Outcome(err)).Inc()
	w.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Track is Observe for deferred use: errp is read when the deferred call runs.
//
//	defer s.metrics.Track("request.issue", time.Now(), &err)
func (w *WorkflowMetrics) Track(operation string, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	w.Observe(operation, started, err)
}

// Outcome maps an error to its metric label.
func Outcome(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return strings.ToLower(string(pkgerrors.CodeInternal))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
