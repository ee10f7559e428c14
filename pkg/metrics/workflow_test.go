package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	pkgerrors "github.com/nstc/opsdesk-backend/pkg/errors"
)

func TestWorkflowMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWorkflowMetrics(reg)
	started := time.Now().Add(-250 * time.Millisecond)

	metrics.Observe("request.issue", started, nil)
	metrics.Observe("request.issue", started, pkgerrors.New(pkgerrors.CodeInsufficientStock, "short"))
	metrics.Observe("request.issue", started, errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for _, outcome := range []string{"success", "insufficient_stock", "internal_error"} {
		got, err := fetchCounterValue(mfs, "workflow_operations_total", "outcome", outcome)
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", outcome, got)
		}
	}

	if got, err := fetchHistogramCount(mfs, "workflow_operation_duration_seconds", "operation", "request.issue"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 3 {
		t.Fatalf("expected 3 duration samples, got %d", got)
	}
}

func TestTrackReadsErrorAtDeferTime(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWorkflowMetrics(reg)

	run := func() (err error) {
		defer metrics.Track("request.receive", time.Now(), &err)
		return pkgerrors.New(pkgerrors.CodeAlreadyReceived, "dup")
	}
	_ = run()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "workflow_operations_total", "outcome", "already_received"); err != nil || got != 1 {
		t.Fatalf("expected already_received=1, got %f (%v)", got, err)
	}
}

func TestWorkflowMetricsNilSafe(t *testing.T) {
	var nilMetrics *WorkflowMetrics
	nilMetrics.Observe("x", time.Now(), nil)
	NewWorkflowMetrics(nil).Observe("x", time.Now(), nil)
	nilMetrics.Track("x", time.Now(), nil)
}

func TestOutcomeLabels(t *testing.T) {
	if got := Outcome(nil); got != "success" {
		t.Fatalf("unexpected outcome %s", got)
	}
	wrapped := fmt.Errorf("tx: %w", pkgerrors.New(pkgerrors.CodeAlreadyReceived, "dup"))
	if got := Outcome(wrapped); got != "already_received" {
		t.Fatalf("unexpected outcome %s", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramCount(mfs []*dto.MetricFamily, name, label, value string) (uint64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleCount(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
