package monitoring

import (
	"context"
	"time"

	"github.com/diarist/server/internal/domain/service"
	"github.com/diarist/server/internal/domain/valueobject"
)

// MetricsHook is a TurnHook that feeds Metrics.
//
// Usage:
//
//	metrics := monitoring.NewMetrics()
//	recorder := usecase.NewTurnRecorder(messages, monitoring.NewMetricsHook(metrics), logger)
type MetricsHook struct {
	service.NoOpHook
	metrics *Metrics
}

// NewMetricsHook creates a metrics-collecting turn hook.
func NewMetricsHook(metrics *Metrics) *MetricsHook {
	return &MetricsHook{metrics: metrics}
}

// Compile-time interface check
var _ service.TurnHook = (*MetricsHook)(nil)

func (h *MetricsHook) OnTurnFinished(_ context.Context, provider string, outcome service.TurnOutcome, elapsed time.Duration) {
	h.metrics.turnsTotal.WithLabelValues(provider, string(outcome)).Inc()
	h.metrics.turnDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (h *MetricsHook) AfterToolCall(_ context.Context, toolName string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	h.metrics.toolCallsTotal.WithLabelValues(toolName, result).Inc()
}

func (h *MetricsHook) OnRecordPersisted(_ context.Context, contentType valueobject.ContentType) {
	h.metrics.recordsPersisted.WithLabelValues(string(contentType)).Inc()
}

func (h *MetricsHook) OnStoreWriteFailure(_ context.Context, contentType valueobject.ContentType, _ error) {
	h.metrics.storeWriteFailures.WithLabelValues(string(contentType)).Inc()
}

func (h *MetricsHook) OnMalformedReplay(_ context.Context, count int) {
	h.metrics.malformedReplayTotal.Add(float64(count))
}
