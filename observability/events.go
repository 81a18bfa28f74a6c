package observability

import (
	"log/slog"
	"math/big"

	"wrappedm/core/events"
	"wrappedm/observability/metrics"
)

// Recorder is an event sink that mirrors ledger events into structured logs
// and the Prometheus registry.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder builds a Recorder. A nil logger falls back to the process
// default.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger}
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	attrs := evt.Attributes()
	logArgs := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		logArgs = append(logArgs, k, v)
	}
	r.logger.Info(evt.EventType(), logArgs...)

	reg := metrics.Wrapped()
	reg.RecordOperation(evt.EventType())
	if claimed, ok := evt.(events.YieldClaimed); ok {
		reg.RecordYield(claimed.Yield)
	}
	if _, ok := evt.(events.ExcessClaimed); ok {
		reg.SetExcess(big.NewInt(0))
	}
}
