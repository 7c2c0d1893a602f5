package observability

import (
	"go.uber.org/zap"
)

// APICallEvent records metadata about a single REST call.
type APICallEvent struct {
	Method     string
	Path       string
	StatusCode int
	LatencyMs  int64
	Success    bool
	ErrorCode  string
}

// APIObserver receives events about REST calls for logging.
type APIObserver interface {
	OnCallComplete(event APICallEvent)
}

// LogObserver writes API call events to a zap logger.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates an APIObserver that logs events to l.
func NewLogObserver(l *zap.Logger) *LogObserver {
	return &LogObserver{logger: OrNop(l).Named("api")}
}

func (o *LogObserver) OnCallComplete(event APICallEvent) {
	fields := []zap.Field{
		zap.String("method", event.Method),
		zap.String("path", event.Path),
		zap.Int("status", event.StatusCode),
		zap.Int64("latency_ms", event.LatencyMs),
	}
	if !event.Success {
		o.logger.Warn("api_call", append(fields, zap.String("error_code", event.ErrorCode))...)
		return
	}
	o.logger.Debug("api_call", fields...)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(APICallEvent) {}
