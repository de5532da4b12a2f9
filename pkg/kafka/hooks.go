package kafka

import (
	"context"
	"time"

	"CoinSim/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook wraps message handling with lifecycle callbacks. Hooks
// can replace the context, message, and payload. A non-nil error from
// BeforeHandle skips the handler and runs the error path instead.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is the default hook.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
}

type ctxKey string

const (
	// CtxStartTime holds the time handling started.
	CtxStartTime ctxKey = "kafka_hook_start_time"
	// CtxTraceID holds the correlation id extracted from headers.
	CtxTraceID ctxKey = "kafka_hook_trace_id"
)

// WithStartTime stamps the handling start time on the context.
func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, CtxStartTime, t)
}

// WithTraceID stamps the trace id on the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, CtxTraceID, traceID)
}

// ExtractTraceID reads the trace_id header, if present.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "trace_id" && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}

// LoggingHook stamps start time and trace id on the context, then logs
// failed and slow handles with that correlation attached.
type LoggingHook struct {
	logger *logger.Logger
	slow   time.Duration
}

// NewLoggingHook creates the hook. A slow threshold of zero disables
// the slow-handle warning.
func NewLoggingHook(lgr *logger.Logger, slow time.Duration) *LoggingHook {
	return &LoggingHook{logger: lgr, slow: slow}
}

func (h *LoggingHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	ctx = WithStartTime(ctx, time.Now())
	ctx = WithTraceID(ctx, ExtractTraceID(km))
	return ctx, km, data, nil
}

func (h *LoggingHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if err != nil || h.slow <= 0 {
		return
	}
	start, ok := ctx.Value(CtxStartTime).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed >= h.slow {
		h.logger.Warn("kafka handle slow",
			logger.String("topic", topic),
			logger.Int("partition", km.Partition),
			logger.Int64("offset", km.Offset),
			logger.Int64("elapsed_ms", elapsed.Milliseconds()))
	}
}

func (h *LoggingHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	fields := []logger.Field{
		logger.String("topic", topic),
		logger.Int("partition", km.Partition),
		logger.Int64("offset", km.Offset),
		logger.Error(err),
	}
	if tid, ok := ctx.Value(CtxTraceID).(string); ok && tid != "" {
		fields = append(fields, logger.String("trace_id", tid))
	}
	h.logger.Warn("kafka message error", fields...)
}
