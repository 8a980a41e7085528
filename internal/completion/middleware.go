package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Middleware decorates a Model with a cross-cutting concern.
type Middleware func(Model) Model

// Wrap applies middlewares left to right: Wrap(m, A, B) is A(B(m)).
func Wrap(m Model, mws ...Middleware) Model {
	out := m
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// Timeout bounds each call. A call that runs out of time becomes a
// temporary TransportError; cancellation by the caller is passed through.
func Timeout(d time.Duration) Middleware {
	return func(next Model) Model {
		return ModelFunc(func(ctx context.Context, req Request) (string, error) {
			if d <= 0 {
				return next.Generate(ctx, req)
			}
			callCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			text, err := next.Generate(callCtx, req)
			if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return "", &TransportError{
					Call:      req.Name,
					Temporary: true,
					Err:       fmt.Errorf("timed out after %s: %w", d, context.DeadlineExceeded),
				}
			}
			return text, err
		})
	}
}

// RetryHook observes a failed attempt that is about to be retried.
type RetryHook func(req Request, attempt int, err error)

// Retry makes up to maxAttempts calls with exponential backoff from base.
// Only temporary transport errors are retried.
func Retry(maxAttempts int, base time.Duration, hooks ...RetryHook) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if base <= 0 {
		base = 300 * time.Millisecond
	}
	return func(next Model) Model {
		return ModelFunc(func(ctx context.Context, req Request) (string, error) {
			var last error
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				text, err := next.Generate(ctx, req)
				if err == nil {
					return text, nil
				}
				err = asTransport(ctx, req.Name, err)
				if !IsTemporary(err) || attempt == maxAttempts {
					return "", err
				}
				last = err
				for _, h := range hooks {
					h(req, attempt, err)
				}

				timer := time.NewTimer(base * time.Duration(1<<(attempt-1)))
				select {
				case <-ctx.Done():
					timer.Stop()
					return "", ctx.Err()
				case <-timer.C:
				}
			}
			return "", last
		})
	}
}

// Logging logs every call with its duration and outcome.
func Logging(logger *zap.Logger) Middleware {
	return func(next Model) Model {
		return ModelFunc(func(ctx context.Context, req Request) (string, error) {
			start := time.Now()
			text, err := next.Generate(ctx, req)
			fields := []zap.Field{
				zap.String("call", req.Name),
				zap.Duration("duration", time.Since(start)),
				zap.String("outcome", Outcome(err)),
			}
			if err != nil {
				logger.Warn("completion failed", append(fields, zap.Error(err))...)
				return "", err
			}
			logger.Info("completion", append(fields, zap.Int("response_len", len(text)))...)
			return text, nil
		})
	}
}

// Recorder receives per-call measurements.
type Recorder interface {
	ObserveCompletion(call, outcome string, d time.Duration)
}

// Metrics reports every call to r.
func Metrics(r Recorder) Middleware {
	return func(next Model) Model {
		return ModelFunc(func(ctx context.Context, req Request) (string, error) {
			start := time.Now()
			text, err := next.Generate(ctx, req)
			r.ObserveCompletion(req.Name, Outcome(err), time.Since(start))
			return text, err
		})
	}
}

// Tracing opens one span per call.
func Tracing(tracer trace.Tracer) Middleware {
	return func(next Model) Model {
		return ModelFunc(func(ctx context.Context, req Request) (string, error) {
			ctx, span := tracer.Start(ctx, "completion."+req.Name,
				trace.WithAttributes(
					attribute.String("completion.call", req.Name),
					attribute.Int("completion.user_len", len(req.User)),
				),
			)
			defer span.End()

			text, err := next.Generate(ctx, req)
			span.SetAttributes(attribute.String("completion.outcome", Outcome(err)))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return text, err
		})
	}
}

// Outcome labels err for logs and metrics.
func Outcome(err error) string {
	var te *TransportError
	var pe *ParseError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &pe):
		return "parse"
	default:
		return "error"
	}
}
