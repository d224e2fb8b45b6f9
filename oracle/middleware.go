package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/health-agent/pkg/logging"
)

// Middleware wraps a Client with additional behaviour.
type Middleware func(Client) Client

// Chain applies middlewares to a client, outermost first: the first
// middleware in the list sees the call before all others.
func Chain(client Client, middlewares ...Middleware) Client {
	wrapped := client
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			wrapped = middlewares[i](wrapped)
		}
	}
	return wrapped
}

// WithLogging logs each completion call with its duration and outcome.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = logging.WithComponent("oracle")
	}
	return func(next Client) Client {
		return Func(func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			out, err := next.Complete(ctx, prompt)
			if err != nil {
				logger.Warn("completion failed", "duration", time.Since(start), "error", err)
				return "", err
			}
			logger.Debug("completion ok", "duration", time.Since(start), "prompt_len", len(prompt), "output_len", len(out))
			return out, nil
		})
	}
}

// WithRecovery converts panics inside a provider into errors so a misbehaving
// client can never take down a conversation turn.
func WithRecovery() Middleware {
	return func(next Client) Client {
		return Func(func(ctx context.Context, prompt string) (out string, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("oracle panic: %v", r)
				}
			}()
			return next.Complete(ctx, prompt)
		})
	}
}

// WithTimeout bounds each completion call. Zero or negative timeouts disable
// the wrapper.
func WithTimeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return Func(func(ctx context.Context, prompt string) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Complete(ctx, prompt)
		})
	}
}
