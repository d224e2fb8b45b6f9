package oracle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChainAppliesOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Client) Client {
			return Func(func(ctx context.Context, prompt string) (string, error) {
				order = append(order, name)
				return next.Complete(ctx, prompt)
			})
		}
	}
	base := Func(func(ctx context.Context, prompt string) (string, error) {
		order = append(order, "base")
		return "done", nil
	})

	out, err := Chain(base, tag("outer"), tag("inner")).Complete(context.Background(), "q")
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "base" {
		t.Fatalf("unexpected call order: %v", order)
	}
}

func TestWithRecoveryConvertsPanic(t *testing.T) {
	client := Chain(Func(func(ctx context.Context, prompt string) (string, error) {
		panic("boom")
	}), WithRecovery())

	_, err := client.Complete(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

func TestWithTimeoutCancelsSlowCalls(t *testing.T) {
	slow := Func(func(ctx context.Context, prompt string) (string, error) {
		select {
		case <-time.After(time.Second):
			return "too late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	_, err := Chain(slow, WithTimeout(5*time.Millisecond)).Complete(context.Background(), "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
