// Package oracle defines the language-model boundary. Every component that
// needs a completion talks to a Client; providers live under contrib/oracle.
package oracle

import "context"

// Client is the minimal completion contract consumed by the core. The model
// is treated as an opaque text oracle: prompt in, text out.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete implements Client.
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
