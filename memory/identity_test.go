package memory_test

import (
	"context"
	"errors"
	"testing"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
	"github.com/sweetpotato0/health-agent/memory/store"
)

func TestDeriveUserIDIsStable(t *testing.T) {
	// Pinned so persisted dossiers survive refactors.
	tests := []struct {
		identifier string
		want       string
	}{
		{"13800138000", "7945bd83-2373-35e5-376f-f44d62e4f0ae"},
		{"zhang-san", "29b7aecc-3b49-66e2-6fe2-1ce2a523d2fa"},
	}
	for _, tt := range tests {
		got, err := memory.DeriveUserID(tt.identifier)
		if err != nil {
			t.Fatalf("DeriveUserID(%q): %v", tt.identifier, err)
		}
		if got != tt.want {
			t.Errorf("DeriveUserID(%q) = %q, want %q", tt.identifier, got, tt.want)
		}
		// Surrounding whitespace must not change the identity.
		padded, _ := memory.DeriveUserID("  " + tt.identifier + " ")
		if padded != got {
			t.Errorf("padded identifier diverged: %q vs %q", padded, got)
		}
	}
}

func TestDeriveUserIDRejectsShortIdentifiers(t *testing.T) {
	for _, id := range []string{"", "abc", "  12  "} {
		if _, err := memory.DeriveUserID(id); !errors.Is(err, errorskg.ErrInvalidInput) {
			t.Errorf("DeriveUserID(%q) err = %v, want ErrInvalidInput", id, err)
		}
	}
}

func TestIdentifyCreatesThenFinds(t *testing.T) {
	g := memory.NewGateway(store.NewMemoryStore())
	ctx := context.Background()

	u1, isNew, err := g.Identify(ctx, "13800138000")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !isNew {
		t.Error("first visit reported as returning")
	}

	u2, isNew, err := g.Identify(ctx, "13800138000")
	if err != nil {
		t.Fatalf("Identify again: %v", err)
	}
	if isNew {
		t.Error("second visit reported as new")
	}
	if u1.ID != u2.ID {
		t.Errorf("IDs diverged: %q vs %q", u1.ID, u2.ID)
	}

	u3, _, err := g.Identify(ctx, "13900139000")
	if err != nil {
		t.Fatalf("Identify other: %v", err)
	}
	if u3.ID == u1.ID {
		t.Error("different identifiers collided")
	}
}

func TestIdentifyRejectsShortIdentifier(t *testing.T) {
	g := memory.NewGateway(store.NewMemoryStore())
	if _, _, err := g.Identify(context.Background(), "abc"); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
