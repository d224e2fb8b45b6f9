package memory

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	errorskg "github.com/sweetpotato0/health-agent/errors"
)

// MinIdentifierLength is the shortest accepted login identifier.
const MinIdentifierLength = 4

// DeriveUserID maps a phone number or free-form identifier onto a stable
// user ID: the same identifier always resolves to the same dossier. MD5 is
// an addressing hash here, not a credential; the identifier itself is
// never persisted.
func DeriveUserID(identifier string) (string, error) {
	id := strings.TrimSpace(identifier)
	if len([]rune(id)) < MinIdentifierLength {
		return "", fmt.Errorf("identifier needs at least %d characters: %w",
			MinIdentifierLength, errorskg.ErrInvalidInput)
	}
	sum := md5.Sum([]byte(id))
	return uuid.UUID(sum).String(), nil
}

// Identify resolves an identifier to a user account, creating it on first
// visit. The bool reports whether the account is new. For returning users
// the returned LastActive still holds the previous visit time; the touch
// happens after the read.
func (g *Gateway) Identify(ctx context.Context, identifier string) (*User, bool, error) {
	userID, err := DeriveUserID(identifier)
	if err != nil {
		return nil, false, err
	}

	u, err := g.store.GetUser(ctx, userID)
	if err == nil {
		if err := g.store.TouchUser(ctx, userID); err != nil {
			g.logger.Warn("touch user failed", "user", userID, "error", err)
		}
		return u, false, nil
	}
	if !errors.Is(err, errorskg.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now()
	u = &User{ID: userID, CreatedAt: now, LastActive: now}
	if err := g.store.CreateUser(ctx, u); err != nil {
		return nil, false, err
	}
	g.logger.Info("new user registered", "user", userID)
	return u, true, nil
}
