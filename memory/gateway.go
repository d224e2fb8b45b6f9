package memory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
)

// Gateway is the memory facade the conversation and interview layers use.
// Anonymous users short-circuit every call: nothing is read or written.
type Gateway struct {
	store     Store
	extractor *Extractor
	review    *ReviewQueue
	logger    *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithExtractor enables oracle-driven fact extraction in Remember.
func WithExtractor(client oracle.Client) GatewayOption {
	return func(g *Gateway) { g.extractor = NewExtractor(client, nil) }
}

// WithReviewQueue routes risky extracted facts through human review instead
// of writing them directly.
func WithReviewQueue(q *ReviewQueue) GatewayOption {
	return func(g *Gateway) { g.review = q }
}

// WithGatewayLogger overrides the default package logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway builds a Gateway over a store.
func NewGateway(store Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:  store,
		logger: logging.WithComponent("memory"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Review exposes the attached review queue, nil when review is disabled.
func (g *Gateway) Review() *ReviewQueue { return g.review }

// Profile loads a user's structured profile. Anonymous and unknown users
// return nil without error.
func (g *Gateway) Profile(ctx context.Context, userID string) (*Profile, error) {
	if IsAnonymous(userID) {
		return nil, nil
	}
	p, err := g.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, errorskg.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// SaveProfile persists a structured profile. Anonymous users are a no-op.
func (g *Gateway) SaveProfile(ctx context.Context, userID string, profile *Profile) error {
	if IsAnonymous(userID) {
		return nil
	}
	return g.store.SaveProfile(ctx, userID, profile)
}

// PutRecord stores one categorized record. Returns false for duplicates and
// for anonymous users.
func (g *Gateway) PutRecord(ctx context.Context, userID, category, content string, important bool) (bool, error) {
	if IsAnonymous(userID) {
		return false, nil
	}
	return g.store.AddRecord(ctx, &Record{
		UserID:    userID,
		Category:  category,
		Content:   content,
		Important: important,
	})
}

// Records lists a user's health records, important first then newest first.
func (g *Gateway) Records(ctx context.Context, userID string) ([]*Record, error) {
	if IsAnonymous(userID) {
		return nil, nil
	}
	return g.store.Records(ctx, userID)
}

// ClearRecords removes all of a user's health records.
func (g *Gateway) ClearRecords(ctx context.Context, userID string) error {
	if IsAnonymous(userID) {
		return nil
	}
	return g.store.ClearRecords(ctx, userID)
}

// Remember extracts health facts from a message and stores them, routing
// risky facts through the review queue when one is attached. Extraction
// failures are logged and swallowed: remembering is best-effort and must
// never break the conversation. Returns the facts that were stored or
// queued.
func (g *Gateway) Remember(ctx context.Context, userID, message string) []ExtractedFact {
	if IsAnonymous(userID) || g.extractor == nil {
		return nil
	}

	facts, err := g.extractor.Extract(ctx, message)
	if err != nil {
		g.logger.Debug("fact extraction failed", "error", err)
		return nil
	}

	stored := make([]ExtractedFact, 0, len(facts))
	for _, fact := range facts {
		if g.review != nil {
			if _, err := g.review.SubmitFact(ctx, userID, fact, message); err != nil {
				g.logger.Warn("review submission failed", "error", err)
				continue
			}
			stored = append(stored, fact)
			continue
		}

		added, err := g.store.AddRecord(ctx, &Record{
			UserID:    userID,
			Category:  fact.Category,
			Content:   fact.Content,
			Important: fact.Important,
		})
		if err != nil {
			g.logger.Warn("record write failed", "error", err)
			continue
		}
		if added {
			g.logger.Info("health fact recorded", "category", fact.Category, "content", fact.Content)
			stored = append(stored, fact)
		}
	}
	return stored
}

// ProfileText renders a user's records as the prompt block the synthesis
// step injects. Important records lead. Returns "" for anonymous users,
// missing data, or on storage errors (the conversation degrades silently).
func (g *Gateway) ProfileText(ctx context.Context, userID string) string {
	if IsAnonymous(userID) {
		return ""
	}

	records, err := g.store.Records(ctx, userID)
	if err != nil {
		g.logger.Debug("profile load failed", "error", err)
		return ""
	}
	if len(records) == 0 {
		return ""
	}

	byCategory := make(map[string][]string)
	var order []string
	var important []string
	for _, rec := range records {
		if _, ok := byCategory[rec.Category]; !ok {
			order = append(order, rec.Category)
		}
		byCategory[rec.Category] = append(byCategory[rec.Category], rec.Content)
		if rec.Important {
			important = append(important, "⚠️ "+rec.Content)
		}
	}

	var lines []string
	if len(important) > 0 {
		lines = append(lines, "【⚠️ 重要提醒】")
		lines = append(lines, important...)
		lines = append(lines, "")
	}
	for _, category := range order {
		lines = append(lines, "【"+category+"】")
		for _, c := range byCategory[category] {
			lines = append(lines, "  • "+c)
		}
	}
	return strings.Join(lines, "\n")
}
