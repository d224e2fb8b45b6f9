package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/pkg/logging"
)

// ReviewType classifies what a review request is about.
type ReviewType string

const (
	ReviewExtraction ReviewType = "extraction"   // extracted health fact
	ReviewResponse   ReviewType = "response"     // sensitive generated answer
	ReviewProfile    ReviewType = "profile_edit" // direct profile change
)

// ReviewStatus is the lifecycle of a review request.
type ReviewStatus string

const (
	ReviewPending      ReviewStatus = "pending"
	ReviewApproved     ReviewStatus = "approved"
	ReviewRejected     ReviewStatus = "rejected"
	ReviewAutoApproved ReviewStatus = "auto_approved"
)

// ReviewRisk decides whether a request needs a human.
type ReviewRisk string

const (
	ReviewRiskLow    ReviewRisk = "low"    // auto-approved
	ReviewRiskMedium ReviewRisk = "medium" // needs review
	ReviewRiskHigh   ReviewRisk = "high"   // must be reviewed
)

// ReviewRequest is one item in the human-in-the-loop queue.
type ReviewRequest struct {
	ID         string
	Type       ReviewType
	UserID     string
	Status     ReviewStatus
	Risk       ReviewRisk
	Title      string
	Fact       *ExtractedFact // set for extraction requests
	Text       string         // set for response requests
	Context    string
	CreatedAt  time.Time
	ReviewedAt time.Time
}

// ReviewQueue gates risky writes behind human approval. Low-risk extraction
// facts are applied immediately; allergy, medication and disease facts wait
// for Approve.
type ReviewQueue struct {
	mu       sync.Mutex
	store    Store
	requests map[string]*ReviewRequest
	logger   *slog.Logger
}

// NewReviewQueue builds a queue that commits approved facts to the store.
func NewReviewQueue(store Store, logger *slog.Logger) *ReviewQueue {
	if logger == nil {
		logger = logging.WithComponent("review_queue")
	}
	return &ReviewQueue{
		store:    store,
		requests: make(map[string]*ReviewRequest),
		logger:   logger,
	}
}

// SubmitFact enqueues an extracted fact. Low-risk facts are written through
// and returned as auto-approved; the rest stay pending.
func (q *ReviewQueue) SubmitFact(ctx context.Context, userID string, fact ExtractedFact, note string) (*ReviewRequest, error) {
	req := &ReviewRequest{
		ID:        uuid.NewString(),
		Type:      ReviewExtraction,
		UserID:    userID,
		Risk:      assessFactRisk(fact),
		Title:     fmt.Sprintf("[%s] %s", fact.Category, fact.Content),
		Fact:      &fact,
		Context:   note,
		CreatedAt: time.Now(),
	}

	if req.Risk == ReviewRiskLow {
		req.Status = ReviewAutoApproved
		req.ReviewedAt = req.CreatedAt
		if _, err := q.apply(ctx, req); err != nil {
			return nil, err
		}
	} else {
		req.Status = ReviewPending
	}

	q.mu.Lock()
	q.requests[req.ID] = req
	q.mu.Unlock()

	q.logger.Debug("review request submitted",
		"id", req.ID, "type", req.Type, "risk", req.Risk, "status", req.Status)
	return req, nil
}

// SubmitResponse enqueues a generated answer for review. Responses are never
// auto-approved; the caller decides whether to block on the outcome.
func (q *ReviewQueue) SubmitResponse(ctx context.Context, userID, text, note string) (*ReviewRequest, error) {
	req := &ReviewRequest{
		ID:        uuid.NewString(),
		Type:      ReviewResponse,
		UserID:    userID,
		Status:    ReviewPending,
		Risk:      assessResponseRisk(text),
		Title:     fmt.Sprintf("[response] %s", userID),
		Text:      text,
		Context:   note,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.requests[req.ID] = req
	q.mu.Unlock()
	return req, nil
}

// Pending lists open requests, newest first. Empty userID means all users.
func (q *ReviewQueue) Pending(userID string) []*ReviewRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*ReviewRequest, 0)
	for _, req := range q.requests {
		if req.Status != ReviewPending {
			continue
		}
		if userID != "" && req.UserID != userID {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Get returns a request by ID.
func (q *ReviewQueue) Get(id string) (*ReviewRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[id]
	if !ok {
		return nil, fmt.Errorf("review request %s: %w", id, errorskg.ErrNotFound)
	}
	return req, nil
}

// Approve commits a pending request and marks it approved.
func (q *ReviewQueue) Approve(ctx context.Context, id string) error {
	q.mu.Lock()
	req, ok := q.requests[id]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("review request %s: %w", id, errorskg.ErrNotFound)
	}
	if req.Status != ReviewPending {
		return fmt.Errorf("review request %s is %s: %w", id, req.Status, errorskg.ErrInvalidInput)
	}

	if _, err := q.apply(ctx, req); err != nil {
		return err
	}

	q.mu.Lock()
	req.Status = ReviewApproved
	req.ReviewedAt = time.Now()
	q.mu.Unlock()
	return nil
}

// Reject closes a pending request without committing it.
func (q *ReviewQueue) Reject(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[id]
	if !ok {
		return fmt.Errorf("review request %s: %w", id, errorskg.ErrNotFound)
	}
	if req.Status != ReviewPending {
		return fmt.Errorf("review request %s is %s: %w", id, req.Status, errorskg.ErrInvalidInput)
	}
	req.Status = ReviewRejected
	req.ReviewedAt = time.Now()
	return nil
}

// apply writes the request payload through to the store.
func (q *ReviewQueue) apply(ctx context.Context, req *ReviewRequest) (bool, error) {
	if req.Type != ReviewExtraction || req.Fact == nil {
		return false, nil // response reviews have no store side effect
	}
	return q.store.AddRecord(ctx, &Record{
		UserID:    req.UserID,
		Category:  req.Fact.Category,
		Content:   req.Fact.Content,
		Important: req.Fact.Important,
	})
}

// assessFactRisk: allergies and medications are high risk, disease history
// medium, everything else low unless a contraindication keyword appears.
func assessFactRisk(fact ExtractedFact) ReviewRisk {
	switch fact.Category {
	case CategoryAllergy, CategoryMedication:
		return ReviewRiskHigh
	case CategoryDisease:
		return ReviewRiskMedium
	}

	text := strings.ToLower(fact.Category + " " + fact.Content)
	for _, kw := range []string{"过敏", "禁忌", "不能吃", "不能用", "药物"} {
		if strings.Contains(text, kw) {
			return ReviewRiskHigh
		}
	}
	return ReviewRiskLow
}

func assessResponseRisk(text string) ReviewRisk {
	lowered := strings.ToLower(text)
	for _, kw := range []string{"用药", "剂量", "诊断", "处方"} {
		if strings.Contains(lowered, kw) {
			return ReviewRiskHigh
		}
	}
	return ReviewRiskMedium
}
