// Package memory holds the long-term user health profile: structured
// profile data, categorized health records extracted from conversation, and
// the gateway the conversation and interview layers talk to.
package memory

import (
	"context"
	"time"
)

// Health record categories. The extractor is prompted with exactly these.
const (
	CategoryBodyMetrics = "身体指标"
	CategoryAllergy     = "过敏信息"
	CategoryDisease     = "疾病史"
	CategoryLifestyle   = "生活习惯"
	CategoryMedication  = "用药情况"
)

// ImportantCategory reports whether records of a category are always marked
// important (allergies, disease history, medications).
func ImportantCategory(category string) bool {
	switch category {
	case CategoryAllergy, CategoryDisease, CategoryMedication:
		return true
	default:
		return false
	}
}

// AnonymousUserID marks a user whose data is never persisted.
const AnonymousUserID = "anonymous"

// IsAnonymous reports whether a user ID short-circuits all storage.
func IsAnonymous(userID string) bool {
	return userID == "" || userID == AnonymousUserID
}

// User is an account in the profile store.
type User struct {
	ID          string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// Record is one categorized health fact about a user.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Important bool      `json:"important"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence contract for users, profiles and health records.
// AddRecord deduplicates on (user, category, content) and reports false for
// duplicates. Records are returned important-first, newest-first.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	TouchUser(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error

	SaveProfile(ctx context.Context, userID string, profile *Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	AddRecord(ctx context.Context, rec *Record) (bool, error)
	Records(ctx context.Context, userID string) ([]*Record, error)
	RecordsByCategory(ctx context.Context, userID, category string) ([]*Record, error)
	DeleteRecord(ctx context.Context, userID, category, content string) error
	ClearRecords(ctx context.Context, userID string) error

	Close() error
}
