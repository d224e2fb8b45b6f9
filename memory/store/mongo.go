package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/health-agent/config"
	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
)

// MongoStore implements memory.Store backed by MongoDB.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	profiles *mongo.Collection
	records  *mongo.Collection
	timeout  time.Duration
}

type mongoUser struct {
	ID          string    `bson:"_id"`
	DisplayName string    `bson:"display_name"`
	CreatedAt   time.Time `bson:"created_at"`
	LastActive  time.Time `bson:"last_active"`
}

type mongoProfile struct {
	UserID    string    `bson:"_id"`
	Profile   string    `bson:"profile"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoRecord struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Category  string    `bson:"category"`
	Content   string    `bson:"content"`
	Important bool      `bson:"important"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoStore connects to MongoDB and ensures the record dedup index exists.
func NewMongoStore(cfg MongoConfig) (*MongoStore, error) {
	if err := config.ValidateMongoConfig(cfg.URI, cfg.Database); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:   client,
		users:    db.Collection("users"),
		profiles: db.Collection("profiles"),
		records:  db.Collection("health_records"),
		timeout:  cfg.Timeout,
	}

	_, err = s.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "category", Value: 1},
			{Key: "content", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("create record index: %w", err)
	}
	return s, nil
}

// CreateUser registers a user.
func (s *MongoStore) CreateUser(ctx context.Context, user *memory.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user ID cannot be empty: %w", errorskg.ErrInvalidInput)
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastActive = now

	_, err := s.users.InsertOne(ctx, mongoUser{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
		LastActive:  user.LastActive,
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("user %s: %w", user.ID, errorskg.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *MongoStore) GetUser(ctx context.Context, userID string) (*memory.User, error) {
	var doc mongoUser
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &memory.User{
		ID:          doc.ID,
		DisplayName: doc.DisplayName,
		CreatedAt:   doc.CreatedAt,
		LastActive:  doc.LastActive,
	}, nil
}

// TouchUser bumps the user's last-active timestamp.
func (s *MongoStore) TouchUser(ctx context.Context, userID string) error {
	res, err := s.users.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"last_active": time.Now()}})
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user, their profile and their records.
func (s *MongoStore) DeleteUser(ctx context.Context, userID string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, errorskg.ErrNotFound)
	}
	if _, err := s.profiles.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if _, err := s.records.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

// SaveProfile stores a user's structured profile.
func (s *MongoStore) SaveProfile(ctx context.Context, userID string, profile *memory.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil: %w", errorskg.ErrInvalidInput)
	}

	profile.UpdatedAt = time.Now()
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.profiles.ReplaceOne(ctx,
		bson.M{"_id": userID},
		mongoProfile{UserID: userID, Profile: string(data), UpdatedAt: profile.UpdatedAt},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetProfile returns a user's structured profile.
func (s *MongoStore) GetProfile(ctx context.Context, userID string) (*memory.Profile, error) {
	var doc mongoProfile
	err := s.profiles.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("profile %s: %w", userID, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p memory.Profile
	if err := json.Unmarshal([]byte(doc.Profile), &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	p.UpdatedAt = doc.UpdatedAt
	return &p, nil
}

// AddRecord stores a record, reporting false for duplicates.
func (s *MongoStore) AddRecord(ctx context.Context, rec *memory.Record) (bool, error) {
	if rec == nil || rec.UserID == "" || rec.Content == "" {
		return false, fmt.Errorf("record needs user and content: %w", errorskg.ErrInvalidInput)
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.records.InsertOne(ctx, mongoRecord{
		ID:        id,
		UserID:    rec.UserID,
		Category:  rec.Category,
		Content:   rec.Content,
		Important: rec.Important,
		CreatedAt: created,
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add record: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = created
	return true, nil
}

// Records lists a user's records, important first then newest first.
func (s *MongoStore) Records(ctx context.Context, userID string) ([]*memory.Record, error) {
	return s.findRecords(ctx, bson.M{"user_id": userID})
}

// RecordsByCategory lists a user's records in one category.
func (s *MongoStore) RecordsByCategory(ctx context.Context, userID, category string) ([]*memory.Record, error) {
	return s.findRecords(ctx, bson.M{"user_id": userID, "category": category})
}

func (s *MongoStore) findRecords(ctx context.Context, filter bson.M) ([]*memory.Record, error) {
	sort := bson.D{{Key: "important", Value: -1}, {Key: "created_at", Value: -1}}
	cursor, err := s.records.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	out := make([]*memory.Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, &memory.Record{
			ID:        doc.ID,
			UserID:    doc.UserID,
			Category:  doc.Category,
			Content:   doc.Content,
			Important: doc.Important,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

// DeleteRecord removes one record by its dedup key.
func (s *MongoStore) DeleteRecord(ctx context.Context, userID, category, content string) error {
	res, err := s.records.DeleteOne(ctx, bson.M{
		"user_id":  userID,
		"category": category,
		"content":  content,
	})
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("record %s/%s: %w", category, content, errorskg.ErrNotFound)
	}
	return nil
}

// ClearRecords removes all of a user's records.
func (s *MongoStore) ClearRecords(ctx context.Context, userID string) error {
	if _, err := s.records.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ memory.Store = (*MongoStore)(nil)
