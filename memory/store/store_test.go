package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/memory"
)

func openStores(t *testing.T) map[string]memory.Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]memory.Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestUserLifecycle(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.CreateUser(ctx, &memory.User{ID: "u1", DisplayName: "张三"}); err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
			err := s.CreateUser(ctx, &memory.User{ID: "u1"})
			if !errors.Is(err, errorskg.ErrAlreadyExists) {
				t.Fatalf("duplicate CreateUser error = %v, want ErrAlreadyExists", err)
			}

			u, err := s.GetUser(ctx, "u1")
			if err != nil {
				t.Fatalf("GetUser: %v", err)
			}
			if u.DisplayName != "张三" {
				t.Errorf("DisplayName = %q, want 张三", u.DisplayName)
			}
			if u.CreatedAt.IsZero() || u.LastActive.IsZero() {
				t.Errorf("timestamps not populated: %+v", u)
			}

			if err := s.TouchUser(ctx, "u1"); err != nil {
				t.Fatalf("TouchUser: %v", err)
			}
			if err := s.TouchUser(ctx, "missing"); !errors.Is(err, errorskg.ErrNotFound) {
				t.Fatalf("TouchUser missing = %v, want ErrNotFound", err)
			}

			if err := s.DeleteUser(ctx, "u1"); err != nil {
				t.Fatalf("DeleteUser: %v", err)
			}
			if _, err := s.GetUser(ctx, "u1"); !errors.Is(err, errorskg.ErrNotFound) {
				t.Fatalf("GetUser after delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestProfileRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.GetProfile(ctx, "u1"); !errors.Is(err, errorskg.ErrNotFound) {
				t.Fatalf("GetProfile empty = %v, want ErrNotFound", err)
			}

			in := &memory.Profile{
				Gender:          "男",
				Age:             30,
				HeightCM:        175,
				WeightKG:        70,
				ChronicDiseases: []string{"高血压"},
				Allergies:       []string{"青霉素"},
			}
			if err := s.SaveProfile(ctx, "u1", in); err != nil {
				t.Fatalf("SaveProfile: %v", err)
			}

			out, err := s.GetProfile(ctx, "u1")
			if err != nil {
				t.Fatalf("GetProfile: %v", err)
			}
			if out.Gender != "男" || out.Age != 30 || out.HeightCM != 175 || out.WeightKG != 70 {
				t.Errorf("profile fields lost: %+v", out)
			}
			if len(out.Allergies) != 1 || out.Allergies[0] != "青霉素" {
				t.Errorf("Allergies = %v, want [青霉素]", out.Allergies)
			}
			if out.UpdatedAt.IsZero() {
				t.Error("UpdatedAt not populated")
			}

			// Overwrite replaces, not merges.
			in.Age = 31
			in.Allergies = nil
			if err := s.SaveProfile(ctx, "u1", in); err != nil {
				t.Fatalf("SaveProfile update: %v", err)
			}
			out, err = s.GetProfile(ctx, "u1")
			if err != nil {
				t.Fatalf("GetProfile after update: %v", err)
			}
			if out.Age != 31 || len(out.Allergies) != 0 {
				t.Errorf("update not applied: %+v", out)
			}
		})
	}
}

func TestRecordDedupAndOrdering(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

			add := func(category, content string, important bool, offset time.Duration) bool {
				t.Helper()
				added, err := s.AddRecord(ctx, &memory.Record{
					UserID:    "u1",
					Category:  category,
					Content:   content,
					Important: important,
					CreatedAt: base.Add(offset),
				})
				if err != nil {
					t.Fatalf("AddRecord(%s): %v", content, err)
				}
				return added
			}

			if !add(memory.CategoryLifestyle, "每天跑步30分钟", false, 0) {
				t.Fatal("first insert reported duplicate")
			}
			if !add(memory.CategoryLifestyle, "每周游泳两次", false, time.Minute) {
				t.Fatal("second insert reported duplicate")
			}
			if !add(memory.CategoryAllergy, "对青霉素过敏", true, 2*time.Minute) {
				t.Fatal("third insert reported duplicate")
			}
			if add(memory.CategoryLifestyle, "每天跑步30分钟", false, 3*time.Minute) {
				t.Fatal("duplicate insert reported added")
			}

			recs, err := s.Records(ctx, "u1")
			if err != nil {
				t.Fatalf("Records: %v", err)
			}
			if len(recs) != 3 {
				t.Fatalf("len(records) = %d, want 3", len(recs))
			}
			want := []string{"对青霉素过敏", "每周游泳两次", "每天跑步30分钟"}
			for i, rec := range recs {
				if rec.Content != want[i] {
					t.Errorf("records[%d] = %q, want %q", i, rec.Content, want[i])
				}
			}
			if !recs[0].Important {
				t.Error("important record not sorted first")
			}

			byCat, err := s.RecordsByCategory(ctx, "u1", memory.CategoryLifestyle)
			if err != nil {
				t.Fatalf("RecordsByCategory: %v", err)
			}
			if len(byCat) != 2 {
				t.Fatalf("len(lifestyle records) = %d, want 2", len(byCat))
			}

			if err := s.DeleteRecord(ctx, "u1", memory.CategoryLifestyle, "每周游泳两次"); err != nil {
				t.Fatalf("DeleteRecord: %v", err)
			}
			err = s.DeleteRecord(ctx, "u1", memory.CategoryLifestyle, "每周游泳两次")
			if !errors.Is(err, errorskg.ErrNotFound) {
				t.Fatalf("DeleteRecord repeat = %v, want ErrNotFound", err)
			}

			if err := s.ClearRecords(ctx, "u1"); err != nil {
				t.Fatalf("ClearRecords: %v", err)
			}
			recs, err = s.Records(ctx, "u1")
			if err != nil {
				t.Fatalf("Records after clear: %v", err)
			}
			if len(recs) != 0 {
				t.Errorf("records remain after clear: %d", len(recs))
			}
		})
	}
}

func TestAddRecordValidation(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.AddRecord(context.Background(), &memory.Record{UserID: "", Content: "x"}); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("missing user = %v, want ErrInvalidInput", err)
	}
	if _, err := s.AddRecord(context.Background(), &memory.Record{UserID: "u1", Content: ""}); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("missing content = %v, want ErrInvalidInput", err)
	}
}

func TestPostgresConfigDSN(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Password = "secret"
	dsn := cfg.DSN()
	want := "host=localhost port=5432 user=postgres password=secret dbname=health_agent sslmode=disable"
	if dsn != want {
		t.Errorf("DSN = %q, want %q", dsn, want)
	}
}
