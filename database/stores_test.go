package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"grooby/docstore"
	"grooby/identity"
	"grooby/market"
	"grooby/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a migrated SQLite database private to the test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "grooby.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestDocumentStore_RevisionConditionalWrites(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(openTestDB(t))

	if _, err := store.Get(ctx, docstore.Wallets, "u1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}

	rev, err := store.Put(ctx, docstore.Wallets, "u1", []byte(`{"tokens":[]}`), 0)
	if err != nil || rev != 1 {
		t.Fatalf("Put(create) = %d, %v, want 1", rev, err)
	}
	if _, err := store.Put(ctx, docstore.Wallets, "u1", []byte(`{}`), 0); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("Put(duplicate create) = %v, want ErrConflict", err)
	}

	rev, err = store.Put(ctx, docstore.Wallets, "u1", []byte(`{"tokens":[1]}`), 1)
	if err != nil || rev != 2 {
		t.Fatalf("Put(rev 1) = %d, %v, want 2", rev, err)
	}
	if _, err := store.Put(ctx, docstore.Wallets, "u1", []byte(`{"tokens":[2]}`), 1); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("Put(stale rev 1) = %v, want ErrConflict", err)
	}

	doc, err := store.Get(ctx, docstore.Wallets, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Revision != 2 || string(doc.Body) != `{"tokens":[1]}` {
		t.Errorf("Get() = rev %d body %s, want rev 2 body {\"tokens\":[1]}", doc.Revision, doc.Body)
	}

	// Namespaces are independent.
	if _, err := store.Put(ctx, docstore.Profiles, "u1", []byte(`{"uid":"u1"}`), 0); err != nil {
		t.Fatalf("Put(profile) error = %v", err)
	}
}

func TestAccountStore(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(openTestDB(t))

	a := identity.Account{
		ID:           "0b6f7c1e-5d1a-4a43-9d1e-5b7f1f0f9a11",
		Email:        "Ada@Example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := a
	dup.ID = "5a0e2a57-8d2e-4d86-8c8e-4f0f6b1c2d33"
	dup.Email = "ada@example.COM"
	if err := store.Create(ctx, dup); !errors.Is(err, identity.ErrAccountExists) {
		t.Fatalf("Create(duplicate email) = %v, want ErrAccountExists", err)
	}

	got, err := store.FindByEmail(ctx, " ADA@example.com ")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if got.ID != a.ID || got.Email != "ada@example.com" || got.PasswordHash != "hash" {
		t.Errorf("FindByEmail() = %+v", got)
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.FindByEmail(ctx, a.Email); !errors.Is(err, identity.ErrAccountNotFound) {
		t.Fatalf("FindByEmail(after delete) = %v, want ErrAccountNotFound", err)
	}
	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}
}

func TestPriceRecorder(t *testing.T) {
	ctx := context.Background()
	rec := NewPriceRecorder(openTestDB(t))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []market.Snapshot{
		{Symbol: "SOL", Price: decimal.RequireFromString("20.5"), At: base},
		{Symbol: "WETH", Price: decimal.RequireFromString("3000"), At: base},
		{Symbol: "SOL", Price: decimal.RequireFromString("21.25"), At: base.Add(time.Minute)},
		{Symbol: "SOL", Price: decimal.RequireFromString("22"), At: base.Add(2 * time.Minute)},
	}
	if err := rec.Record(ctx, snapshots); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := rec.Record(ctx, nil); err != nil {
		t.Fatalf("Record(nil) error = %v", err)
	}

	history, err := rec.History(ctx, "SOL", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(history))
	}
	for i, want := range []string{"22", "21.25"} {
		if !history[i].Price.Equal(decimal.RequireFromString(want)) {
			t.Errorf("History[%d].Price = %s, want %s", i, history[i].Price, want)
		}
	}
}

func TestCreateInBatches(t *testing.T) {
	db := openTestDB(t)
	rows := make([]models.PriceSnapshot, 5)
	for i := range rows {
		rows[i] = models.PriceSnapshot{Symbol: "SOL", Price: decimal.NewFromInt(int64(i + 1)), Timestamp: time.Now().UTC()}
	}
	if err := CreateInBatches(db, rows, 2); err != nil {
		t.Fatalf("CreateInBatches() error = %v", err)
	}
	var n int64
	if err := db.Model(&models.PriceSnapshot{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("stored %d rows, want 5", n)
	}
}
