package session

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oredesk/oredesk/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.sqlite")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

// testStoreContract runs the behavior every Store implementation must share
func testStoreContract(t *testing.T, store Store) {
	profile := json.RawMessage(`{"email":"ada@example.com"}`)

	// Empty slot reads as absent
	sess, err := store.Read(ScopeUser)
	if err != nil {
		t.Fatalf("Read empty slot: %v", err)
	}
	if sess != nil {
		t.Fatal("expected nil session for empty slot")
	}

	// Round trip
	if err := store.Write(ScopeUser, "token-1", profile); err != nil {
		t.Fatalf("Write: %v", err)
	}
	sess, err = store.Read(ScopeUser)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sess == nil || sess.Token != "token-1" {
		t.Fatalf("Read = %+v, want token-1", sess)
	}
	if sess.ProfileField("email") != "ada@example.com" {
		t.Errorf("profile did not survive the round trip: %s", sess.Profile)
	}

	// The other slot stays independent
	other, err := store.Read(ScopeAdmin)
	if err != nil {
		t.Fatalf("Read admin slot: %v", err)
	}
	if other != nil {
		t.Fatal("admin slot should be empty after a user write")
	}

	if err := store.Write(ScopeAdmin, "token-admin", json.RawMessage(`{"email":"root@example.com"}`)); err != nil {
		t.Fatalf("Write admin: %v", err)
	}
	if err := store.Clear(ScopeUser); err != nil {
		t.Fatalf("Clear user: %v", err)
	}
	sess, _ = store.Read(ScopeUser)
	if sess != nil {
		t.Fatal("user slot should be empty after Clear")
	}
	other, _ = store.Read(ScopeAdmin)
	if other == nil || other.Token != "token-admin" {
		t.Fatal("clearing the user slot must not touch the admin slot")
	}

	// Overwrite replaces, not appends
	if err := store.Write(ScopeAdmin, "token-admin-2", profile); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	other, _ = store.Read(ScopeAdmin)
	if other == nil || other.Token != "token-admin-2" {
		t.Fatalf("overwrite: got %+v, want token-admin-2", other)
	}

	// Partial writes are refused
	if err := store.Write(ScopeUser, "", profile); err == nil {
		t.Error("expected error writing empty token")
	}
	if err := store.Write(ScopeUser, "tok", nil); err == nil {
		t.Error("expected error writing empty profile")
	}
	if err := store.Write(ScopeUser, "tok", json.RawMessage(`{bad`)); err == nil {
		t.Error("expected error writing malformed profile")
	}

	// Invalid scopes are rejected outright
	if _, err := store.Read(Scope("root")); err == nil {
		t.Error("expected error reading invalid scope")
	}
	if err := store.Write(Scope("root"), "tok", profile); err == nil {
		t.Error("expected error writing invalid scope")
	}

	// Clearing an already empty slot is fine
	if err := store.Clear(ScopeUser); err != nil {
		t.Errorf("Clear empty slot: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestDBStore(t *testing.T) {
	store := NewDBStore(openTestDB(t), nil, zerolog.Nop())
	testStoreContract(t, store)
}

func TestDBStoreSealed(t *testing.T) {
	sealer, err := NewSealer("test-secret")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	gdb := openTestDB(t)
	store := NewDBStore(gdb, sealer, zerolog.Nop())
	testStoreContract(t, store)

	// Token must not be stored in the clear
	if err := store.Write(ScopeUser, "plaintext-token", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var rec models.SessionRecord
	if err := gdb.Where("scope = ?", "user").First(&rec).Error; err != nil {
		t.Fatalf("failed to read raw record: %v", err)
	}
	if rec.Token == "plaintext-token" {
		t.Error("token stored in the clear despite sealer")
	}
}

func TestDBStoreHalfPresentReadsAbsent(t *testing.T) {
	gdb := openTestDB(t)
	store := NewDBStore(gdb, nil, zerolog.Nop())

	// Simulate a half-written row from an older version or a crash
	rec := models.SessionRecord{Scope: "user", Token: "tok", Profile: ""}
	if err := gdb.Create(&rec).Error; err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	sess, err := store.Read(ScopeUser)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sess != nil {
		t.Error("half-present slot must read as absent")
	}
}

func TestDBStoreMalformedProfileReadsAbsent(t *testing.T) {
	gdb := openTestDB(t)
	store := NewDBStore(gdb, nil, zerolog.Nop())

	rec := models.SessionRecord{Scope: "admin", Token: "tok", Profile: "{truncated"}
	if err := gdb.Create(&rec).Error; err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	sess, err := store.Read(ScopeAdmin)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sess != nil {
		t.Error("malformed profile must read as absent")
	}
}

func TestDBStoreUndecryptableTokenReadsAbsent(t *testing.T) {
	gdb := openTestDB(t)
	sealer, _ := NewSealer("test-secret")
	store := NewDBStore(gdb, sealer, zerolog.Nop())

	// A row written before the secret changed
	rec := models.SessionRecord{Scope: "user", Token: "bm90IHNlYWxlZA==", Profile: `{"email":"a@b.c"}`}
	if err := gdb.Create(&rec).Error; err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	sess, err := store.Read(ScopeUser)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sess != nil {
		t.Error("undecryptable token must read as absent")
	}
}
