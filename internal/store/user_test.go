package store

import (
	"testing"

	"github.com/dmfarrell/trolley/internal/database"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("Alice@Example.com", "Alice", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice@example.com", "Alice", "secret"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("ALICE@example.com", "Alice2", "secret"); err == nil {
		t.Fatal("expected error for duplicate email, got nil")
	}
}

func TestUserGetByEmailNormalizes(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("alice@example.com", "Alice", "secret"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, err := us.GetByEmail("  ALICE@example.com ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user for normalized email lookup")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserAuthenticate(t *testing.T) {
	us := setupUserTestDB(t)

	created, err := us.Create("alice@example.com", "Alice", "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, err := us.Authenticate("alice@example.com", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Fatalf("authenticate = %v, want the created user", u)
	}

	u, err = us.Authenticate("alice@example.com", "wrong")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u != nil {
		t.Error("wrong password should not authenticate")
	}

	u, err = us.Authenticate("nobody@example.com", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u != nil {
		t.Error("unknown email should not authenticate")
	}
}
