package auth

import (
	"context"
	"testing"
)

func TestWithAuthRoundTrip(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{
		UserID:    7,
		Email:     "alice@example.com",
		SessionID: 42,
	})

	ac, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected auth context")
	}
	if ac.UserID != 7 || ac.Email != "alice@example.com" || ac.SessionID != 42 {
		t.Errorf("round trip = %+v", ac)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no auth context on a bare context")
	}
}

func TestHelpersZeroValues(t *testing.T) {
	ctx := context.Background()
	if UserID(ctx) != 0 {
		t.Errorf("UserID = %d, want 0", UserID(ctx))
	}
	if Email(ctx) != "" {
		t.Errorf("Email = %q, want empty", Email(ctx))
	}
}

func TestHelpers(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 3, Email: "bob@example.com"})
	if UserID(ctx) != 3 {
		t.Errorf("UserID = %d, want 3", UserID(ctx))
	}
	if Email(ctx) != "bob@example.com" {
		t.Errorf("Email = %q", Email(ctx))
	}
}
