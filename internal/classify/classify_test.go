package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFallback(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Milk", "Dairy"},
		{"  bread ", "Bakery"},
		{"whole milk", "Dairy"},
		{"ice cream", "Frozen"},
		{"frozen peas", "Frozen"},
		{"toilet paper", "Household"},
		{"mystery gadget", "Other"},
		{"", "Other"},
	}
	for _, tt := range tests {
		if got := Fallback(tt.name); got != tt.want {
			t.Errorf("Fallback(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCategorizeRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("path = %q, want /classify", r.URL.Path)
		}
		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "dragon fruit" {
			t.Errorf("name = %q, want dragon fruit", req.Name)
		}
		json.NewEncoder(w).Encode(map[string]string{"category": "Produce"})
	}))
	defer srv.Close()

	s := NewService(srv.URL)
	if got := s.Categorize(context.Background(), "dragon fruit"); got != "Produce" {
		t.Errorf("Categorize = %q, want Produce", got)
	}
}

func TestCategorizeDegradesOnError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewService(srv.URL)
	if got := s.Categorize(context.Background(), "milk"); got != "Dairy" {
		t.Errorf("Categorize = %q, want Dairy fallback", got)
	}
	if calls.Load() != 3 {
		t.Errorf("remote calls = %d, want 3 (initial + 2 retries)", calls.Load())
	}
}

func TestCategorizeUnconfigured(t *testing.T) {
	s := NewService("")
	if got := s.Categorize(context.Background(), "gizmo"); got != DefaultCategory {
		t.Errorf("Categorize = %q, want %q", got, DefaultCategory)
	}
}
