package catalog

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Milk", "milk"},
		{"  Whole   Milk  ", "whole milk"},
		{"BREAD", "bread"},
		{"", ""},
		{"   ", ""},
		{"Crème Fraîche", "crème fraîche"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"milk", "Milk"},
		{"  whole MILK ", "Whole milk"},
		{"", ""},
		{"épinards", "Épinards"},
	}
	for _, tt := range tests {
		if got := Display(tt.in); got != tt.want {
			t.Errorf("Display(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIsStable(t *testing.T) {
	// Normalizing an already-normalized name must be a no-op, since the
	// result is used as a primary key.
	for _, name := range []string{"milk", "whole milk", "2% milk"} {
		if got := Normalize(Normalize(name)); got != name {
			t.Errorf("Normalize not idempotent for %q: got %q", name, got)
		}
	}
}
