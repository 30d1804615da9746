package idgen

import (
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	id := New()
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("expected 5 dash-separated groups, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("expected 36 chars, got %d in %q", len(id), id)
	}
}

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("tnt_")
	if !strings.HasPrefix(id, "tnt_") {
		t.Fatalf("missing prefix: %q", id)
	}
	if len(id) != len("tnt_")+24 {
		t.Fatalf("expected prefix + 24 hex chars, got %q", id)
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := WithPrefix("evt_")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
