package health

import (
	"context"
	"errors"
	"testing"
)

func TestCheckAll_EmptyRegistryIsHealthy(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should report healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected no statuses, got %d", len(statuses))
	}
}

func TestCheckAll_AggregatesResults(t *testing.T) {
	r := NewRegistry()
	r.Register("db", func(ctx context.Context) Status {
		return Status{Name: "db", Healthy: true}
	})
	r.Register("provider", func(ctx context.Context) Status {
		return Status{Name: "provider", Healthy: false, Detail: "timeout"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("expected unhealthy aggregate when one checker fails")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[1].Detail != "timeout" {
		t.Errorf("expected detail to propagate, got %q", statuses[1].Detail)
	}
}

func TestRegisterPing(t *testing.T) {
	r := NewRegistry()
	r.RegisterPing("ok", func(ctx context.Context) error { return nil })
	r.RegisterPing("down", func(ctx context.Context) error { return errors.New("conn refused") })

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("expected unhealthy aggregate")
	}
	if !statuses[0].Healthy || statuses[0].Name != "ok" {
		t.Errorf("unexpected first status: %+v", statuses[0])
	}
	if statuses[1].Healthy || statuses[1].Detail != "conn refused" {
		t.Errorf("unexpected second status: %+v", statuses[1])
	}
}
