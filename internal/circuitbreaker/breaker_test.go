package circuitbreaker

import (
	"testing"
	"time"
)

func TestAllowUnknownKey(t *testing.T) {
	b := New(3, time.Minute)
	if !b.Allow("bot-a") {
		t.Fatal("unknown key should be allowed")
	}
	if b.State("bot-a") != StateClosed {
		t.Fatalf("unknown key state = %v, want closed", b.State("bot-a"))
	}
}

func TestTripsAtThreshold(t *testing.T) {
	b := New(3, time.Minute)

	b.RecordFailure("bot-a")
	b.RecordFailure("bot-a")
	if b.State("bot-a") != StateClosed {
		t.Fatal("circuit tripped below threshold")
	}

	b.RecordFailure("bot-a")
	if b.State("bot-a") != StateOpen {
		t.Fatal("circuit did not trip at threshold")
	}
	if b.Allow("bot-a") {
		t.Fatal("open circuit should reject")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	b := New(1, time.Minute)

	b.RecordFailure("bot-a")
	if b.Allow("bot-a") {
		t.Fatal("bot-a should be open")
	}
	if !b.Allow("bot-b") {
		t.Fatal("bot-b should be unaffected")
	}
}

func TestSuccessResetsFailures(t *testing.T) {
	b := New(3, time.Minute)

	b.RecordFailure("bot-a")
	b.RecordFailure("bot-a")
	b.RecordSuccess("bot-a")
	b.RecordFailure("bot-a")
	b.RecordFailure("bot-a")

	if b.State("bot-a") != StateClosed {
		t.Fatal("failure count should reset after a success")
	}
}

func TestHalfOpenProbe(t *testing.T) {
	b := New(1, 10*time.Millisecond)

	b.RecordFailure("bot-a")
	if b.Allow("bot-a") {
		t.Fatal("circuit should be open")
	}

	time.Sleep(20 * time.Millisecond)

	if !b.Allow("bot-a") {
		t.Fatal("elapsed open circuit should admit a probe")
	}
	if b.State("bot-a") != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State("bot-a"))
	}
	if b.Allow("bot-a") {
		t.Fatal("second request during probe should be rejected")
	}

	b.RecordSuccess("bot-a")
	if b.State("bot-a") != StateClosed {
		t.Fatal("successful probe should close the circuit")
	}
	if !b.Allow("bot-a") {
		t.Fatal("closed circuit should allow")
	}
}

func TestFailedProbeReopens(t *testing.T) {
	b := New(1, 10*time.Millisecond)

	b.RecordFailure("bot-a")
	time.Sleep(20 * time.Millisecond)

	if !b.Allow("bot-a") {
		t.Fatal("expected probe to be admitted")
	}
	b.RecordFailure("bot-a")

	if b.State("bot-a") != StateOpen {
		t.Fatal("failed probe should reopen the circuit")
	}
	if b.Allow("bot-a") {
		t.Fatal("reopened circuit should reject")
	}
}

func TestNewDefaults(t *testing.T) {
	b := New(0, 0)
	if b.threshold != 5 {
		t.Fatalf("default threshold = %d, want 5", b.threshold)
	}
	if b.openDuration != 30*time.Second {
		t.Fatalf("default open duration = %v, want 30s", b.openDuration)
	}
}
