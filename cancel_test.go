package jangkau

import (
	"context"
	"testing"
)

func TestCancelRegisterRelease(t *testing.T) {
	reg := newCancelRegistry()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := reg.register("users", cancel)
	if reg.active() != 1 {
		t.Errorf("Expected 1 active token, got %d", reg.active())
	}

	release()
	if reg.active() != 0 {
		t.Errorf("Expected 0 active tokens after release, got %d", reg.active())
	}

	release() // idempotent
	if reg.active() != 0 {
		t.Errorf("Second release changed state, active=%d", reg.active())
	}
}

func TestCancelAbortByName(t *testing.T) {
	reg := newCancelRegistry()

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	ctx3, cancel3 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()
	defer cancel3()

	reg.register("users", cancel1)
	reg.register("users", cancel2)
	reg.register("orders", cancel3)

	n := reg.abort("users")
	if n != 2 {
		t.Errorf("Expected 2 aborted calls, got %d", n)
	}

	if ctx1.Err() == nil || ctx2.Err() == nil {
		t.Error("Aborted contexts should be canceled")
	}
	if ctx3.Err() != nil {
		t.Error("Other endpoint's context should be untouched")
	}
	if reg.active() != 1 {
		t.Errorf("Expected 1 remaining token, got %d", reg.active())
	}

	if again := reg.abort("users"); again != 0 {
		t.Errorf("Abort of an empty name should report 0, got %d", again)
	}
}

func TestCancelAbortAll(t *testing.T) {
	reg := newCancelRegistry()

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	reg.register("users", cancel1)
	reg.register("orders", cancel2)

	n := reg.abortAll()
	if n != 2 {
		t.Errorf("Expected 2 aborted calls, got %d", n)
	}
	if ctx1.Err() == nil || ctx2.Err() == nil {
		t.Error("All contexts should be canceled")
	}
	if reg.active() != 0 {
		t.Errorf("Expected empty registry, active=%d", reg.active())
	}
}

func TestCancelReleaseAfterAbort(t *testing.T) {
	reg := newCancelRegistry()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := reg.register("users", cancel)
	reg.abort("users")

	// The call's deferred release must not disturb later registrations.
	release()

	_, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	reg.register("users", cancel2)
	if reg.active() != 1 {
		t.Errorf("Expected 1 active token, got %d", reg.active())
	}
}
