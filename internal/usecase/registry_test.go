package usecase

import "testing"

func TestRegistryRegisterAndRemove(t *testing.T) {
	r := NewPendingRegistry()
	r.Register("s1", 1, func() {})
	if !r.Pending("s1", 1) {
		t.Fatal("expected request to be pending")
	}
	r.Remove("s1", 1)
	if r.Pending("s1", 1) {
		t.Fatal("expected request to be gone after Remove")
	}
}

func TestRegistryCancelInvokesAndRemoves(t *testing.T) {
	r := NewPendingRegistry()
	called := 0
	r.Register("s1", 1, func() { called++ })

	r.Cancel("s1", 1)
	if called != 1 {
		t.Fatalf("cancel called %d times, want 1", called)
	}
	if r.Pending("s1", 1) {
		t.Fatal("expected request to be gone after Cancel")
	}

	// cancelling again is a no-op
	r.Cancel("s1", 1)
	if called != 1 {
		t.Fatalf("cancel called %d times after second Cancel, want 1", called)
	}
}

func TestRegistrySupersedeCancelsPrevious(t *testing.T) {
	r := NewPendingRegistry()
	firstCancelled := false
	r.Register("s1", 1, func() { firstCancelled = true })
	r.Register("s1", 1, func() {})

	if !firstCancelled {
		t.Fatal("registering the same key must cancel the superseded handle")
	}
	if !r.Pending("s1", 1) {
		t.Fatal("the new handle must remain registered")
	}
}

func TestRegistryCancelAll(t *testing.T) {
	r := NewPendingRegistry()
	var cancelled int
	r.Register("s1", 1, func() { cancelled++ })
	r.Register("s1", 2, func() { cancelled++ })
	r.Register("s2", 7, func() { cancelled++ })

	r.CancelAll()
	if cancelled != 3 {
		t.Fatalf("cancelled %d handles, want 3", cancelled)
	}
	if r.Pending("s1", 1) || r.Pending("s1", 2) || r.Pending("s2", 7) {
		t.Fatal("registry must be empty after CancelAll")
	}
}
