package worker

import (
	"testing"
	"time"
)

func TestSubmitAcceptedOnFreshGuard(t *testing.T) {
	// The very first trigger after startup must never be dropped.
	for i := 0; i < 100; i++ {
		g := NewGuard()
		if !g.Submit(func() {}) {
			t.Fatalf("iteration %d: submit on an idle guard was dropped", i)
		}
		g.Close()
	}
}

func TestSubmitDropsWhileBusy(t *testing.T) {
	g := NewGuard()

	started := make(chan struct{})
	release := make(chan struct{})

	if !g.Submit(func() {
		close(started)
		<-release
	}) {
		t.Fatal("First submit should be accepted")
	}
	<-started

	if g.Submit(func() {}) {
		t.Error("Second submit must be dropped while the first task runs")
	}
	close(release)
	g.Close()
}

func TestSubmitAcceptsAfterCompletion(t *testing.T) {
	g := NewGuard()
	defer g.Close()

	done := make(chan struct{})
	if !g.Submit(func() { close(done) }) {
		t.Fatal("First submit should be accepted")
	}
	<-done
	// The slot is released before the task goroutine signals the
	// wait group, so after Wait the guard is deterministically idle.
	g.wg.Wait()

	ran := make(chan struct{})
	if !g.Submit(func() { close(ran) }) {
		t.Fatal("Submit after task completion must be accepted")
	}
	<-ran
}

func TestCloseWaitsForInFlightTask(t *testing.T) {
	g := NewGuard()

	ran := false
	if !g.Submit(func() {
		time.Sleep(20 * time.Millisecond)
		ran = true
	}) {
		t.Fatal("Submit should be accepted")
	}
	g.Close()
	if !ran {
		t.Error("Close returned before the in-flight task finished")
	}
}

func TestSubmitRejectedAfterClose(t *testing.T) {
	g := NewGuard()
	g.Close()
	if g.Submit(func() {}) {
		t.Error("Submit after Close must be rejected")
	}
}
