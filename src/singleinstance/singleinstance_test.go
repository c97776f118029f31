package singleinstance

import "testing"

func TestAcquireBlocksSecondInstance(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT", "49881")

	first, err := Acquire()
	if err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	defer first.Release()

	if second, err := Acquire(); err == nil {
		second.Release()
		t.Fatal("Second acquire should fail while the first lock is held")
	}
}

func TestAcquireAfterRelease(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT", "49882")

	first, err := Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	first.Release()

	second, err := Acquire()
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	second.Release()
}

func TestPortClamping(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT", "80")
	if got := port(); got != 1024 {
		t.Errorf("port() = %d, want clamped to 1024", got)
	}
	t.Setenv("SINGLEINSTANCE_PORT", "99999")
	if got := port(); got != 65535 {
		t.Errorf("port() = %d, want clamped to 65535", got)
	}
}
