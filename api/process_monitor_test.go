package api

import (
	"os"
	"sync"
	"testing"
	"time"
)

// These exercise ProcessMonitor as beast serve uses it: wired to the
// server's shutdown path (cmd/beast/main.go) so that beast serve exits
// cleanly if whatever launched it (e.g. a supervising shell) dies first.

func TestProcessMonitorTracksServeParentPID(t *testing.T) {
	shutdownCalled := false
	shutdown := func() { shutdownCalled = true }

	monitor := NewProcessMonitor(shutdown)

	if monitor.parentPID != os.Getppid() {
		t.Errorf("expected parent PID %d, got %d", os.Getppid(), monitor.parentPID)
	}

	if monitor.checkInterval != 2*time.Second {
		t.Errorf("expected check interval 2s, got %v", monitor.checkInterval)
	}

	if monitor.shutdownFunc == nil {
		t.Error("expected shutdown function to be set")
	}

	if monitor.stopChan == nil {
		t.Error("expected stop channel to be initialized")
	}

	if shutdownCalled {
		t.Error("shutdown should not fire during construction")
	}
}

func TestProcessMonitorStopDuringNormalServeShutdownSkipsCallback(t *testing.T) {
	shutdownCalled := false
	shutdown := func() { shutdownCalled = true }

	monitor := NewProcessMonitor(shutdown)
	monitor.Start()

	time.Sleep(100 * time.Millisecond)

	// beast serve calls monitor.Stop() itself once it has already begun
	// an orderly shutdown (SIGTERM, SIGINT); the monitor must not also
	// invoke the shutdown callback in that case.
	monitor.Stop()

	time.Sleep(100 * time.Millisecond)

	if shutdownCalled {
		t.Error("shutdown callback should not fire on an explicit, graceful Stop")
	}
}

func TestProcessMonitorTriggersServeShutdownWhenParentExits(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	shutdownCalled := false
	var mu sync.Mutex

	shutdown := func() {
		mu.Lock()
		shutdownCalled = true
		mu.Unlock()
		wg.Done()
	}

	monitor := NewProcessMonitor(shutdown)
	monitor.checkInterval = 10 * time.Millisecond

	// Simulate the parent that launched beast serve exiting: the OS
	// reparents beast serve, changing its PPID.
	monitor.parentPID = 99999 // non-existent PID

	monitor.Start()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for beast serve's shutdown callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if !shutdownCalled {
		t.Error("expected shutdown to fire once the parent PID changes")
	}
}

func TestProcessMonitorStopIsIdempotentAcrossRepeatedServeShutdownAttempts(t *testing.T) {
	shutdown := func() {}

	monitor := NewProcessMonitor(shutdown)
	monitor.Start()

	time.Sleep(50 * time.Millisecond)

	// Stop must tolerate repeated calls on a started monitor without
	// panicking.
	monitor.Stop()
	monitor.Stop()
	monitor.Stop()
}

func TestProcessMonitorStopBeforeServeEverStarted(t *testing.T) {
	shutdown := func() {}

	monitor := NewProcessMonitor(shutdown)

	// Stop must be safe on a monitor whose Start was never called.
	monitor.Stop()
}
