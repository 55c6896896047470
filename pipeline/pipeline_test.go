package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"
)

// countingPipe emits an incrementing byte value on its single output
// slot once per Execute, and records everything fed into its single
// input slot. It has no saturation requirement so the worker loop
// exercises it every cycle.
type countingPipe struct {
	mu       sync.Mutex
	emitted  int
	received [][]byte
	out      []byte
}

func (p *countingPipe) InputSlotCount() int  { return 1 }
func (p *countingPipe) OutputSlotCount() int { return 1 }
func (p *countingPipe) HasSpace() bool       { return true }

func (p *countingPipe) HasOutput(slot int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slot == 0 && p.out != nil
}

func (p *countingPipe) InputsAreSaturated() bool  { return true }
func (p *countingPipe) OutputsAreSaturated() bool { return false }

func (p *countingPipe) AddInput(slot int, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.received = append(p.received, cp)
}

func (p *countingPipe) DrawOutput(slot int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.out
	p.out = nil
	return out
}

func (p *countingPipe) Execute(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emitted++
	p.out = []byte{byte(p.emitted)}
	return nil
}

func (p *countingPipe) receivedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.received)
}

func TestPipelineConnectsSourceToDestination(t *testing.T) {
	CycleQuantum = time.Millisecond
	defer func() { CycleQuantum = 10 * time.Millisecond }()

	source := &countingPipe{}
	dest := &countingPipe{}

	pl := New(nil)
	if err := pl.AddPipe("source", source); err != nil {
		t.Fatalf("AddPipe source: %v", err)
	}
	if err := pl.AddPipe("dest", dest); err != nil {
		t.Fatalf("AddPipe dest: %v", err)
	}
	if err := pl.ConnectPipes("source", 0, "dest", 0, 8); err != nil {
		t.Fatalf("ConnectPipes: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pl.Stop()

	deadline := time.After(2 * time.Second)
	for dest.receivedCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("destination never received anything from source")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAddPipeRejectsDuplicateNames(t *testing.T) {
	pl := New(nil)
	if err := pl.AddPipe("a", &countingPipe{}); err != nil {
		t.Fatalf("first AddPipe: %v", err)
	}
	if err := pl.AddPipe("a", &countingPipe{}); err == nil {
		t.Fatal("expected duplicate pipe name to be rejected")
	}
}

func TestConnectPipesRejectsUnknownPipe(t *testing.T) {
	pl := New(nil)
	pl.AddPipe("a", &countingPipe{})
	if err := pl.ConnectPipes("a", 0, "missing", 0, 4); err == nil {
		t.Fatal("expected connecting to an unregistered pipe to fail")
	}
}

func TestStopWithoutStartFails(t *testing.T) {
	pl := New(nil)
	if err := pl.Stop(); err == nil {
		t.Fatal("expected Stop on a never-started pipeline to fail")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	cycles int
}

func (s *recordingSink) PipeCycle(name string, saturated bool) {
	s.mu.Lock()
	s.cycles++
	s.mu.Unlock()
}
func (s *recordingSink) BestScore(name string, score float64) {}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// sequenceSource emits the integers 1..10 one per Execute call, queuing
// them until drawn so that nothing is lost on the source side; it only
// exercises backpressure through the Connection between it and whatever
// it feeds.
type sequenceSource struct {
	mu      sync.Mutex
	next    byte
	pending [][]byte
}

func (p *sequenceSource) InputSlotCount() int  { return 0 }
func (p *sequenceSource) OutputSlotCount() int { return 1 }
func (p *sequenceSource) HasSpace() bool       { return false }

func (p *sequenceSource) HasOutput(slot int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slot == 0 && len(p.pending) > 0
}

func (p *sequenceSource) InputsAreSaturated() bool  { return true }
func (p *sequenceSource) OutputsAreSaturated() bool { return false }

func (p *sequenceSource) AddInput(slot int, data []byte) {}

func (p *sequenceSource) DrawOutput(slot int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slot != 0 || len(p.pending) == 0 {
		return nil
	}
	data := p.pending[0]
	p.pending = p.pending[1:]
	return data
}

func (p *sequenceSource) Execute(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next >= 10 {
		return nil
	}
	p.next++
	p.pending = append(p.pending, []byte{p.next})
	return nil
}

// summingSink accumulates every byte delivered to its single input slot.
type summingSink struct {
	mu  sync.Mutex
	sum int
}

func (p *summingSink) InputSlotCount() int  { return 1 }
func (p *summingSink) OutputSlotCount() int { return 0 }
func (p *summingSink) HasSpace() bool       { return true }
func (p *summingSink) HasOutput(slot int) bool { return false }
func (p *summingSink) InputsAreSaturated() bool  { return false }
func (p *summingSink) OutputsAreSaturated() bool { return false }

func (p *summingSink) AddInput(slot int, data []byte) {
	if slot != 0 || len(data) == 0 {
		return
	}
	p.mu.Lock()
	p.sum += int(data[0])
	p.mu.Unlock()
}

func (p *summingSink) DrawOutput(slot int) []byte { return nil }

func (p *summingSink) Execute(ctx context.Context) error { return nil }

func (p *summingSink) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sum
}

// TestPipelineDeliversEveryItemUnderBackpressure is spec scenario 5: a
// source emitting 1..10 feeds a summing sink through a connection whose
// buffer (size 4) is smaller than the total item count, forcing the
// worker loop to throttle draws on the source side repeatedly. No item
// may be lost in the process.
func TestPipelineDeliversEveryItemUnderBackpressure(t *testing.T) {
	CycleQuantum = time.Millisecond
	defer func() { CycleQuantum = 10 * time.Millisecond }()

	source := &sequenceSource{}
	sink := &summingSink{}

	pl := New(nil)
	if err := pl.AddPipe("source", source); err != nil {
		t.Fatalf("AddPipe source: %v", err)
	}
	if err := pl.AddPipe("sink", sink); err != nil {
		t.Fatalf("AddPipe sink: %v", err)
	}
	if err := pl.ConnectPipes("source", 0, "sink", 0, 4); err != nil {
		t.Fatalf("ConnectPipes: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pl.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for sink.total() < 55 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for full delivery, accumulated sum = %d, want 55", sink.total())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := pl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := sink.total(); got != 55 {
		t.Fatalf("accumulated sum = %d, want 55", got)
	}
}

func TestEventSinkReceivesPipeCycles(t *testing.T) {
	CycleQuantum = time.Millisecond
	defer func() { CycleQuantum = 10 * time.Millisecond }()

	sink := &recordingSink{}
	pl := New(sink)
	pl.AddPipe("solo", &countingPipe{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pl.Start(ctx)
	defer pl.Stop()

	deadline := time.After(2 * time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("sink never observed a pipe cycle")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
