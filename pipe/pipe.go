// Package pipe defines the Pipe contract pipeline stages implement, and
// the two general-purpose pipes BEAST ships: EvolutionPipe (the
// evaluate/select/recombine stage) and SinkPipe (retains the
// best-scoring candidate seen).
package pipe

import "context"

// Pipe is one stage of a Pipeline: a bounded amount of buffered state
// with named input/output slots, executed one cycle at a time by the
// owning Pipeline's worker goroutine. Implementations must be safe for
// sequential (not concurrent) use: a Pipe belongs to exactly one worker
// goroutine for its whole lifetime.
type Pipe interface {
	// InputSlotCount and OutputSlotCount report a Pipe's fixed slot
	// counts, queried once at wiring time.
	InputSlotCount() int
	OutputSlotCount() int

	// HasSpace reports whether the Pipe can currently accept another
	// input item on any slot.
	HasSpace() bool
	// HasOutput reports whether slot currently holds an item ready to be
	// drawn.
	HasOutput(slot int) bool

	// InputsAreSaturated and OutputsAreSaturated gate Execute: a Pipe
	// only runs once it has enough input to make progress and enough
	// free output capacity to hold what it will produce.
	InputsAreSaturated() bool
	OutputsAreSaturated() bool

	// AddInput delivers one item to slot. Callers must check HasSpace
	// first; AddInput on a full Pipe is a programming error.
	AddInput(slot int, data []byte)
	// DrawOutput removes and returns the item waiting on slot. Callers
	// must check HasOutput first.
	DrawOutput(slot int) []byte

	// Execute runs one unit of the Pipe's work. Called only when
	// InputsAreSaturated and !OutputsAreSaturated both hold. Must not
	// block past ctx's deadline/cancellation.
	Execute(ctx context.Context) error
}
