package pipe

import (
	"context"
	"sync"

	"github.com/disdain-project/beast/evaluator"
)

// SinkPipe terminates a pipeline: it has one input slot and no outputs.
// Every item delivered is run and scored, and the highest-scoring
// candidate seen across the pipe's whole lifetime is retained.
type SinkPipe struct {
	evaluate   evaluator.Evaluator
	newSession SessionFactory

	mu          sync.Mutex
	pending     [][]byte
	bestProgram []byte
	bestScore   float64
	haveBest    bool
}

// NewSinkPipe constructs a SinkPipe. newSession builds the VmSession used
// to run each candidate before scoring it.
func NewSinkPipe(eval evaluator.Evaluator, newSession SessionFactory) *SinkPipe {
	return &SinkPipe{evaluate: eval, newSession: newSession}
}

func (p *SinkPipe) InputSlotCount() int  { return 1 }
func (p *SinkPipe) OutputSlotCount() int { return 0 }

func (p *SinkPipe) HasSpace() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) < 64
}

func (p *SinkPipe) HasOutput(slot int) bool { return false }

func (p *SinkPipe) InputsAreSaturated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) > 0
}

func (p *SinkPipe) OutputsAreSaturated() bool { return false }

func (p *SinkPipe) AddInput(slot int, data []byte) {
	if slot != 0 {
		return
	}
	owned := make([]byte, len(data))
	copy(owned, data)

	p.mu.Lock()
	p.pending = append(p.pending, owned)
	p.mu.Unlock()
}

func (p *SinkPipe) DrawOutput(slot int) []byte { return nil }

// Execute scores every pending candidate and updates the running best.
func (p *SinkPipe) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, candidate := range batch {
		s := p.newSession(candidate)
		s.Run()
		score := p.evaluate.Evaluate(s)

		p.mu.Lock()
		if !p.haveBest || score > p.bestScore {
			p.bestProgram = candidate
			p.bestScore = score
			p.haveBest = true
		}
		p.mu.Unlock()
	}
	return nil
}

// Best returns the highest-scoring candidate seen so far, and whether
// any candidate has been scored yet.
func (p *SinkPipe) Best() (program []byte, score float64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bestProgram, p.bestScore, p.haveBest
}
