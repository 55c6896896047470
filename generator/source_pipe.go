package generator

import (
	"context"
	"math/rand/v2"
)

// SourcePipe is the first stage of an evolution pipeline: it has no
// input slots and one output slot, and emits one freshly generated
// candidate per Execute until PopulationSize candidates have been
// emitted for the current generation, then reports itself saturated
// until the downstream stage has drained everything.
type SourcePipe struct {
	rng            *rand.Rand
	opts           RandomOptions
	populationSize int

	emittedThisGeneration int
	pending               [][]byte
}

// NewSourcePipe constructs a SourcePipe that emits populationSize
// candidates per generation shaped by opts.
func NewSourcePipe(rng *rand.Rand, opts RandomOptions, populationSize int) *SourcePipe {
	return &SourcePipe{rng: rng, opts: opts, populationSize: populationSize}
}

func (p *SourcePipe) InputSlotCount() int  { return 0 }
func (p *SourcePipe) OutputSlotCount() int { return 1 }

func (p *SourcePipe) HasSpace() bool { return false }

func (p *SourcePipe) HasOutput(slot int) bool {
	return slot == 0 && len(p.pending) > 0
}

func (p *SourcePipe) InputsAreSaturated() bool { return true }

// OutputsAreSaturated is true once a full generation has been produced
// and not yet fully drawn, matching EvolutionPipe's own back-pressure
// convention so the two compose without a Pipeline-level special case.
func (p *SourcePipe) OutputsAreSaturated() bool {
	return p.emittedThisGeneration >= p.populationSize && len(p.pending) > 0
}

func (p *SourcePipe) AddInput(slot int, data []byte) {}

func (p *SourcePipe) DrawOutput(slot int) []byte {
	if slot != 0 || len(p.pending) == 0 {
		return nil
	}
	data := p.pending[0]
	p.pending = p.pending[1:]
	return data
}

// Execute generates one candidate, unless the current generation's
// population has already been fully produced and is still undrained.
func (p *SourcePipe) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.emittedThisGeneration >= p.populationSize {
		if len(p.pending) == 0 {
			p.emittedThisGeneration = 0
		}
		return nil
	}
	p.pending = append(p.pending, Random(p.rng, p.opts))
	p.emittedThisGeneration++
	return nil
}
