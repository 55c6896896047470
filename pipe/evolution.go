package pipe

import (
	"context"
	"math/rand/v2"

	"github.com/disdain-project/beast/evaluator"
	"github.com/disdain-project/beast/vm"
)

// SessionFactory builds a fresh VmSession to run one candidate program.
// EvolutionPipe calls it once per candidate per generation; the factory
// owns the VM capacity caps and syscall table, not the pipe.
type SessionFactory func(program []byte) *vm.VmSession

// EvolutionPipe is the core evolutionary stage: it collects up to
// MaxCandidates programs on input slot 0, scores each with Evaluator
// once a full generation has arrived, breeds MaxCandidates offspring by
// tournament selection plus single-point crossover and per-byte
// mutation, and emits them on output slot 0.
type EvolutionPipe struct {
	maxCandidates int
	evaluate      evaluator.Evaluator
	newSession    SessionFactory
	mutationRate  float64
	tournamentK   int
	rng           *rand.Rand

	population [][]byte
	outbox     [][]byte
}

// NewEvolutionPipe constructs an EvolutionPipe. tournamentK is the number
// of candidates sampled per tournament-selection draw (must be >= 2);
// rng drives both selection sampling and mutation.
func NewEvolutionPipe(maxCandidates int, eval evaluator.Evaluator, newSession SessionFactory, mutationRate float64, tournamentK int, rng *rand.Rand) *EvolutionPipe {
	if tournamentK < 2 {
		tournamentK = 2
	}
	return &EvolutionPipe{
		maxCandidates: maxCandidates,
		evaluate:      eval,
		newSession:    newSession,
		mutationRate:  mutationRate,
		tournamentK:   tournamentK,
		rng:           rng,
	}
}

func (p *EvolutionPipe) InputSlotCount() int  { return 1 }
func (p *EvolutionPipe) OutputSlotCount() int { return 1 }

func (p *EvolutionPipe) HasSpace() bool {
	return len(p.population) < p.maxCandidates
}

func (p *EvolutionPipe) HasOutput(slot int) bool {
	return slot == 0 && len(p.outbox) > 0
}

func (p *EvolutionPipe) InputsAreSaturated() bool {
	return len(p.population) >= p.maxCandidates
}

// OutputsAreSaturated reports true whenever any bred offspring is still
// waiting to be drawn. This keeps Execute from overwriting an
// undelivered generation and keeps each Execute call bounded to exactly
// one full breeding pass.
func (p *EvolutionPipe) OutputsAreSaturated() bool {
	return len(p.outbox) > 0
}

func (p *EvolutionPipe) AddInput(slot int, data []byte) {
	if slot != 0 {
		return
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	p.population = append(p.population, owned)
}

func (p *EvolutionPipe) DrawOutput(slot int) []byte {
	if slot != 0 || len(p.outbox) == 0 {
		return nil
	}
	data := p.outbox[0]
	p.outbox = p.outbox[1:]
	return data
}

// Execute scores the full population, breeds the next generation, and
// populates the outbox. Called only when InputsAreSaturated and
// !OutputsAreSaturated (see Pipe's contract).
func (p *EvolutionPipe) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scores := make([]float64, len(p.population))
	for i, candidate := range p.population {
		s := p.newSession(candidate)
		s.Run()
		scores[i] = p.evaluate.Evaluate(s)
	}

	offspring := make([][]byte, 0, p.maxCandidates)
	for len(offspring) < p.maxCandidates {
		parentA := p.population[p.tournamentSelect(scores)]
		parentB := p.population[p.tournamentSelect(scores)]
		child := p.crossover(parentA, parentB)
		p.mutate(child)
		offspring = append(offspring, child)
	}

	p.population = p.population[:0]
	p.outbox = offspring
	return nil
}

// tournamentSelect samples tournamentK candidates uniformly and returns
// the index of the best-scoring one.
func (p *EvolutionPipe) tournamentSelect(scores []float64) int {
	best := p.rng.IntN(len(scores))
	for i := 1; i < p.tournamentK; i++ {
		candidate := p.rng.IntN(len(scores))
		if scores[candidate] > scores[best] {
			best = candidate
		}
	}
	return best
}

// crossover produces one child by splicing a at a single random point
// with the tail of b. The shorter parent bounds the split point so the
// result never indexes past either parent.
func (p *EvolutionPipe) crossover(a, b []byte) []byte {
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	if shorter == 0 {
		child := make([]byte, len(a))
		copy(child, a)
		return child
	}
	split := p.rng.IntN(shorter)
	child := make([]byte, 0, len(a))
	child = append(child, a[:split]...)
	child = append(child, b[split:]...)
	return child
}

// mutate flips random bytes in place with probability mutationRate each.
func (p *EvolutionPipe) mutate(data []byte) {
	for i := range data {
		if p.rng.Float64() < p.mutationRate {
			data[i] = byte(p.rng.IntN(256))
		}
	}
}
