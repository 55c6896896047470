// Package pipeline wires pipe.Pipe stages into a directed graph connected
// by bounded buffers and schedules each stage on its own goroutine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disdain-project/beast/pipe"
)

// Errors returned by Pipeline's wiring and lifecycle methods, checked with
// errors.Is.
var (
	ErrPipeAlreadyAdded     = errors.New("pipeline: pipe already added")
	ErrPipeNotInPipeline    = errors.New("pipeline: pipe not in this pipeline")
	ErrSlotAlreadyConnected = errors.New("pipeline: slot already connected")
	ErrAlreadyRunning       = errors.New("pipeline: already running")
	ErrNotRunning           = errors.New("pipeline: not running")
)

// EventSink receives live pipeline telemetry without the pipeline package
// depending on how that telemetry is displayed or transmitted. api.Broadcaster
// and tui.Dashboard both implement it.
type EventSink interface {
	PipeCycle(name string, saturated bool)
	BestScore(name string, score float64)
}

// nopSink discards every event; the Pipeline's default when no sink is
// configured.
type nopSink struct{}

func (nopSink) PipeCycle(string, bool)  {}
func (nopSink) BestScore(string, float64) {}

// BestProvider is implemented by pipe.SinkPipe (and anything else that
// wants its running best reported through the EventSink). Pipeline type-
// asserts for it after each cycle.
type BestProvider interface {
	Best() (program []byte, score float64, ok bool)
}

// ManagedPipe is the Pipeline's bookkeeping record for one registered
// Pipe: its name and its goroutine's lifecycle flags. The Connections
// touching it are held by the Pipeline.
type ManagedPipe struct {
	Name string
	Pipe pipe.Pipe

	shouldRun atomic.Bool
	isRunning atomic.Bool
	done      chan struct{}
}

// Connection is a bounded, FIFO byte-slice queue from one Pipe's output
// slot to another Pipe's input slot.
type Connection struct {
	sourceName      string
	sourceSlot      int
	destinationName string
	destinationSlot int

	mu     sync.Mutex
	buffer [][]byte
	cap    int
}

func (c *Connection) push(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buffer) >= c.cap {
		return false
	}
	c.buffer = append(c.buffer, data)
	return true
}

func (c *Connection) pop() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buffer) == 0 {
		return nil, false
	}
	data := c.buffer[0]
	c.buffer = c.buffer[1:]
	return data, true
}

func (c *Connection) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// CycleQuantum is the worker loop's sleep between cycles, overridable
// down to 1ms for tests.
var CycleQuantum = 10 * time.Millisecond

// Pipeline owns a set of ManagedPipes and the Connections between them,
// and schedules each Pipe's Execute on a dedicated goroutine while
// running.
type Pipeline struct {
	sink EventSink

	mu          sync.Mutex
	pipes       []*ManagedPipe
	connections []*Connection
	running     bool
	wg          sync.WaitGroup
}

// New constructs an empty Pipeline. A nil sink is replaced with one that
// discards every event.
func New(sink EventSink) *Pipeline {
	if sink == nil {
		sink = nopSink{}
	}
	return &Pipeline{sink: sink}
}

func (p *Pipeline) findPipe(name string) *ManagedPipe {
	for _, mp := range p.pipes {
		if mp.Name == name {
			return mp
		}
	}
	return nil
}

// AddPipe registers a Pipe under name. Names must be unique within a
// Pipeline.
func (p *Pipeline) AddPipe(name string, pp pipe.Pipe) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.findPipe(name) != nil {
		return fmt.Errorf("%w: %s", ErrPipeAlreadyAdded, name)
	}
	p.pipes = append(p.pipes, &ManagedPipe{Name: name, Pipe: pp})
	return nil
}

// ConnectPipes wires sourceName's output slot to destinationName's input
// slot through a buffer holding up to bufferSize items.
func (p *Pipeline) ConnectPipes(sourceName string, sourceSlot int, destinationName string, destinationSlot int, bufferSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.findPipe(sourceName) == nil {
		return fmt.Errorf("%w: %s", ErrPipeNotInPipeline, sourceName)
	}
	if p.findPipe(destinationName) == nil {
		return fmt.Errorf("%w: %s", ErrPipeNotInPipeline, destinationName)
	}
	for _, c := range p.connections {
		if c.sourceName == sourceName && c.sourceSlot == sourceSlot {
			return fmt.Errorf("%w: source %s slot %d", ErrSlotAlreadyConnected, sourceName, sourceSlot)
		}
		if c.destinationName == destinationName && c.destinationSlot == destinationSlot {
			return fmt.Errorf("%w: destination %s slot %d", ErrSlotAlreadyConnected, destinationName, destinationSlot)
		}
	}

	p.connections = append(p.connections, &Connection{
		sourceName:      sourceName,
		sourceSlot:      sourceSlot,
		destinationName: destinationName,
		destinationSlot: destinationSlot,
		cap:             bufferSize,
	})
	return nil
}

// IsRunning reports whether the pipeline's worker goroutines are active.
func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start launches one worker goroutine per registered Pipe.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	for _, mp := range p.pipes {
		mp.shouldRun.Store(true)
		mp.isRunning.Store(true)
		mp.done = make(chan struct{})

		source, destination := p.connectionsFor(mp.Name)
		p.wg.Add(1)
		go p.pipelineWorker(ctx, mp, source, destination)
	}

	p.running = true
	return nil
}

// Stop signals every worker goroutine to finish its current cycle and
// exit, then waits for all of them.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrNotRunning
	}
	for _, mp := range p.pipes {
		mp.shouldRun.Store(false)
	}
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	for _, mp := range p.pipes {
		mp.isRunning.Store(false)
	}
	p.running = false
	p.mu.Unlock()
	return nil
}

// connectionsFor returns the Connections feeding into name (as a
// destination) and the Connections draining name (as a source).
func (p *Pipeline) connectionsFor(name string) (incoming, outgoing []*Connection) {
	for _, c := range p.connections {
		if c.destinationName == name {
			incoming = append(incoming, c)
		}
		if c.sourceName == name {
			outgoing = append(outgoing, c)
		}
	}
	return incoming, outgoing
}

// pipelineWorker runs one Pipe's four-step cycle (drain outputs, fill
// inputs, execute if saturated, sleep) until shouldRun goes false, as a
// cooperatively-cancelled goroutine.
func (p *Pipeline) pipelineWorker(ctx context.Context, mp *ManagedPipe, incoming, outgoing []*Connection) {
	defer p.wg.Done()
	defer close(mp.done)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline: pipe %q panicked: %v", mp.Name, r)
			// A panicking pipe stops every worker, not just its own.
			p.mu.Lock()
			for _, other := range p.pipes {
				other.shouldRun.Store(false)
			}
			p.mu.Unlock()
		}
	}()

	for mp.shouldRun.Load() {
		p.processOutputSlots(mp, outgoing)
		p.processInputSlots(mp, incoming)

		saturated := mp.Pipe.InputsAreSaturated() && !mp.Pipe.OutputsAreSaturated()
		if saturated {
			if err := mp.Pipe.Execute(ctx); err != nil {
				log.Printf("pipeline: pipe %q execute error: %v", mp.Name, err)
			}
			if best, ok := bestFrom(mp.Pipe); ok {
				p.sink.BestScore(mp.Name, best)
			}
		}
		p.sink.PipeCycle(mp.Name, saturated)

		select {
		case <-ctx.Done():
			return
		case <-time.After(CycleQuantum):
		}
	}
}

func bestFrom(pp pipe.Pipe) (float64, bool) {
	provider, ok := pp.(BestProvider)
	if !ok {
		return 0, false
	}
	_, score, ok := provider.Best()
	return score, ok
}

// processOutputSlots drains each output slot with a ready item into its
// Connection, up to that Connection's capacity.
func (p *Pipeline) processOutputSlots(mp *ManagedPipe, outgoing []*Connection) {
	for slot := 0; slot < mp.Pipe.OutputSlotCount(); slot++ {
		conn := connectionForSourceSlot(outgoing, slot)
		if conn == nil {
			continue
		}
		for mp.Pipe.HasOutput(slot) && conn.len() < conn.cap {
			if !conn.push(mp.Pipe.DrawOutput(slot)) {
				break
			}
		}
	}
}

// processInputSlots fills each input slot from its Connection while the
// Pipe has space and the Connection has data.
func (p *Pipeline) processInputSlots(mp *ManagedPipe, incoming []*Connection) {
	for slot := 0; slot < mp.Pipe.InputSlotCount(); slot++ {
		conn := connectionForDestinationSlot(incoming, slot)
		if conn == nil {
			continue
		}
		for mp.Pipe.HasSpace() {
			data, ok := conn.pop()
			if !ok {
				break
			}
			mp.Pipe.AddInput(slot, data)
		}
	}
}

func connectionForSourceSlot(conns []*Connection, slot int) *Connection {
	for _, c := range conns {
		if c.sourceSlot == slot {
			return c
		}
	}
	return nil
}

func connectionForDestinationSlot(conns []*Connection, slot int) *Connection {
	for _, c := range conns {
		if c.destinationSlot == slot {
			return c
		}
	}
	return nil
}
