package vm

import (
	"math/rand/v2"
	"strings"
)

// sessionState is the Fresh -> Running -> Terminated lifecycle of a
// VmSession. Terminated is absorbing.
type sessionState byte

const (
	stateFresh sessionState = iota
	stateRunning
	stateTerminated
)

// SysCallFunc handles one (major, minor) system call pair. It receives the
// owning session so it may read/write variables, and returns the int32 to
// write into the call's target variable.
type SysCallFunc func(s *VmSession) int32

// SysCallTable dispatches performSystemCall by (major, minor) code pair.
type SysCallTable map[[2]int8]SysCallFunc

// VmSession is a stateful execution context over one Program. It is not
// safe for concurrent use: a single goroutine owns and mutates a session
// exclusively, per spec.
type VmSession struct {
	program Program

	variableCount    int
	stringTableCount int
	maxStringSize    int

	variables   map[int32]*variableSlot
	stringTable map[int32]string
	stacks      map[int32][]int32
	printBuffer strings.Builder

	state      sessionState
	returnCode int8

	rng *rand.Rand

	sysCalls SysCallTable

	dynamicNoOps  int
	instructions  int
	executedMask  []bool
}

// NewVmSession creates a session over program with the given capacity
// caps. seed drives the session-local PRNG backing LoadRandomValueIntoVariable;
// callers wanting reproducible evaluator scores should pass a fixed seed.
func NewVmSession(program Program, variableCount, stringTableCount, maxStringSize int, seed uint64) *VmSession {
	return &VmSession{
		program:          program,
		variableCount:    variableCount,
		stringTableCount: stringTableCount,
		maxStringSize:    maxStringSize,
		variables:        make(map[int32]*variableSlot),
		stringTable:      make(map[int32]string),
		stacks:           make(map[int32][]int32),
		rng:              rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		executedMask:     make([]bool, program.Len()),
	}
}

// WithSysCalls installs the system call dispatch table. Intended to be
// called once, right after construction.
func (s *VmSession) WithSysCalls(table SysCallTable) *VmSession {
	s.sysCalls = table
	return s
}

// beginOp transitions Fresh -> Running on first use and reports whether
// the session will accept a mutating operation.
func (s *VmSession) beginOp() bool {
	if s.state == stateFresh {
		s.state = stateRunning
	}
	return s.state != stateTerminated
}

// fail terminates the session with ReturnCodeFault. All VM-internal
// faults funnel through here.
func (s *VmSession) fail() {
	s.Terminate(ReturnCodeFault)
}

// IsTerminated reports whether the session has reached the absorbing
// Terminated state.
func (s *VmSession) IsTerminated() bool {
	return s.state == stateTerminated
}

// ReturnCode returns the session's termination code. Zero until
// terminated.
func (s *VmSession) ReturnCode() int8 {
	return s.returnCode
}

// GetPrintBuffer returns the accumulated print buffer contents.
func (s *VmSession) GetPrintBuffer() string {
	return s.printBuffer.String()
}

// ClearPrintBuffer empties the print buffer.
func (s *VmSession) ClearPrintBuffer() {
	s.printBuffer.Reset()
}

// DynamicNoOpCount returns the number of executed instructions judged to
// have had no observable effect (explicit Nop, and conditional jumps
// whose condition was false).
func (s *VmSession) DynamicNoOpCount() int {
	return s.dynamicNoOps
}

// InstructionCount returns how many instructions have been dispatched so
// far in this session.
func (s *VmSession) InstructionCount() int {
	return s.instructions
}

// ExecutedByteCount returns the number of distinct program bytes that
// belonged to an instruction actually decoded and run.
func (s *VmSession) ExecutedByteCount() int {
	n := 0
	for _, hit := range s.executedMask {
		if hit {
			n++
		}
	}
	return n
}

// ProgramLen returns the length in bytes of the loaded program.
func (s *VmSession) ProgramLen() int {
	return s.program.Len()
}

// Program returns the Program this session executes. Evaluators use this
// to run static passes (analysis.CountStaticNoOps and friends) alongside
// the session's own runtime counters.
func (s *VmSession) Program() *Program {
	return &s.program
}

// CurrentAddress returns the instruction pointer's current byte offset.
func (s *VmSession) CurrentAddress() int32 {
	return int32(s.program.Cursor())
}

// markExecuted flags [start, end) of the program as having been run, for
// ExecutedByteCount.
func (s *VmSession) markExecuted(start, end int) {
	for i := start; i < end && i < len(s.executedMask); i++ {
		if i >= 0 {
			s.executedMask[i] = true
		}
	}
}

// --- Variable registration -------------------------------------------------

// RegisterVariable allocates a new variable slot at variableIndex with the
// given type. Re-registering an existing index resets it.
func (s *VmSession) RegisterVariable(variableIndex int32, kind VariableType) {
	if !s.beginOp() {
		return
	}
	s.variables[variableIndex] = &variableSlot{kind: kind}
}

// UnregisterVariable removes a variable slot. Unregistering an absent
// index is a fault.
func (s *VmSession) UnregisterVariable(variableIndex int32) {
	if !s.beginOp() {
		return
	}
	if _, ok := s.variables[variableIndex]; !ok {
		s.fail()
		return
	}
	delete(s.variables, variableIndex)
}

// resolve follows a Link chain starting at variableIndex when followLinks
// is true, detecting cycles (bounded by the number of registered
// variables). It returns the terminal Int32 variable's index.
func (s *VmSession) resolve(variableIndex int32, followLinks bool) (int32, bool) {
	slot, ok := s.variables[variableIndex]
	if !ok {
		return 0, false
	}
	if !followLinks || slot.kind != VarLink {
		return variableIndex, true
	}

	visited := make(map[int32]bool, len(s.variables)+1)
	current := variableIndex
	for {
		if visited[current] {
			return 0, false
		}
		visited[current] = true

		slot, ok := s.variables[current]
		if !ok {
			return 0, false
		}
		if slot.kind != VarLink {
			return current, true
		}
		current = slot.value
	}
}

// GetRealVariableIndex resolves link chains (when followLinks is true) and
// returns the terminal registered Int32 variable's index. Used by higher
// layers probing link resolution without mutating anything.
func (s *VmSession) GetRealVariableIndex(variableIndex int32, followLinks bool) int32 {
	if !s.beginOp() {
		return 0
	}
	idx, ok := s.resolve(variableIndex, followLinks)
	if !ok {
		s.fail()
		return 0
	}
	return idx
}

// --- Value access -----------------------------------------------------------

// GetVariableValue reads a variable's current value, following links when
// requested.
func (s *VmSession) GetVariableValue(variableIndex int32, followLinks bool) int32 {
	// A read is not a mutation, so it stays valid after termination.
	s.beginOp()
	idx, ok := s.resolve(variableIndex, followLinks)
	if !ok {
		s.fail()
		return 0
	}
	return s.variables[idx].value
}

// SetVariableValue writes value into a variable, following links when
// requested, and marks it changed for CheckIfInputWasSet.
func (s *VmSession) SetVariableValue(variableIndex int32, followLinks bool, value int32) {
	if !s.beginOp() {
		return
	}
	idx, ok := s.resolve(variableIndex, followLinks)
	if !ok {
		s.fail()
		return
	}
	slot := s.variables[idx]
	slot.value = value
	slot.changedSinceLastInteraction = true
}

// SetVariableBehavior tags a variable's I/O role. followLinks is not
// applied here: behavior belongs to the variable named directly, matching
// the original contract's single-argument form.
func (s *VmSession) SetVariableBehavior(variableIndex int32, behavior VariableIoBehavior) {
	if !s.beginOp() {
		return
	}
	slot, ok := s.variables[variableIndex]
	if !ok {
		s.fail()
		return
	}
	slot.behavior = behavior
}

// GetVariableBehavior reads a variable's I/O role, following links when
// requested.
func (s *VmSession) GetVariableBehavior(variableIndex int32, followLinks bool) VariableIoBehavior {
	if !s.beginOp() {
		return BehaviorStore
	}
	idx, ok := s.resolve(variableIndex, followLinks)
	if !ok {
		s.fail()
		return BehaviorStore
	}
	return s.variables[idx].behavior
}

// CopyVariable copies the source variable's value into the destination
// variable, following links independently on each side.
func (s *VmSession) CopyVariable(sourceVariable int32, followSourceLinks bool, destinationVariable int32, followDestinationLinks bool) {
	if !s.beginOp() {
		return
	}
	value := s.GetVariableValue(sourceVariable, followSourceLinks)
	if s.IsTerminated() {
		return
	}
	s.SetVariableValue(destinationVariable, followDestinationLinks, value)
}

// SwapVariables exchanges the values of two variables, following links
// independently on each side.
func (s *VmSession) SwapVariables(variableIndexA int32, followLinksA bool, variableIndexB int32, followLinksB bool) {
	if !s.beginOp() {
		return
	}
	a := s.GetVariableValue(variableIndexA, followLinksA)
	if s.IsTerminated() {
		return
	}
	b := s.GetVariableValue(variableIndexB, followLinksB)
	if s.IsTerminated() {
		return
	}
	s.SetVariableValue(variableIndexA, followLinksA, b)
	if s.IsTerminated() {
		return
	}
	s.SetVariableValue(variableIndexB, followLinksB, a)
}

// CheckIfVariableIsInput writes 1 into destinationVariable if sourceVariable
// has Input behavior, 0 otherwise.
func (s *VmSession) CheckIfVariableIsInput(sourceVariable int32, followSourceLinks bool, destinationVariable int32, followDestinationLinks bool) {
	if !s.beginOp() {
		return
	}
	behavior := s.GetVariableBehavior(sourceVariable, followSourceLinks)
	if s.IsTerminated() {
		return
	}
	result := int32(0)
	if behavior == BehaviorInput {
		result = 1
	}
	s.SetVariableValue(destinationVariable, followDestinationLinks, result)
}

// CheckIfVariableIsOutput writes 1 into destinationVariable if
// sourceVariable has Output behavior, 0 otherwise.
func (s *VmSession) CheckIfVariableIsOutput(sourceVariable int32, followSourceLinks bool, destinationVariable int32, followDestinationLinks bool) {
	if !s.beginOp() {
		return
	}
	behavior := s.GetVariableBehavior(sourceVariable, followSourceLinks)
	if s.IsTerminated() {
		return
	}
	result := int32(0)
	if behavior == BehaviorOutput {
		result = 1
	}
	s.SetVariableValue(destinationVariable, followDestinationLinks, result)
}

// CheckIfInputWasSet writes 1 into destinationVariable if variableIndex has
// been written since the last probe, then clears its changed flag.
func (s *VmSession) CheckIfInputWasSet(variableIndex int32, followLinks bool, destinationVariable int32, followDestinationLinks bool) {
	if !s.beginOp() {
		return
	}
	idx, ok := s.resolve(variableIndex, followLinks)
	if !ok {
		s.fail()
		return
	}
	slot := s.variables[idx]
	result := int32(0)
	if slot.changedSinceLastInteraction {
		result = 1
	}
	slot.changedSinceLastInteraction = false
	s.SetVariableValue(destinationVariable, followDestinationLinks, result)
}

// Terminate ends the session with the given return code. Idempotent: once
// terminated, further calls are no-ops per the absorbing-state contract.
func (s *VmSession) Terminate(returnCode int8) {
	if s.state == stateTerminated {
		return
	}
	s.state = stateTerminated
	s.returnCode = returnCode
}

// TerminateWithVariableReturnCode terminates with the low 8 bits of a
// resolved variable's value.
func (s *VmSession) TerminateWithVariableReturnCode(variableIndex int32, followLinks bool) {
	if !s.beginOp() {
		return
	}
	idx, ok := s.resolve(variableIndex, followLinks)
	if !ok {
		s.fail()
		return
	}
	value := s.variables[idx].value
	s.Terminate(int8(value))
}
