package vm

// ReturnCode values a VmSession may terminate with. Any other int8 value
// may be supplied by a program itself via Terminate/TerminateWithVariable.
const (
	// ReturnCodeOK is the conventional "completed normally" code.
	ReturnCodeOK int8 = 0
	// ReturnCodeFault is used for every VM-internal fault: indexing
	// errors, link cycles, out-of-range jumps, modulo-by-zero, and
	// capacity violations all terminate the session with this code.
	ReturnCodeFault int8 = -1
)

// sysCallUnknown is written into the destination variable by
// PerformSystemCall when no handler is registered for (major, minor).
const sysCallUnknown int32 = -1
