package abi

// ExecutionContext mirrors the host's per-instruction execution context. The
// trace entry point receives a pointer to one of these and must hand the same
// pointer back unchanged; observers may read it but must not change its
// meaning. Only the fields the trace observers need are mirrored here; the
// detour installer owns the full layout.
type ExecutionContext struct {
	ProcID         uint32
	InstructionPtr uint32
	Line           uint32
}
