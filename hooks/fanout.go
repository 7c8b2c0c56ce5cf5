package hooks

import "simhook/abi"

// ---------------------------------------------------------------------------
// RuntimeFanout: host fault reporting side channel
// ---------------------------------------------------------------------------

// RuntimeObserver consumes one raw error string from the host's fault
// reporting path. Observers are pure side effects; one that fails is its own
// problem.
type RuntimeObserver func(message string)

// RuntimeFanout rebroadcasts host runtime errors to registered observers in
// registration order, unchanged and unfiltered.
type RuntimeFanout struct {
	observers []RuntimeObserver
}

// Register appends an observer.
func (f *RuntimeFanout) Register(o RuntimeObserver) {
	f.observers = append(f.observers, o)
}

// Emit forwards one error string to every observer in registration order.
func (f *RuntimeFanout) Emit(message string) {
	for _, o := range f.observers {
		o(message)
	}
}

// ---------------------------------------------------------------------------
// TraceFanout: per-instruction observation
// ---------------------------------------------------------------------------

// TraceObserver observes one host instruction about to execute. It must not
// change the meaning of the context it is shown.
type TraceObserver func(ctx *abi.ExecutionContext)

// TraceFanout invokes per-instruction observers from the host's execution
// loop detour.
type TraceFanout struct {
	observers []TraceObserver
}

// Register appends an observer.
func (f *TraceFanout) Register(o TraceObserver) {
	f.observers = append(f.observers, o)
}

// OnInstruction shows the execution context to every observer in
// registration order and returns the same pointer, which the detour must
// hand back to the host untouched.
func (f *TraceFanout) OnInstruction(ctx *abi.ExecutionContext) *abi.ExecutionContext {
	for _, o := range f.observers {
		o(ctx)
	}
	return ctx
}
