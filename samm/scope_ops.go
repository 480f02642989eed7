package samm

import (
	"context"

	"github.com/gobasic/sammrt/internal/diag"
	"github.com/gobasic/sammrt/internal/tracing"
)

// EnterScope pushes a new, empty tracking frame. Exceeding the maximum
// scope depth is an internal invariant violation: a FATAL:-prefixed log
// line and process exit.
func EnterScope() error {
	r := active()
	_, span := tracing.StartSAMMSpan(context.Background(), "samm.EnterScope",
		tracing.ScopeDepth(r.scopeStack.Depth()))
	defer span.End()
	if err := r.scopeStack.Enter(); err != nil {
		diag.Fatalf("%v", err)
		return err
	}
	return nil
}

// ExitScope pops the current frame and hands it to the cleanup worker.
// Exiting the depth-0 global scope is a programmer error the compiler-
// emitted code should never produce, so it is treated as an internal
// invariant violation: a FATAL:-prefixed log line and process exit.
func ExitScope() {
	r := active()
	ctx, span := tracing.StartSAMMSpan(context.Background(), "samm.ExitScope",
		tracing.ScopeDepth(r.scopeStack.Depth()))
	defer span.End()

	frame, err := r.scopeStack.Exit()
	if err != nil {
		diag.Fatalf("%v", err)
		return
	}
	if r.isEnabled() {
		r.cleanupQueue.Submit(frame)
		tracing.AddEvent(ctx, "frame_submitted")
	}
}

// ScopeDepth returns the current scope depth (0 is the global scope).
func ScopeDepth() int {
	return active().scopeStack.Depth()
}

// ForceAbandon drops all pending cleanup work without running destructors
// and resets the scope stack to depth 0, for the SIGALRM/SIGABRT unwind
// path where pool mutexes may still be held.
func ForceAbandon() {
	r := active()
	r.cleanupQueue.Abandon()
	r.scopeStack.Reset()
}
