package samm

import (
	"fmt"
	"os"

	"github.com/gobasic/sammrt/internal/diag"
	"github.com/gobasic/sammrt/internal/errtab"
)

// throwCodeBase offsets a thrown BASIC error code into the protection
// harness's jump-return value space, keeping Throw's codes disjoint from
// the harness's own timeout(124)/abort(134) exit codes. TRY/CATCH reuses
// the same jump-slot stack the JIT protection harness uses for
// runtime_exit: a CATCH handler is just another jump slot on that stack.
const throwCodeBase = 1000

// RuntimeError is a thrown BASIC runtime error, carrying the numeric
// taxonomy code and the throw site's line number, the ERR()/ERL()
// surface.
type RuntimeError struct {
	Code errtab.Code
	Line int
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (error %d at line %d)", errtab.Message(e.Code), e.Code, e.Line)
	}
	return fmt.Sprintf("%s (error %d)", errtab.Message(e.Code), e.Code)
}

// SetLine records the current statement's source line. Compiled code emits
// a SetLine call per statement so that a later Throw can stamp the error
// with the throw site, the way classic BASIC maintains ERL.
func SetLine(line int) {
	active().curLine = line
}

// Err returns the code of the most recently thrown runtime error, or 0 if
// nothing has been thrown since Init.
func Err() errtab.Code {
	return active().errCode
}

// Erl returns the source line of the most recently thrown runtime error,
// or 0 if nothing has been thrown since Init (or the program never called
// SetLine).
func Erl() int {
	return active().errLine
}

// Try runs fn under a protected jump slot and recovers a Throw from
// anywhere in its dynamic extent, returning the thrown error. Returns nil
// if fn completes without throwing.
func Try(fn func()) *RuntimeError {
	r := active()
	result := r.harness.ProtectedCall(func() int {
		fn()
		return 0
	})
	if result >= 0 {
		return nil
	}
	code := -result - 1
	if code < throwCodeBase {
		// A signal-driven unwind (timeout/abort) surfaced inside this
		// Try, not a thrown BASIC error; that is not this handler's to
		// catch, so escalate it the same way an uncaught signal would.
		diag.Fatalf("unhandled signal-driven unwind (exit code %d) inside Try", code)
		return nil
	}
	return &RuntimeError{Code: errtab.Code(code - throwCodeBase), Line: r.errLine}
}

// Throw raises a BASIC runtime error. Inside a Try, it unwinds to the
// innermost Try's handler; outside any Try, it is an unhandled exception
// and behaves like RuntimeExit(1) after printing the taxonomy message.
func Throw(code errtab.Code) {
	r := active()
	r.errCode = code
	r.errLine = r.curLine
	if r.harness.InProtectedCall() {
		r.harness.RuntimeExit(throwCodeBase + int(code))
		return
	}
	fmt.Fprintf(os.Stderr, "Unhandled error %d: %s\n", code, errtab.Message(code))
	os.Exit(1)
}

// Rethrow re-raises err from within a CATCH block. With no outer Try
// active it degrades to the same unhandled-exception fatal path as an
// unhandled Throw.
func Rethrow(err *RuntimeError) {
	if err == nil {
		return
	}
	Throw(err.Code)
}
