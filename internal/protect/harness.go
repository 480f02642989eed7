// Package protect implements the JIT protection harness: a nestable stack
// of non-local-jump targets that lets a fatal runtime error inside a
// compiled BASIC program unwind without killing the host process.
//
// Go has neither setjmp/longjmp nor signal handlers that can resume
// arbitrary stack state, so the "jump" here is the memory-safe
// equivalent: each ProtectedCall runs its callee in a child
// goroutine and races its completion against a dedicated per-call channel
// that either a panic/recover (for an explicit RuntimeExit) or a forwarded
// OS signal can write to. Arming the single-shot alarm goes through
// golang.org/x/sys/unix (unix.Alarm), since os/signal can only observe
// signals; observing SIGALRM/SIGABRT goes through os/signal.
package protect

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// MaxDepth bounds the nested protected-call stack.
const MaxDepth = 4

// Exit code conventions: timeout matches timeout(1), abort matches
// 128+SIGABRT.
const (
	ExitOK      = 0
	ExitRuntime = 1
	ExitTimeout = 124
	ExitAbort   = 134
)

type runtimeExitSignal int

type slot struct {
	jump chan int // receives an exit code when a signal unwinds to this slot
}

// Harness is the nestable jump-slot stack plus refcounted signal arming.
// One Harness is shared by the whole process (SAMM owns a singleton), since
// there is exactly one mutator goroutine driving the compiled program at a
// time.
type Harness struct {
	mu    sync.Mutex
	slots []*slot

	armRefCount int
	sigCh       chan os.Signal
	stopForward chan struct{}

	savedStdout *os.File
	devNull     *os.File
}

// New constructs an unarmed harness.
func New() *Harness {
	return &Harness{}
}

func (h *Harness) push() (*slot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.slots) >= MaxDepth {
		return nil, fmt.Errorf("protect: max nested protected calls (%d) exceeded", MaxDepth)
	}
	s := &slot{jump: make(chan int, 1)}
	h.slots = append(h.slots, s)
	return s, nil
}

func (h *Harness) pop(s *slot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.slots); n > 0 && h.slots[n-1] == s {
		h.slots = h.slots[:n-1]
	}
}

// InProtectedCall reports whether at least one ProtectedCall on this
// harness is currently active (from any goroutine), the same check RuntimeExit
// uses to decide between panicking to the innermost slot and a direct
// process exit.
func (h *Harness) InProtectedCall() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.slots) > 0
}

func (h *Harness) topSlot() *slot {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.slots) == 0 {
		return nil
	}
	return h.slots[len(h.slots)-1]
}

// ArmSignals installs the SIGABRT/SIGALRM handlers if they are not already
// armed, refcounting nested arm/disarm pairs. Idempotent: calling it twice
// before a matching Disarm just bumps the refcount.
func (h *Harness) ArmSignals() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armRefCount++
	if h.armRefCount > 1 {
		return
	}

	h.sigCh = make(chan os.Signal, 4)
	h.stopForward = make(chan struct{})
	// os/signal only recognizes the standard library's syscall.Signal type
	// when matching signal numbers (golang.org/x/sys/unix.Signal, despite
	// sharing the same numeric values, does not type-assert the same way),
	// so registration uses syscall constants even though arming the alarm
	// itself goes through golang.org/x/sys/unix below.
	signalNotify(h.sigCh, syscall.SIGALRM, syscall.SIGABRT)

	go h.forwardSignals(h.sigCh, h.stopForward)
}

// DisarmSignals decrements the arm refcount, restoring default signal
// disposition once it reaches zero. Idempotent past zero.
func (h *Harness) DisarmSignals() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.armRefCount == 0 {
		return
	}
	h.armRefCount--
	if h.armRefCount > 0 {
		return
	}
	signalStop(h.sigCh)
	close(h.stopForward)
	h.sigCh = nil
}

func (h *Harness) forwardSignals(sigCh chan os.Signal, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			code := codeForSignal(sig)
			if code == 0 {
				continue
			}
			if s := h.topSlot(); s != nil {
				select {
				case s.jump <- code:
				default:
				}
			}
		}
	}
}

func codeForSignal(sig os.Signal) int {
	switch sig {
	case syscall.SIGALRM:
		return ExitTimeout
	case syscall.SIGABRT:
		return ExitAbort
	default:
		return 0
	}
}

// SetTimeout arms a single-shot alarm after the given number of seconds,
// delivered as SIGALRM to the innermost protected call. Pass 0 to disarm a
// pending alarm.
func (h *Harness) SetTimeout(seconds int) error {
	_, err := unix.Alarm(uint(seconds))
	return err
}

// RuntimeExit is the compiled program's (or an unhandled-exception path's)
// normal exit call. Inside a protected call it unwinds via panic/recover to
// the innermost slot instead of terminating the process; outside any
// protected call it behaves like a direct process exit.
func (h *Harness) RuntimeExit(code int) {
	h.mu.Lock()
	inProtected := len(h.slots) > 0
	h.mu.Unlock()
	if inProtected {
		panic(runtimeExitSignal(code))
	}
	os.Exit(code)
}

// ProtectedCall (a.k.a. basic_jit_call) pushes a jump slot and invokes fn in
// a child goroutine. If fn returns normally, ProtectedCall returns its
// value unchanged. If fn calls RuntimeExit, or a SIGABRT/SIGALRM unwinds to
// this slot, ProtectedCall returns -(exit_code+1) instead, mirroring a
// longjmp-return.
func (h *Harness) ProtectedCall(fn func() int) int {
	s, err := h.push()
	if err != nil {
		// Nested protected-call depth exhausted: fail closed rather than
		// silently running unprotected.
		return -(ExitAbort + 1)
	}
	defer h.pop(s)

	h.ArmSignals()
	defer h.DisarmSignals()

	resultCh := make(chan int, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if re, ok := r.(runtimeExitSignal); ok {
					select {
					case s.jump <- int(re):
					default:
					}
					return
				}
				// An unexpected panic escaping the callee is treated the
				// same as an assertion failure reaching the host.
				select {
				case s.jump <- ExitAbort:
				default:
				}
				return
			}
		}()
		resultCh <- fn()
	}()

	select {
	case v := <-resultCh:
		return v
	case code := <-s.jump:
		return -(code + 1)
	}
}

// ProtectedExec wraps JIT main() execution with the additional shutdown
// semantics SAMM needs: an ordinary runtime-exit performs orderly shutdown,
// while a signal-driven unwind (timeout or abort, where pool mutexes may
// still be held) performs a force-abandon instead.
func (h *Harness) ProtectedExec(fn func() int, onOrdinaryExit, onForceAbandon func()) int {
	result := h.ProtectedCall(fn)
	if result < 0 {
		code := -result - 1
		if code == ExitTimeout || code == ExitAbort {
			if onForceAbandon != nil {
				onForceAbandon()
			}
		} else {
			if onOrdinaryExit != nil {
				onOrdinaryExit()
			}
		}
	}
	return result
}

// SuppressStdout redirects the process's stdout to /dev/null until
// RestoreStdout is called. Idempotent while already suppressed.
func (h *Harness) SuppressStdout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.savedStdout != nil {
		return
	}
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return
	}
	h.savedStdout = os.Stdout
	h.devNull = f
	os.Stdout = f
}

// RestoreStdout undoes SuppressStdout. No-op if stdout was not suppressed.
func (h *Harness) RestoreStdout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.savedStdout == nil {
		return
	}
	os.Stdout = h.savedStdout
	h.savedStdout = nil
	if h.devNull != nil {
		h.devNull.Close()
		h.devNull = nil
	}
}
