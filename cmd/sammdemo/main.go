// cmd/sammdemo/main.go
// sammdemo plays the role of a compiled BASIC program calling into the
// SAMM runtime: it enters scopes, allocates objects and strings, walks a
// class hierarchy, throws and catches a runtime error, and runs one
// statement block under the JIT protection harness with a timeout. It
// also runs a small host: GOMAXPROCS tuning, a startup banner, HTTP
// health/metrics endpoints, and signal-driven graceful shutdown, all
// reporting SAMM's own diagnostics.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/gobasic/sammrt/internal/class"
	"github.com/gobasic/sammrt/internal/errtab"
	"github.com/gobasic/sammrt/internal/protect"
	"github.com/gobasic/sammrt/samm"
)

const (
	Version = "1.0.0"

	DefaultPort        = 9000
	DefaultMetricsPort = 9001
)

type demoHost struct {
	httpServer    *http.Server
	metricsServer *http.Server
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	fmt.Printf("SAMM Runtime Demo Host v%s\n", Version)
	fmt.Println("Scope-Aware Memory Manager for a compiled BASIC dialect")
	fmt.Println("========================================================")
	fmt.Printf("CPUs: %d, GOMAXPROCS: %d\n", runtime.NumCPU(), runtime.GOMAXPROCS(0))

	if err := samm.Init(); err != nil {
		log.Fatalf("FATAL: samm.Init: %v", err)
	}

	if jaegerEndpoint := os.Getenv("JAEGER_ENDPOINT"); jaegerEndpoint != "" {
		if err := samm.SetTrace(true, jaegerEndpoint); err != nil {
			log.Printf("Warning: failed to initialize tracing: %v", err)
		}
	}

	fmt.Println("✓ SAMM initialized (6 object size classes, StringDesc/ListHeader/ListAtom pools)")

	runCompiledProgramDemo()

	host := newDemoHost()
	if err := host.start(); err != nil {
		log.Fatalf("FATAL: failed to start demo host: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	host.shutdown()

	samm.Wait()
	samm.Shutdown()
	fmt.Println("✓ SAMM shut down")
}

// classA/classB/classC form the single-inheritance chain A ← B ← C used
// to demonstrate class.IsInstance's fast-path/slow-path walk.
var (
	classA = &class.Metadata{ID: 1, Name: "A"}
	classB = &class.Metadata{ID: 2, Parent: classA, Name: "B"}
	classC = &class.Metadata{ID: 3, Parent: classB, Name: "C", Destructor: func(obj unsafe.Pointer) {
		fmt.Println("  destructing C instance")
	}}
)

// sammAllocator adapts the samm package's free functions to
// class.Allocator, the small interface class.NewObject needs.
type sammAllocator struct{}

func (sammAllocator) AllocObject(size int) unsafe.Pointer { return samm.AllocObject(size) }
func (sammAllocator) FreeObject(ptr unsafe.Pointer)       { samm.FreeObject(ptr) }
func (sammAllocator) TrackObject(ptr unsafe.Pointer)      { samm.TrackObject(ptr) }

// runCompiledProgramDemo exercises the surface a codegen backend would
// emit calls into at scope boundaries, allocations, and type checks.
func runCompiledProgramDemo() {
	fmt.Println("\n--- scope + object + string demo ---")
	if err := samm.EnterScope(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	obj, err := class.NewObject(sammAllocator{}, 32, classC)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	fmt.Printf("  allocated C instance at %p (IS A: %v, IS B: %v)\n",
		obj, class.IsInstance(obj, classA.ID), class.IsInstance(obj, classB.ID))

	s := samm.AllocString("hello, basic")
	fmt.Printf("  allocated string descriptor, len=%d\n", s.Len())

	samm.ExitScope()
	samm.Wait()
	fmt.Printf("  after exit_scope+wait: %s\n", samm.PrintStats())

	fmt.Println("\n--- retain-across-scope demo ---")
	samm.EnterScope() // depth 1
	samm.EnterScope() // depth 2
	retained := samm.AllocObject(64)
	samm.TrackObject(retained)
	if err := samm.RetainParent(retained); err != nil {
		log.Printf("WARN: retain failed: %v", err)
	}
	samm.ExitScope() // depth 2 exits; retained now lives in depth 1's frame
	samm.ExitScope() // depth 1 exits; retained is finally freed here
	samm.Wait()

	fmt.Println("\n--- TRY/CATCH demo ---")
	if rerr := samm.Try(func() {
		samm.SetLine(140)
		samm.Throw(errtab.DivByZero)
	}); rerr != nil {
		fmt.Printf("  caught: %v (ERR=%d, ERL=%d)\n", rerr, samm.Err(), samm.Erl())
	}

	fmt.Println("\n--- JIT protection harness demo ---")
	harness := protect.New()
	if err := harness.SetTimeout(1); err != nil {
		log.Printf("WARN: set_timeout: %v", err)
	}
	result := harness.ProtectedExec(func() int {
		for i := 0; ; i++ {
			if i%100000000 == 0 {
				time.Sleep(time.Microsecond)
			}
		}
	}, func() {}, samm.ForceAbandon)
	fmt.Printf("  protected_exec returned %d (timeout maps to -(124+1))\n", result)
}

func newDemoHost() *demoHost {
	mux := http.NewServeMux()
	mux.HandleFunc("/samm/health/live", handleHealth)
	mux.HandleFunc("/samm/health/ready", handleReady)

	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/metrics", handleMetrics)

	return &demoHost{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", DefaultPort),
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		metricsServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", DefaultMetricsPort),
			Handler: metricsMux,
		},
	}
}

func (h *demoHost) start() error {
	fmt.Println("✓ Starting health server...")
	go func() {
		if err := h.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()

	fmt.Println("✓ Starting metrics server...")
	go func() {
		if err := h.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	fmt.Printf("\nsammdemo running\n")
	fmt.Printf("   - Health: http://localhost:%d/samm/health/live\n", DefaultPort)
	fmt.Printf("   - Metrics: http://localhost:%d/metrics\n", DefaultMetricsPort)
	return nil
}

func (h *demoHost) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("Shutting down health server...")
	if err := h.httpServer.Shutdown(ctx); err != nil {
		log.Printf("health server shutdown error: %v", err)
	}
	fmt.Println("Shutting down metrics server...")
	if err := h.metricsServer.Shutdown(ctx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

// handleMetrics renders samm.GetStats as Prometheus text.
func handleMetrics(w http.ResponseWriter, r *http.Request) {
	s := samm.GetStats()
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP samm_enabled Whether SAMM is currently enabled\n")
	fmt.Fprintf(w, "# TYPE samm_enabled gauge\n")
	fmt.Fprintf(w, "samm_enabled %d\n", boolToInt(s.Enabled))

	fmt.Fprintf(w, "\n# HELP samm_scope_depth Current scope nesting depth\n")
	fmt.Fprintf(w, "# TYPE samm_scope_depth gauge\n")
	fmt.Fprintf(w, "samm_scope_depth %d\n", s.ScopeDepth)

	fmt.Fprintf(w, "\n# HELP samm_scopes_entered_total Scopes entered since Init\n")
	fmt.Fprintf(w, "# TYPE samm_scopes_entered_total counter\n")
	fmt.Fprintf(w, "samm_scopes_entered_total %d\n", s.ScopesEntered)

	fmt.Fprintf(w, "\n# HELP samm_scopes_exited_total Scopes exited since Init\n")
	fmt.Fprintf(w, "# TYPE samm_scopes_exited_total counter\n")
	fmt.Fprintf(w, "samm_scopes_exited_total %d\n", s.ScopesExited)

	fmt.Fprintf(w, "\n# HELP samm_bytes_freed_total Bytes reported freed via RecordBytesFreed\n")
	fmt.Fprintf(w, "# TYPE samm_bytes_freed_total counter\n")
	fmt.Fprintf(w, "samm_bytes_freed_total %d\n", s.BytesFreed)

	for _, p := range s.ObjectPools {
		fmt.Fprintf(w, "\nsamm_pool_in_use{pool=%q} %d\n", p.Name, p.InUse)
		fmt.Fprintf(w, "samm_pool_peak_use{pool=%q} %d\n", p.Name, p.PeakUse)
		fmt.Fprintf(w, "samm_pool_overflow_total{pool=%q} %d\n", p.Name, p.Overflow)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
