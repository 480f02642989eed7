// Package diag is SAMM's ambient logging surface: BASIC_MEMORY_STATS-
// gated stats reporting at shutdown and FATAL:-prefixed
// invariant-violation logging.
package diag

import (
	"fmt"
	"log"
	"os"
)

// StatsEnvVar gates whether ReportStats prints anything at shutdown.
const StatsEnvVar = "BASIC_MEMORY_STATS"

// StatsEnabled reports whether BASIC_MEMORY_STATS is set to a truthy
// value.
func StatsEnabled() bool {
	v := os.Getenv(StatsEnvVar)
	return v != "" && v != "0" && v != "false"
}

// ReportStats prints each line from sections if and only if StatsEnabled
// returns true. Called by samm.Shutdown immediately after samm.Wait.
func ReportStats(sections ...string) {
	if !StatsEnabled() {
		return
	}
	fmt.Println("=== SAMM memory stats ===")
	for _, s := range sections {
		fmt.Println(s)
	}
	fmt.Println("=========================")
}

// Fatalf logs a FATAL:-prefixed message and terminates the process, the
// path internal invariant violations (scope-depth overflow, exiting the
// global scope, use before Init) take. Pool corruption is not routed
// here: slab.Pool.Validate reports it as an error to its caller. It never
// returns.
func Fatalf(format string, args ...any) {
	log.Fatalf("FATAL: "+format, args...)
}

// Warnf logs a non-fatal WARN:-prefixed diagnostic, used on the slab-
// exhaustion-to-raw-heap fallback path.
func Warnf(format string, args ...any) {
	log.Printf("WARN: "+format, args...)
}
