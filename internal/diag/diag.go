// Package diag provides the process-wide diagnostic logger. It follows
// the teacher's internal/debug package: a single mutex-guarded
// stdlib *log.Logger, no structured-logging dependency, gated by a level
// so quiet operation (native CLI one-shots) doesn't spam stderr.
package diag

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level controls which calls actually reach the underlying writer.
type Level int

const (
	LevelSilent Level = iota
	LevelInfo
	LevelVerbose
)

var (
	mu      sync.Mutex
	logger  = log.New(os.Stderr, "tychk: ", log.LstdFlags)
	current = LevelInfo
	recent  []string
)

// recentCap bounds the ring buffer RageRequest draws from (spec.md
// §4.5's "gather diagnostic log items"); old enough to be useful in a
// bug report, small enough to never matter for memory.
const recentCap = 200

// SetOutput redirects diagnostic output; passing io.Discard silences it.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// SetLevel adjusts the minimum level that reaches the writer.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

func printf(l Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	line := fmt.Sprintf(format, args...)
	recent = append(recent, line)
	if len(recent) > recentCap {
		recent = recent[len(recent)-recentCap:]
	}
	if l > current {
		return
	}
	logger.Printf("%s", line)
}

// RecentLines returns a snapshot of the most recent log lines regardless
// of the current level, for RageRequest's diagnostic dump.
func RecentLines() []string {
	mu.Lock()
	defer mu.Unlock()
	return append([]string(nil), recent...)
}

// Info logs at LevelInfo — client disconnects, broken pipes, unhandled
// LSP methods: the events spec.md requires to be logged but never fatal.
func Info(format string, args ...interface{}) { printf(LevelInfo, format, args...) }

// Verbose logs at LevelVerbose — per-stage pipeline tracing.
func Verbose(format string, args ...interface{}) { printf(LevelVerbose, format, args...) }
