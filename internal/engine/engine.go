// Package engine wraps the external multimedia engine behind a narrow
// command-execution and scratch-filesystem interface. The production
// implementation shells out to the system ffmpeg binary; everything above
// this package only sees argv lists, named files, and an event stream.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTerminated is the expected sentinel reported after Terminate. It is
// a clean-cancellation signal, not a failure: callers route it to their
// cancellation path. The engine stays invalid until the next Load.
var ErrTerminated = errors.New("engine terminated")

// ErrNotLoaded is reported when the engine is used before Load succeeds.
var ErrNotLoaded = errors.New("engine not loaded")

// EventType discriminates engine event stream entries.
type EventType string

const (
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
)

// Event is one advisory entry from the engine's event stream. Log lines
// and progress ratios are best effort: no cadence, completeness, or
// ordering is guaranteed.
type Event struct {
	Type     EventType
	Message  string  // EventLog
	Progress float64 // EventProgress, 0..1
}

// Handler receives engine events.
type Handler func(Event)

// Engine is the execution surface consumed by the burn pipeline. At most
// one Exec may be in flight per instance; callers serialize runs.
type Engine interface {
	// Load prepares the engine. It must complete before any other call
	// and must be called again after Terminate.
	Load(ctx context.Context) error

	// WriteFile, ReadFile, and DeleteFile operate on the engine's flat
	// scratch filesystem namespace. DeleteFile is tolerant of missing
	// files.
	WriteFile(ctx context.Context, name string, data []byte) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	DeleteFile(ctx context.Context, name string) error

	// Exec runs one command argv to completion, streaming log events to
	// subscribers. Reports ErrTerminated if interrupted by Terminate.
	Exec(ctx context.Context, args []string) error

	// Subscribe registers an event handler and returns its unsubscribe
	// function.
	Subscribe(h Handler) func()

	// Terminate aborts any in-flight Exec and invalidates the instance.
	// Every subsequent call reports ErrTerminated until Load is called.
	Terminate()
}

// ExecError is any engine execution failure other than the termination
// sentinel. It carries the tail of the engine's log output for context.
type ExecError struct {
	Args    []string
	Err     error
	LogTail []string
}

func (e *ExecError) Error() string {
	if len(e.LogTail) == 0 {
		return fmt.Sprintf("engine exec %q: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("engine exec %q: %v\n%s",
		strings.Join(e.Args, " "), e.Err, strings.Join(e.LogTail, "\n"))
}

func (e *ExecError) Unwrap() error { return e.Err }
