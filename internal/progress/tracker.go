// Package progress tracks a burn run through its phases and normalizes
// the engine's best-effort log output into a monotonic 0–100 value.
package progress

import (
	"sync"
	"time"
)

// Phase names one step of a run. A tracker starts in PhaseParsingSubtitles
// and moves forward only; PhaseError is reachable from anywhere.
type Phase string

const (
	PhaseParsingSubtitles Phase = "parsing-subtitles"
	PhaseProcessingVideo  Phase = "processing-video"
	PhaseCompleted        Phase = "completed"
	PhaseError            Phase = "error"
)

var phaseNumbers = map[Phase]int{
	PhaseParsingSubtitles: 1,
	PhaseProcessingVideo:  2,
	PhaseCompleted:        3,
	PhaseError:            0,
}

// Update is an externally observable progress snapshot.
type Update struct {
	Phase       Phase   `json:"phase"`
	PhaseNumber int     `json:"phase_number"`
	Percent     float64 `json:"percent"`
	Message     string  `json:"message"`
}

// Handler receives emitted updates.
type Handler func(Update)

// defaultResetDelay keeps the terminal 100% state visible long enough for
// late subscribers before the tracker returns to its initial state.
const defaultResetDelay = 500 * time.Millisecond

// Tracker is the phase/progress state machine. Within a phase, observable
// progress never decreases; emissions are throttled to whole-point
// increases so subscribers are not flooded by engine log chatter.
type Tracker struct {
	mu             sync.Mutex
	phase          Phase
	percent        float64
	message        string
	lastEmitted    float64
	emittedNonzero bool

	subscribers map[int]Handler
	nextSub     int

	resetDelay time.Duration
	resetTimer *time.Timer
}

// NewTracker returns a tracker in the initial phase at 0%.
func NewTracker() *Tracker {
	return &Tracker{
		phase:       PhaseParsingSubtitles,
		subscribers: make(map[int]Handler),
		resetDelay:  defaultResetDelay,
	}
}

// Subscribe registers a handler for emitted updates and returns its
// unsubscribe function.
func (t *Tracker) Subscribe(h Handler) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subscribers[id] = h
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}
}

// Snapshot returns the current state without emitting.
func (t *Tracker) Snapshot() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Update {
	return Update{
		Phase:       t.phase,
		PhaseNumber: phaseNumbers[t.phase],
		Percent:     t.percent,
		Message:     t.message,
	}
}

// SetPhase transitions to a new phase, resetting progress to zero and
// immediately emitting a 0% update so observers never see the new phase
// label with a stale value. Same-phase calls are no-ops, and terminal
// phases only leave via Reset.
func (t *Tracker) SetPhase(phase Phase) {
	t.mu.Lock()
	if phase == t.phase || t.terminalLocked() {
		t.mu.Unlock()
		return
	}
	t.phase = phase
	t.percent = 0
	t.lastEmitted = 0
	t.emittedNonzero = false
	update, handlers := t.emitLocked()
	t.mu.Unlock()

	dispatch(handlers, update)
}

// UpdatePhase records progress within the current phase. Values are
// clamped to [0,100]; anything at or below the current value is dropped,
// which is what keeps scraped engine output from bouncing backwards.
// The internal value moves on every accepted call, but an emission only
// happens for the phase's first nonzero value or a ≥1 point rise over the
// last emitted value.
func (t *Tracker) UpdatePhase(value float64, message string) {
	t.mu.Lock()
	if t.terminalLocked() {
		t.mu.Unlock()
		return
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	if value <= t.percent {
		t.mu.Unlock()
		return
	}
	t.percent = value
	if message != "" {
		t.message = message
	}

	firstNonzero := !t.emittedNonzero && value > 0
	if !firstNonzero && value-t.lastEmitted < 1 {
		t.mu.Unlock()
		return
	}
	update, handlers := t.emitLocked()
	t.mu.Unlock()

	dispatch(handlers, update)
}

// Complete forces the completed phase at 100%, emits, and schedules a
// return to the initial state after a short delay.
func (t *Tracker) Complete(message string) {
	t.mu.Lock()
	t.phase = PhaseCompleted
	t.percent = 100
	t.message = message
	update, handlers := t.emitLocked()
	if t.resetTimer != nil {
		t.resetTimer.Stop()
	}
	t.resetTimer = time.AfterFunc(t.resetDelay, t.Reset)
	t.mu.Unlock()

	dispatch(handlers, update)
}

// Error forces the error phase. The tracker stays there until Reset.
func (t *Tracker) Error(message string) {
	t.mu.Lock()
	t.phase = PhaseError
	t.message = message
	update, handlers := t.emitLocked()
	t.mu.Unlock()

	dispatch(handlers, update)
}

// Reset returns to the initial state. Callable from any phase, including
// the terminal ones.
func (t *Tracker) Reset() {
	t.mu.Lock()
	if t.resetTimer != nil {
		t.resetTimer.Stop()
		t.resetTimer = nil
	}
	t.phase = PhaseParsingSubtitles
	t.percent = 0
	t.message = ""
	t.lastEmitted = 0
	t.emittedNonzero = false
	t.mu.Unlock()
}

func (t *Tracker) terminalLocked() bool {
	return t.phase == PhaseCompleted || t.phase == PhaseError
}

// emitLocked snapshots state for emission. Handlers are invoked outside
// the lock so a subscriber can safely call back into the tracker.
func (t *Tracker) emitLocked() (Update, []Handler) {
	t.lastEmitted = t.percent
	if t.percent > 0 {
		t.emittedNonzero = true
	}
	handlers := make([]Handler, 0, len(t.subscribers))
	for _, h := range t.subscribers {
		handlers = append(handlers, h)
	}
	return t.snapshotLocked(), handlers
}

func dispatch(handlers []Handler, update Update) {
	for _, h := range handlers {
		h(update)
	}
}
