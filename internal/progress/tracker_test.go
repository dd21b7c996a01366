package progress

import (
	"sync"
	"testing"
	"time"
)

// recorder collects emitted updates for assertions.
type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) handler(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, len(r.updates))
	copy(out, r.updates)
	return out
}

func TestUpdatePhaseMonotonic(t *testing.T) {
	tr := NewTracker()
	rec := &recorder{}
	defer tr.Subscribe(rec.handler)()

	tr.UpdatePhase(10, "a")
	tr.UpdatePhase(5, "backwards")
	tr.UpdatePhase(10, "duplicate")
	tr.UpdatePhase(20, "b")

	if got := tr.Snapshot().Percent; got != 20 {
		t.Errorf("percent = %v, want 20", got)
	}

	last := -1.0
	for _, u := range rec.all() {
		if u.Percent <= last {
			t.Errorf("non-monotonic emission: %v after %v", u.Percent, last)
		}
		last = u.Percent
	}
	// The backwards update must not change the stored message either.
	if tr.Snapshot().Message != "b" {
		t.Errorf("message = %q, want %q", tr.Snapshot().Message, "b")
	}
}

func TestUpdatePhaseClamps(t *testing.T) {
	tr := NewTracker()
	tr.UpdatePhase(150, "")
	if got := tr.Snapshot().Percent; got != 100 {
		t.Errorf("percent = %v, want clamped to 100", got)
	}
}

func TestUpdatePhaseEmissionThrottle(t *testing.T) {
	tr := NewTracker()
	rec := &recorder{}
	defer tr.Subscribe(rec.handler)()

	tr.UpdatePhase(0.5, "") // first nonzero: emits
	tr.UpdatePhase(0.9, "") // +0.4 since last emit: suppressed
	tr.UpdatePhase(1.4, "") // +0.9: suppressed
	tr.UpdatePhase(1.6, "") // +1.1: emits

	got := rec.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 emissions, got %d: %+v", len(got), got)
	}
	if got[0].Percent != 0.5 || got[1].Percent != 1.6 {
		t.Errorf("emitted %v and %v, want 0.5 and 1.6", got[0].Percent, got[1].Percent)
	}

	// Internal state still advanced on suppressed updates.
	tr2 := NewTracker()
	tr2.UpdatePhase(0.5, "")
	tr2.UpdatePhase(0.9, "")
	if tr2.Snapshot().Percent != 0.9 {
		t.Errorf("internal percent = %v, want 0.9", tr2.Snapshot().Percent)
	}
}

func TestSetPhaseResetsAndEmitsZero(t *testing.T) {
	tr := NewTracker()
	rec := &recorder{}
	defer tr.Subscribe(rec.handler)()

	tr.UpdatePhase(40, "parsing")
	tr.SetPhase(PhaseProcessingVideo)

	got := rec.all()
	if len(got) == 0 {
		t.Fatal("no emissions")
	}
	last := got[len(got)-1]
	if last.Phase != PhaseProcessingVideo || last.Percent != 0 {
		t.Errorf("phase change emitted %+v, want processing-video at 0", last)
	}
	if last.PhaseNumber != 2 {
		t.Errorf("phase number = %d, want 2", last.PhaseNumber)
	}

	// Progress restarts from zero in the new phase.
	tr.UpdatePhase(5, "")
	if tr.Snapshot().Percent != 5 {
		t.Errorf("percent = %v, want 5", tr.Snapshot().Percent)
	}
}

func TestSetPhaseSamePhaseNoOp(t *testing.T) {
	tr := NewTracker()
	rec := &recorder{}
	defer tr.Subscribe(rec.handler)()

	tr.UpdatePhase(30, "")
	before := len(rec.all())
	tr.SetPhase(PhaseParsingSubtitles)

	if len(rec.all()) != before {
		t.Error("same-phase SetPhase emitted")
	}
	if tr.Snapshot().Percent != 30 {
		t.Errorf("percent reset by same-phase SetPhase: %v", tr.Snapshot().Percent)
	}
}

func TestCompleteForcesHundredThenResets(t *testing.T) {
	tr := NewTracker()
	tr.resetDelay = 10 * time.Millisecond
	rec := &recorder{}
	defer tr.Subscribe(rec.handler)()

	tr.SetPhase(PhaseProcessingVideo)
	tr.UpdatePhase(50, "")
	tr.Complete("done")

	snap := tr.Snapshot()
	if snap.Phase != PhaseCompleted || snap.Percent != 100 {
		t.Errorf("after Complete: %+v", snap)
	}

	// Late updates are ignored in the terminal state.
	tr.UpdatePhase(99, "straggler")
	if tr.Snapshot().Percent != 100 {
		t.Error("terminal state accepted an update")
	}

	time.Sleep(50 * time.Millisecond)
	snap = tr.Snapshot()
	if snap.Phase != PhaseParsingSubtitles || snap.Percent != 0 {
		t.Errorf("tracker did not reset after delay: %+v", snap)
	}
}

func TestErrorIsSticky(t *testing.T) {
	tr := NewTracker()
	tr.SetPhase(PhaseProcessingVideo)
	tr.Error("engine exploded")

	tr.UpdatePhase(50, "")
	tr.SetPhase(PhaseProcessingVideo)

	snap := tr.Snapshot()
	if snap.Phase != PhaseError {
		t.Errorf("phase = %v, want error until Reset", snap.Phase)
	}

	tr.Reset()
	if tr.Snapshot().Phase != PhaseParsingSubtitles {
		t.Error("Reset did not leave the error state")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tr := NewTracker()
	rec := &recorder{}
	unsub := tr.Subscribe(rec.handler)

	tr.UpdatePhase(10, "")
	unsub()
	tr.UpdatePhase(50, "")

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 update after unsubscribe, got %d", len(got))
	}
}

func TestParseLogTimePattern(t *testing.T) {
	tr := NewTracker()
	tr.SetPhase(PhaseProcessingVideo)

	line := "frame= 120 fps= 30 q=28.0 size=     512KiB time=00:00:05.00 bitrate= 838.9kbits/s speed=1.2x"
	if !tr.ParseLog(line, 10) {
		t.Fatal("expected time= extraction to succeed")
	}
	if got := tr.Snapshot().Percent; got != 50 {
		t.Errorf("percent = %v, want 50", got)
	}
}

func TestParseLogFrameFPSFallback(t *testing.T) {
	tr := NewTracker()
	tr.SetPhase(PhaseProcessingVideo)

	// No usable time marker; 60 frames at 30fps = 2s of a 10s video.
	if !tr.ParseLog("frame=  60 fps= 30 q=-1.0", 10) {
		t.Fatal("expected frame/fps extraction to succeed")
	}
	if got := tr.Snapshot().Percent; got != 20 {
		t.Errorf("percent = %v, want 20", got)
	}
}

func TestParseLogInactivePhase(t *testing.T) {
	tr := NewTracker()
	if tr.ParseLog("time=00:00:05.00", 10) {
		t.Error("extraction should fail outside processing-video")
	}

	tr.SetPhase(PhaseProcessingVideo)
	if tr.ParseLog("time=00:00:05.00", 0) {
		t.Error("extraction should fail with unknown duration")
	}
}

func TestParseLogUnrecognizedLine(t *testing.T) {
	tr := NewTracker()
	tr.SetPhase(PhaseProcessingVideo)

	if tr.ParseLog("Stream #0:0: Video: h264, yuv420p, 1280x720", 10) {
		t.Error("stream header line should not be treated as progress")
	}
	if tr.Snapshot().Percent != 0 {
		t.Error("unrecognized line moved progress")
	}
}

func TestParseClockForms(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"00:01:30.500", 90.5, true},
		{"01:30.500", 90.5, true},
		{"90.5", 90.5, true},
		{"00:00:05,250", 5.25, true},
		{"5", 5, true},
		{"", 0, false},
		{"1:2:3:4", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseClock(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseClock(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
