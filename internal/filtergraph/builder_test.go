package filtergraph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/subburn/backend/internal/subtitle"
)

func sampleEntries(n int) []subtitle.Entry {
	entries := make([]subtitle.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, subtitle.Entry{
			Index: i + 1,
			Start: float64(i * 2),
			End:   float64(i*2 + 1),
			Text:  fmt.Sprintf("line %d", i+1),
		})
	}
	return entries
}

func TestBuildStageCountMatchesEntries(t *testing.T) {
	for _, n := range []int{1, 2, 5, 50} {
		g := Build(sampleEntries(n), DefaultLayout())
		if len(g.Stages) != n {
			t.Errorf("n=%d: got %d stages", n, len(g.Stages))
		}
	}
}

func TestBuildEmptyIsPassThrough(t *testing.T) {
	g := Build(nil, DefaultLayout())
	if len(g.Stages) != 0 {
		t.Fatalf("expected no stages, got %d", len(g.Stages))
	}
	if got := g.String(); got != "[0:v]null[vout]" {
		t.Errorf("pass-through graph = %q", got)
	}
}

func TestBuildChainsStages(t *testing.T) {
	g := Build(sampleEntries(3), DefaultLayout())

	if g.Stages[0].InputLabel != "0:v" {
		t.Errorf("stage 0 input = %q, want base video", g.Stages[0].InputLabel)
	}
	for i := 1; i < len(g.Stages); i++ {
		if g.Stages[i].InputLabel != g.Stages[i-1].OutputLabel {
			t.Errorf("stage %d input %q does not chain from %q",
				i, g.Stages[i].InputLabel, g.Stages[i-1].OutputLabel)
		}
	}
	for i, s := range g.Stages {
		want := fmt.Sprintf("%d:v", i+1)
		if s.OverlayInput != want {
			t.Errorf("stage %d overlay input = %q, want %q", i, s.OverlayInput, want)
		}
	}
	if last := g.Stages[len(g.Stages)-1]; last.OutputLabel != OutputLabel {
		t.Errorf("final stage output = %q, want %q", last.OutputLabel, OutputLabel)
	}
}

func TestBuildSingleEntryString(t *testing.T) {
	entries := []subtitle.Entry{{Index: 1, Start: 1, End: 3.5, Text: "Hello"}}
	g := Build(entries, DefaultLayout())

	want := "[0:v][1:v]overlay=x=(W-w)/2:y=H-h-24:enable='between(t,1.000,3.500)'[vout]"
	if got := g.String(); got != want {
		t.Errorf("graph = %q\nwant   %q", got, want)
	}
}

func TestBuildTimePrecision(t *testing.T) {
	entries := []subtitle.Entry{{Index: 1, Start: 0.1234, End: 2.9996, Text: "x"}}
	g := Build(entries, DefaultLayout())

	got := g.String()
	if !strings.Contains(got, "between(t,0.123,3.000)") {
		t.Errorf("expected 3-digit gate bounds, got %q", got)
	}
}

func TestBuildDeterministic(t *testing.T) {
	entries := sampleEntries(20)

	a := Build(entries, DefaultLayout()).String()
	b := Build(sampleEntries(20), DefaultLayout()).String()
	if a != b {
		t.Error("identical input produced different graphs")
	}
}

func TestBuildMultiStageString(t *testing.T) {
	entries := []subtitle.Entry{
		{Index: 1, Start: 0, End: 2, Text: "a"},
		{Index: 2, Start: 4, End: 6, Text: "b"},
	}
	g := Build(entries, Layout{X: "10", Y: "20"})

	want := "[0:v][1:v]overlay=x=10:y=20:enable='between(t,0.000,2.000)'[v1];" +
		"[v1][2:v]overlay=x=10:y=20:enable='between(t,4.000,6.000)'[vout]"
	if got := g.String(); got != want {
		t.Errorf("graph = %q\nwant   %q", got, want)
	}
}
