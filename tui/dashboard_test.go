package tui

import (
	"testing"
)

func TestPipeCycleRecordsSaturationState(t *testing.T) {
	d := NewDashboard()

	d.PipeCycle("evolution", false)
	d.PipeCycle("evolution", true)

	d.mu.Lock()
	row, ok := d.pipes["evolution"]
	d.mu.Unlock()

	if !ok {
		t.Fatal("expected a row for pipe \"evolution\"")
	}
	if !row.saturated {
		t.Fatal("expected latest saturated state to be true")
	}
	if row.cycleCount != 2 {
		t.Fatalf("expected cycleCount=2, got %d", row.cycleCount)
	}
}

func TestPipeCycleTracksMultiplePipesIndependently(t *testing.T) {
	d := NewDashboard()

	d.PipeCycle("source", false)
	d.PipeCycle("sink", true)

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pipes) != 2 {
		t.Fatalf("expected 2 pipe rows, got %d", len(d.pipes))
	}
	if d.pipes["source"].saturated {
		t.Fatal("expected source to be unsaturated")
	}
	if !d.pipes["sink"].saturated {
		t.Fatal("expected sink to be saturated")
	}
}

func TestBestScoreAppendsHistoryLine(t *testing.T) {
	d := NewDashboard()

	d.BestScore("evolution", 1.5)
	d.BestScore("evolution", 2.75)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.haveBest {
		t.Fatal("expected haveBest to be true")
	}
	if d.bestScore != 2.75 {
		t.Fatalf("expected bestScore=2.75, got %v", d.bestScore)
	}
	if len(d.bestLines) != 2 {
		t.Fatalf("expected 2 history lines, got %d", len(d.bestLines))
	}
}

func TestBestScoreHistoryIsBounded(t *testing.T) {
	d := NewDashboard()

	for i := 0; i < 600; i++ {
		d.BestScore("evolution", float64(i))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.bestLines) != 500 {
		t.Fatalf("expected history capped at 500 lines, got %d", len(d.bestLines))
	}
}
