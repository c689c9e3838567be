package pipeline

import (
	"sync"
	"testing"
)

func TestTracker_SetAndGet(t *testing.T) {
	tr := NewTracker()

	tr.Set("u1", Progress{Stage: StageReading, Progress: 5, Message: "Reading uploaded file"})
	got, ok := tr.Get("u1")
	if !ok {
		t.Fatal("record not found")
	}
	if got.Stage != StageReading || got.Progress != 5 {
		t.Fatalf("got %+v", got)
	}

	_, ok = tr.Get("missing")
	if ok {
		t.Fatal("expected miss for unknown upload id")
	}
}

func TestTracker_ReplacesWholeRecord(t *testing.T) {
	tr := NewTracker()

	tr.Set("u1", Progress{Stage: StageAnalyzing, Progress: 50, Total: 100, Processed: 40})
	tr.Set("u1", Progress{Stage: StageFinalizing, Progress: 85})

	got, _ := tr.Get("u1")
	if got.Total != 0 || got.Processed != 0 {
		t.Fatalf("stale counts survived replacement: %+v", got)
	}
	if got.Stage != StageFinalizing {
		t.Fatalf("Stage = %q, want %q", got.Stage, StageFinalizing)
	}
}

func TestTracker_TerminalStagesAreFinal(t *testing.T) {
	for _, terminal := range []string{StageComplete, StageError} {
		tr := NewTracker()
		tr.Set("u1", Progress{Stage: terminal, Progress: 100})
		tr.Set("u1", Progress{Stage: StageAnalyzing, Progress: 50})

		got, _ := tr.Get("u1")
		if got.Stage != terminal {
			t.Fatalf("write after %s was not ignored: %+v", terminal, got)
		}
	}
}

func TestTracker_Delete(t *testing.T) {
	tr := NewTracker()
	tr.Set("u1", Progress{Stage: StageComplete, Progress: 100})
	tr.Delete("u1")

	if _, ok := tr.Get("u1"); ok {
		t.Fatal("record survived delete")
	}
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Set("u1", Progress{Stage: StageAnalyzing, Progress: j % 81})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Get("u1")
			}
		}()
	}
	wg.Wait()
}
