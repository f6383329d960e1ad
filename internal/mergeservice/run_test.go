package mergeservice

import (
	"testing"

	"github.com/rawblock/annomerge/internal/orchestrator"
	"github.com/rawblock/annomerge/pkg/annotation"
)

func TestManager_CreateGetList(t *testing.T) {
	m := NewManager()
	run := m.Create("run1", orchestrator.DefaultConfig())
	if run.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", run.Status)
	}
	if got := m.Get("run1"); got == nil || got.ID != "run1" {
		t.Fatalf("expected to retrieve run1, got %v", got)
	}
	if len(m.List()) != 1 {
		t.Fatalf("expected 1 run in list, got %d", len(m.List()))
	}
}

func TestManager_RunCompletesEmptySources(t *testing.T) {
	m := NewManager()
	m.Create("run1", orchestrator.DefaultConfig())
	m.Run("run1", []annotation.Source{})

	run := m.Get("run1")
	if run.Status != StatusCompleted {
		t.Fatalf("expected completed status for empty sources, got %s", run.Status)
	}
}

func TestManager_RunFailsOnCategoryMismatch(t *testing.T) {
	m := NewManager()
	m.Create("run1", orchestrator.DefaultConfig())

	catsA := annotation.Categories{annotation.TypeLabel: {Entries: []annotation.CategoryEntry{{Name: "cat"}}}}
	catsB := annotation.Categories{annotation.TypeLabel: {Entries: []annotation.CategoryEntry{{Name: "dog"}}}}
	srcA := annotation.NewMemorySource(catsA, nil)
	srcB := annotation.NewMemorySource(catsB, nil)

	m.Run("run1", []annotation.Source{srcA, srcB})

	run := m.Get("run1")
	if run.Status != StatusFailed {
		t.Fatalf("expected failed status on category mismatch, got %s", run.Status)
	}
}
