package model

import (
	"testing"
	"time"
)

func testPresets() []Preset {
	return []Preset{
		{Title: "hello", Prompt: "wave"},
		{Title: "crying", Prompt: "tears"},
		{Title: "ok", Prompt: "ok sign"},
	}
}

func TestNewGenerationTask_Defaults(t *testing.T) {
	task := NewGenerationTask("task_1", testPresets())

	if task.Status != TaskStatusPending {
		t.Errorf("expected pending, got %s", task.Status)
	}
	if task.Total != 3 {
		t.Errorf("expected total 3, got %d", task.Total)
	}
	if task.Progress != 0 {
		t.Errorf("expected progress 0, got %d", task.Progress)
	}
	if len(task.Results) != 0 {
		t.Errorf("expected no results, got %d", len(task.Results))
	}
	if task.StartedAt != nil || task.EndedAt != nil {
		t.Error("timestamps must be unset before start")
	}
}

func TestStart_SetsStartedAtOnce(t *testing.T) {
	task := NewGenerationTask("task_1", testPresets())
	task.Start()

	if task.Status != TaskStatusRunning {
		t.Fatalf("expected running, got %s", task.Status)
	}
	first := task.StartedAt
	if first == nil {
		t.Fatal("StartedAt not set")
	}

	task.Start() // second call is a no-op
	if task.StartedAt != first {
		t.Error("StartedAt changed on repeated Start")
	}
}

func TestRecordResult_AdvancesProgress(t *testing.T) {
	task := NewGenerationTask("task_1", testPresets())
	task.Start()

	for i := 1; i <= 3; i++ {
		task.BeginItem(task.Items[i-1].Title)
		task.RecordResult(ItemResult{Index: i, Title: task.Items[i-1].Title, Timestamp: time.Now()})
		if task.Progress != i {
			t.Errorf("after item %d: progress %d", i, task.Progress)
		}
		if len(task.Results) != task.Progress {
			t.Errorf("results/progress mismatch: %d vs %d", len(task.Results), task.Progress)
		}
	}
}

func TestComplete_IsTerminal(t *testing.T) {
	task := NewGenerationTask("task_1", testPresets())
	task.Start()
	task.RecordResult(ItemResult{Index: 1, Title: "hello"})
	task.BeginItem("crying")
	task.Complete()

	if task.Status != TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", task.Status)
	}
	if task.CurrentItem != "" {
		t.Error("CurrentItem must be cleared on completion")
	}
	ended := task.EndedAt
	if ended == nil {
		t.Fatal("EndedAt not set")
	}

	// Nothing mutates a terminal task.
	task.RecordResult(ItemResult{Index: 2, Title: "crying"})
	task.BeginItem("ok")
	task.Fail("late failure")
	task.Complete()

	if len(task.Results) != 1 {
		t.Error("results mutated after completion")
	}
	if task.Status != TaskStatusCompleted {
		t.Errorf("terminal state left: %s", task.Status)
	}
	if task.Error != nil {
		t.Error("error set after completion")
	}
	if task.EndedAt != ended {
		t.Error("EndedAt changed after completion")
	}
}

func TestFail_FromPendingAndRunning(t *testing.T) {
	pending := NewGenerationTask("task_1", testPresets())
	pending.Fail("no session")
	if pending.Status != TaskStatusFailed || pending.Error == nil {
		t.Error("pending task should fail directly")
	}

	running := NewGenerationTask("task_2", testPresets())
	running.Start()
	running.BeginItem("hello")
	running.Fail("login failed")
	if running.Status != TaskStatusFailed {
		t.Fatalf("expected failed, got %s", running.Status)
	}
	if running.CurrentItem != "" {
		t.Error("CurrentItem must be cleared on failure")
	}
	if *running.Error != "login failed" {
		t.Errorf("unexpected error %q", *running.Error)
	}
}

func TestSnapshot_IsIsolated(t *testing.T) {
	task := NewGenerationTask("task_1", testPresets())
	task.Start()
	task.RecordResult(ItemResult{Index: 1, Title: "hello", Success: true})

	snap := task.Snapshot()
	task.RecordResult(ItemResult{Index: 2, Title: "crying"})

	if len(snap.Results) != 1 {
		t.Errorf("snapshot shares results slice: %d entries", len(snap.Results))
	}
}

func TestSuccessCount(t *testing.T) {
	task := NewGenerationTask("task_1", testPresets())
	task.Start()
	p := "x.png"
	task.RecordResult(ItemResult{Index: 1, Success: true, ArtifactPath: &p})
	msg := "boom"
	task.RecordResult(ItemResult{Index: 2, Success: false, Error: &msg})
	task.RecordResult(ItemResult{Index: 3, Success: true, ArtifactPath: &p})

	if got := task.SuccessCount(); got != 2 {
		t.Errorf("expected 2 successes, got %d", got)
	}
}
