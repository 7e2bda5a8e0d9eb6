package service

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/stickerlab/api/internal/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskRunning  = errors.New("task is running")
	ErrTaskNotReady = errors.New("task not completed")
)

// RunInput is everything a runner needs to execute one task end to end.
type RunInput struct {
	TaskID          string
	MotherImagePath string
	AnchorImagePath string
	Presets         []model.Preset
	CustomPrompt    string
	OutputDir       string
}

// ProgressSink receives per-item progress from the runner. The scheduler
// implements it; the runner never touches task state directly.
type ProgressSink interface {
	BeginItem(taskID string, index int, title string)
	RecordItem(taskID string, res model.ItemResult)
}

// JobRunner executes one task against the remote service. A returned error
// is a task-fatal condition (session acquisition, login); per-item failures
// must be absorbed into ItemResults instead.
type JobRunner interface {
	Run(ctx context.Context, in RunInput, sink ProgressSink) error
}

// ProgressPublisher pushes task updates to subscribed observers. The HTTP
// layer does not depend on it; polling reads snapshots instead.
type ProgressPublisher interface {
	PublishProgress(task model.GenerationTask)
	PublishComplete(task model.GenerationTask)
	PublishError(taskID string, msg string)
}

// Scheduler owns the in-memory task registry and the single-consumer FIFO
// queue. All task state lives here for the process lifetime; nothing is
// persisted and nothing is evicted except by an explicit Reset.
//
// Exactly one drain loop runs at a time, so at most one task is ever
// driving the remote session. The remote UI has one conversation turn at a
// time and cannot serve two tasks at once.
type Scheduler struct {
	mu       sync.Mutex
	tasks    map[string]*model.GenerationTask
	pending  []pendingTask
	activeID string
	draining bool

	runner    JobRunner
	publisher ProgressPublisher
	outputDir string
}

type pendingTask struct {
	id    string
	input RunInput
}

func NewScheduler(runner JobRunner, publisher ProgressPublisher, outputDir string) *Scheduler {
	return &Scheduler{
		tasks:     make(map[string]*model.GenerationTask),
		runner:    runner,
		publisher: publisher,
		outputDir: outputDir,
	}
}

// Enqueue registers a new pending task and kicks the drain loop. It returns
// immediately; the caller polls for progress.
func (s *Scheduler) Enqueue(req *model.GenerateStartRequest, presets []model.Preset) *model.GenerateStartResponse {
	id := "task_" + uuid.New().String()
	task := model.NewGenerationTask(id, presets)

	in := RunInput{
		TaskID:          id,
		MotherImagePath: req.MotherImagePath,
		AnchorImagePath: req.AnchorImagePath,
		Presets:         presets,
		CustomPrompt:    req.CustomPrompt,
		OutputDir:       filepath.Join(s.outputDir, id),
	}

	s.mu.Lock()
	s.tasks[id] = task
	s.pending = append(s.pending, pendingTask{id: id, input: in})
	s.mu.Unlock()

	log.Printf("[Scheduler] Enqueued task %s (%d items)", id, len(presets))
	go s.drain()

	return &model.GenerateStartResponse{
		TaskID:    id,
		Status:    model.TaskStatusPending,
		Total:     len(presets),
		CreatedAt: task.CreatedAt,
	}
}

// drain is the single worker loop. Re-entrant invocations while a loop is
// already running are no-ops; queue integrity survives failed tasks.
func (s *Scheduler) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]

		task, ok := s.tasks[next.id]
		if !ok {
			// Reset while still pending; nothing to run.
			s.mu.Unlock()
			continue
		}
		task.Start()
		s.activeID = next.id
		snap := task.Snapshot()
		s.mu.Unlock()

		s.publish(snap)
		log.Printf("[Scheduler] Task %s started", next.id)

		err := s.runner.Run(context.Background(), next.input, s)

		s.mu.Lock()
		if err != nil {
			task.Fail(err.Error())
		} else {
			task.Complete()
		}
		s.activeID = ""
		snap = task.Snapshot()
		s.mu.Unlock()

		if err != nil {
			log.Printf("[Scheduler] Task %s failed: %v", next.id, err)
			if s.publisher != nil {
				s.publisher.PublishError(next.id, err.Error())
			}
		} else {
			log.Printf("[Scheduler] Task %s completed (%d/%d ok)",
				next.id, snap.SuccessCount(), snap.Total)
			if s.publisher != nil {
				s.publisher.PublishComplete(snap)
			}
		}
	}
}

// BeginItem implements ProgressSink.
func (s *Scheduler) BeginItem(taskID string, index int, title string) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if ok {
		task.BeginItem(title)
	}
	var snap model.GenerationTask
	if ok {
		snap = task.Snapshot()
	}
	s.mu.Unlock()
	if ok {
		log.Printf("[Scheduler] Task %s item %d/%d: %s", taskID, index, snap.Total, title)
		s.publish(snap)
	}
}

// RecordItem implements ProgressSink. Results are append-only and advance
// the progress counter by exactly one.
func (s *Scheduler) RecordItem(taskID string, res model.ItemResult) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if ok {
		task.RecordResult(res)
	}
	var snap model.GenerationTask
	if ok {
		snap = task.Snapshot()
	}
	s.mu.Unlock()
	if ok {
		s.publish(snap)
	}
}

// Status returns a snapshot of the task, or ErrTaskNotFound.
func (s *Scheduler) Status(taskID string) (*model.GenerateStatusResponse, error) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrTaskNotFound
	}
	snap := task.Snapshot()
	s.mu.Unlock()

	return &model.GenerateStatusResponse{
		TaskID:      snap.ID,
		Status:      snap.Status,
		Progress:    snap.Progress,
		Total:       snap.Total,
		CurrentItem: snap.CurrentItem,
		Results:     snap.Results,
		Error:       snap.Error,
		CreatedAt:   snap.CreatedAt,
		StartedAt:   snap.StartedAt,
		EndedAt:     snap.EndedAt,
	}, nil
}

// Results returns the final result list, only once the task has completed.
func (s *Scheduler) Results(taskID string) (*model.GenerateResultsResponse, error) {
	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrTaskNotFound
	}
	snap := task.Snapshot()
	s.mu.Unlock()

	if snap.Status != model.TaskStatusCompleted {
		return nil, ErrTaskNotReady
	}

	return &model.GenerateResultsResponse{
		TaskID:  snap.ID,
		Results: snap.Results,
		Summary: model.GenerateSummary{
			Total:     snap.Total,
			Success:   snap.SuccessCount(),
			Failed:    snap.Total - snap.SuccessCount(),
			StartedAt: snap.StartedAt,
			EndedAt:   snap.EndedAt,
		},
	}, nil
}

// Reset removes a task from the registry. A running task cannot be removed;
// a pending one is also pulled out of the queue before the worker sees it.
func (s *Scheduler) Reset(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	if task.Status == model.TaskStatusRunning {
		return ErrTaskRunning
	}

	delete(s.tasks, taskID)
	for i, p := range s.pending {
		if p.id == taskID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	log.Printf("[Scheduler] Task %s reset", taskID)
	return nil
}

// StatusOf returns just the status string for error payloads.
func (s *Scheduler) StatusOf(taskID string) (model.TaskStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return "", false
	}
	return task.Status, true
}

func (s *Scheduler) publish(snap model.GenerationTask) {
	if s.publisher != nil {
		s.publisher.PublishProgress(snap)
	}
}
