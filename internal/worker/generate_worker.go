package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stickerlab/api/internal/browser"
	"github.com/stickerlab/api/internal/config"
	"github.com/stickerlab/api/internal/model"
	"github.com/stickerlab/api/internal/service"
)

// Session is the per-task connection to the remote generation UI.
type Session interface {
	Submit(ctx context.Context, text string, attachments []string) error
	AwaitCompletion(ctx context.Context)
	FetchLatestArtifact(ctx context.Context) ([]byte, error)
	CaptureDiagnostic(ctx context.Context, path string)
	Close()
}

// Driver acquires one Session per task.
type Driver interface {
	Acquire(ctx context.Context) (Session, error)
}

// ChromeDriver adapts browser.Driver to the worker's Driver interface.
func ChromeDriver(d *browser.Driver) Driver {
	return chromeDriver{d}
}

type chromeDriver struct{ d *browser.Driver }

func (c chromeDriver) Acquire(ctx context.Context) (Session, error) {
	s, err := c.d.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GenerateWorker executes one generation task end to end: one session, one
// submit/await/download round per preset, one artifact file per success.
type GenerateWorker struct {
	driver Driver
	cfg    config.BrowserConfig
}

func NewGenerateWorker(driver Driver, cfg config.BrowserConfig) *GenerateWorker {
	return &GenerateWorker{driver: driver, cfg: cfg}
}

// Run implements service.JobRunner. Only session acquisition errors (and
// output directory setup) escape; every per-item error is absorbed into a
// failed ItemResult so the batch keeps going.
func (w *GenerateWorker) Run(ctx context.Context, in service.RunInput, sink service.ProgressSink) error {
	sess, err := w.driver.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer sess.Close()

	if err := os.MkdirAll(in.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	base := strings.TrimSpace(in.CustomPrompt)
	if base == "" {
		base = DefaultBasePrompt
	}

	results := make([]model.ItemResult, 0, len(in.Presets))
	for i, preset := range in.Presets {
		index := i + 1
		sink.BeginItem(in.TaskID, index, preset.Title)

		res := w.runItem(ctx, sess, in, base, index, preset)
		results = append(results, res)
		sink.RecordItem(in.TaskID, res)

		if res.Success {
			log.Printf("[Worker] Task %s item %d/%d ok", in.TaskID, index, len(in.Presets))
		} else {
			log.Printf("[Worker] Task %s item %d/%d failed: %s", in.TaskID, index, len(in.Presets), *res.Error)
		}

		if index < len(in.Presets) {
			if err := sleepCtx(ctx, w.cfg.ItemSettle); err != nil {
				// Context gone; record nothing further but keep the report.
				break
			}
		}
	}

	if err := w.writeReport(in, results); err != nil {
		log.Printf("[Worker] Task %s: report not written: %v", in.TaskID, err)
	}
	return nil
}

// runItem performs one submit → await → download round. It never returns an
// error: any failure becomes a success:false result and the next item runs.
func (w *GenerateWorker) runItem(ctx context.Context, sess Session, in service.RunInput, base string, index int, preset model.Preset) model.ItemResult {
	prompt := ComposePrompt(base, preset.Prompt)

	// The remote UI keeps no attachments across turns, so both reference
	// images are re-uploaded for every single item.
	attachments := []string{in.MotherImagePath, in.AnchorImagePath}
	if err := sess.Submit(ctx, prompt, attachments); err != nil {
		sess.CaptureDiagnostic(ctx, diagnosticPath(in.OutputDir, index, "submit"))
		return failedItem(index, preset.Title, err)
	}

	sess.AwaitCompletion(ctx)

	data, err := sess.FetchLatestArtifact(ctx)
	if err != nil {
		sess.CaptureDiagnostic(ctx, diagnosticPath(in.OutputDir, index, "download"))
		return failedItem(index, preset.Title, err)
	}

	name := artifactFilename(index, preset.Title)
	path := filepath.Join(in.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return failedItem(index, preset.Title, fmt.Errorf("write artifact: %w", err))
	}

	return model.ItemResult{
		Index:        index,
		Title:        preset.Title,
		Success:      true,
		ArtifactPath: &path,
		Timestamp:    time.Now(),
	}
}

// writeReport drops a JSON summary next to the artifacts.
func (w *GenerateWorker) writeReport(in service.RunInput, results []model.ItemResult) error {
	success := 0
	for _, r := range results {
		if r.Success {
			success++
		}
	}
	report := model.GenerationReport{
		TaskID: in.TaskID,
		Summary: model.GenerateSummary{
			Total:   len(in.Presets),
			Success: success,
			Failed:  len(results) - success,
		},
		Results:     results,
		GeneratedAt: time.Now(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(in.OutputDir, "report.json"), data, 0o644)
}

func failedItem(index int, title string, err error) model.ItemResult {
	msg := err.Error()
	return model.ItemResult{
		Index:     index,
		Title:     title,
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now(),
	}
}

func diagnosticPath(dir string, index int, stage string) string {
	return filepath.Join(dir, fmt.Sprintf("debug_%02d_%s_%d.png", index, stage, time.Now().Unix()))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
