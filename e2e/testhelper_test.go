package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stickerlab/api/internal/auth"
	"github.com/stickerlab/api/internal/handler"
	"github.com/stickerlab/api/internal/middleware"
	"github.com/stickerlab/api/internal/model"
	"github.com/stickerlab/api/internal/service"
)

const testJWTSecret = "test-secret-for-e2e"

const testPresetLibrary = `[
  {"title": "hello", "content": "waving"},
  {"title": "crying", "content": "tears"},
  {"title": "ok", "content": "ok sign"}
]`

// testApp holds all components needed for testing.
type testApp struct {
	app       *fiber.App
	uploadDir string
	outputDir string
}

// stubRunner replaces the browser pipeline: it produces one artifact file
// per preset instantly so the full HTTP flow can be exercised.
type stubRunner struct {
	failItem int // 1-based index of an item to fail; 0 = none
}

func (r *stubRunner) Run(ctx context.Context, in service.RunInput, sink service.ProgressSink) error {
	if err := os.MkdirAll(in.OutputDir, 0o755); err != nil {
		return err
	}
	for i, p := range in.Presets {
		index := i + 1
		sink.BeginItem(in.TaskID, index, p.Title)
		res := model.ItemResult{Index: index, Title: p.Title, Timestamp: time.Now()}
		if index == r.failItem {
			msg := "no result artifact found"
			res.Error = &msg
		} else {
			name := fmt.Sprintf("sticker_%02d_%s.png", index, p.Title)
			path := filepath.Join(in.OutputDir, name)
			if err := os.WriteFile(path, []byte("fake png "+p.Title), 0o644); err != nil {
				return err
			}
			res.Success = true
			res.ArtifactPath = &path
		}
		sink.RecordItem(in.TaskID, res)
	}
	return nil
}

// blockingRunner keeps its task in the running state until gate is closed.
type blockingRunner struct {
	gate chan struct{}
}

func (r blockingRunner) Run(ctx context.Context, in service.RunInput, sink service.ProgressSink) error {
	<-r.gate
	return nil
}

// setupApp creates a Fiber app identical to main.go but with the browser
// pipeline replaced by a stub runner and no Redis.
func setupApp(t *testing.T, runner service.JobRunner) *testApp {
	t.Helper()

	uploadDir := t.TempDir()
	outputDir := t.TempDir()

	presetPath := filepath.Join(t.TempDir(), "presets.json")
	if err := os.WriteFile(presetPath, []byte(testPresetLibrary), 0o644); err != nil {
		t.Fatalf("write preset library: %v", err)
	}

	validate := validator.New()

	if runner == nil {
		runner = &stubRunner{}
	}
	scheduler := service.NewScheduler(runner, nil, outputDir)
	presetService := service.NewPresetService(presetPath)
	exportService := service.NewExportService(outputDir)

	generateHandler := handler.NewGenerateHandler(scheduler, presetService, validate)
	uploadHandler := handler.NewUploadHandler(uploadDir)
	downloadHandler := handler.NewDownloadHandler(exportService)
	presetHandler := handler.NewPresetHandler(presetService)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(nil) // no Redis → pass-through

	app := fiber.New(fiber.Config{
		BodyLimit: 110 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis": false,
				"auth":  true,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/presets", presetHandler.List)
	api.Post("/upload", rateLimiter.UploadLimit(10000), uploadHandler.Images)

	generate := api.Group("/generate")
	generate.Post("/start", rateLimiter.GenerateLimit(10000), generateHandler.Start)
	generate.Get("/status/:taskId", generateHandler.Status)
	generate.Get("/results/:taskId", generateHandler.Results)

	download := api.Group("/", rateLimiter.DownloadLimit(10000))
	download.Get("/download/:taskId/:filename", downloadHandler.Artifact)
	download.Get("/download-all/:taskId", downloadHandler.Archive)

	api.Post("/reset/:taskId", generateHandler.Reset)

	return &testApp{app: app, uploadDir: uploadDir, outputDir: outputDir}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.SignToken("test-user-123", "test@example.com", testJWTSecret)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// writeReferenceImages drops a mother/anchor pair into the upload dir and
// returns their paths, bypassing the upload endpoint.
func writeReferenceImages(t *testing.T, ta *testApp) (string, string) {
	t.Helper()
	mother := filepath.Join(ta.uploadDir, "mother-test.png")
	anchor := filepath.Join(ta.uploadDir, "anchor-test.png")
	for _, p := range []string{mother, anchor} {
		if err := os.WriteFile(p, []byte("fake image"), 0o644); err != nil {
			t.Fatalf("write reference image: %v", err)
		}
	}
	return mother, anchor
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// startTask enqueues a generation task over HTTP and returns its id.
func startTask(t *testing.T, ta *testApp, body string) string {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/generate/start", body)
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	result := parseJSON(t, resp)
	taskID, _ := result["taskId"].(string)
	if taskID == "" {
		t.Fatal("no taskId in start response")
	}
	return taskID
}

// waitTerminal polls the status endpoint until the task leaves the
// pending/running states.
func waitTerminal(t *testing.T, ta *testApp, taskID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/generate/status/"+taskID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		result := parseJSON(t, resp)
		status, _ := result["status"].(string)
		if status == "completed" || status == "failed" {
			return result
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return nil
}

// waitRunning polls until the task has actually been picked up.
func waitRunning(t *testing.T, ta *testApp, taskID string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/generate/status/"+taskID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		if parseJSON(t, resp)["status"] == "running" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never started running", taskID)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
