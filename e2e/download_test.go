package e2e

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

// completedTask runs a full generation over the stub runner and returns the
// task id and its artifact filenames.
func completedTask(t *testing.T, ta *testApp) (string, []string) {
	t.Helper()
	mother, anchor := writeReferenceImages(t, ta)
	taskID := startTask(t, ta, startBody(mother, anchor))
	status := waitTerminal(t, ta, taskID)
	if status["status"] != "completed" {
		t.Fatalf("setup task did not complete: %v", status["status"])
	}

	var names []string
	for _, r := range status["results"].([]interface{}) {
		item := r.(map[string]interface{})
		if path, ok := item["path"].(string); ok && path != "" {
			parts := strings.Split(path, "/")
			names = append(names, parts[len(parts)-1])
		}
	}
	return taskID, names
}

func TestDownload_SingleArtifact(t *testing.T) {
	ta := setupApp(t, nil)
	taskID, names := completedTask(t, ta)
	if len(names) == 0 {
		t.Fatal("setup produced no artifacts")
	}

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/download/"+taskID+"/"+names[0], "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	body := readBody(t, resp)
	if !strings.HasPrefix(body, "fake png") {
		t.Errorf("unexpected artifact body %q", body)
	}
}

func TestDownload_UnknownArtifact(t *testing.T) {
	ta := setupApp(t, nil)
	taskID, _ := completedTask(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/download/"+taskID+"/nope.png", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestDownload_TraversalRejected(t *testing.T) {
	ta := setupApp(t, nil)
	taskID, _ := completedTask(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/download/"+taskID+"/..%2F..%2Fetc%2Fpasswd", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestDownloadAll_Archive(t *testing.T) {
	ta := setupApp(t, nil)
	taskID, names := completedTask(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/download-all/"+taskID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, taskID) {
		t.Errorf("Content-Disposition %q", cd)
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != len(names) {
		t.Errorf("archive has %d entries, expected %d", len(zr.File), len(names))
	}
}

func TestDownloadAll_UnknownTask(t *testing.T) {
	ta := setupApp(t, nil)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/download-all/task_nope", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}
