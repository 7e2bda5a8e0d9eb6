package e2e

import (
	"net/http"
	"testing"
)

func TestRoot(t *testing.T) {
	ta := setupApp(t, nil)

	resp, err := doRequest(ta.app, http.MethodGet, "/", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["timestamp"] == nil {
		t.Error("expected 'timestamp' in response")
	}
}

func TestHealth(t *testing.T) {
	ta := setupApp(t, nil)

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", result["status"])
	}
	services, ok := result["services"].(map[string]interface{})
	if !ok {
		t.Fatal("expected 'services' object in response")
	}
	if services["auth"] != true {
		t.Error("expected auth enabled in test setup")
	}
}
