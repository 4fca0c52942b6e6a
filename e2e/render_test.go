package e2e

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func validRenderStartBody() string {
	return `{
		"templateId": "caption-basic",
		"props": {
			"title": "Launch recap",
			"backgroundColor": "#101010"
		},
		"quality": "draft"
	}`
}

func TestRenderStart_Success(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/start", validRenderStartBody())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["renderId"] == nil || result["renderId"] == "" {
		t.Error("expected 'renderId' in response")
	}
	if result["status"] != "pending" {
		t.Errorf("expected status 'pending', got %v", result["status"])
	}
}

func TestRenderStart_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/render/start", validRenderStartBody(), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestRenderStart_InvalidBody(t *testing.T) {
	ta := setupApp(t)

	// Missing required templateId
	body := `{"props": {"title": "no template"}}`

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/start", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRenderStart_UnknownTemplate(t *testing.T) {
	ta := setupApp(t)

	body := `{"templateId": "no-such-template"}`

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/start", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestRenderStatus_Success(t *testing.T) {
	ta := setupApp(t)

	// First, start a render to get a renderId
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/start", validRenderStartBody())
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	startResult := parseJSON(t, resp)
	renderID := startResult["renderId"].(string)

	// Now check status
	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/render/status/"+renderID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	statusResult := parseJSON(t, resp)
	if statusResult["renderId"] != renderID {
		t.Errorf("expected renderId %s, got %v", renderID, statusResult["renderId"])
	}
	if statusResult["templateId"] != "caption-basic" {
		t.Errorf("expected templateId 'caption-basic', got %v", statusResult["templateId"])
	}
	if statusResult["status"] == nil {
		t.Error("expected 'status' field in response")
	}
}

func TestRenderStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	fakeRenderID := uuid.New().String()
	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/render/status/"+fakeRenderID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected error code NOT_FOUND, got %v", errObj["code"])
	}
}

func TestRenderResult_NotCompleted(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/start", validRenderStartBody())
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	startResult := parseJSON(t, resp)
	renderID := startResult["renderId"].(string)

	// No worker runs in e2e, so the job is still pending
	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/render/result/"+renderID, "")
	if err != nil {
		t.Fatalf("result request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRenderCancel_Success(t *testing.T) {
	ta := setupApp(t)

	// Start a render
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/start", validRenderStartBody())
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	startResult := parseJSON(t, resp)
	renderID := startResult["renderId"].(string)

	// Cancel it
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/render/cancel/"+renderID, "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	cancelResult := parseJSON(t, resp)
	if cancelResult["status"] != "canceled" {
		t.Errorf("expected status 'canceled', got %v", cancelResult["status"])
	}

	// A second cancel fails because the job already left pending
	resp, err = doAuthRequest(t, ta.app, http.MethodPost, "/api/render/cancel/"+renderID, "")
	if err != nil {
		t.Fatalf("second cancel request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRenderBatch_Success(t *testing.T) {
	ta := setupApp(t)

	body := `{
		"tasks": [
			{"templateId": "caption-basic", "props": {"title": "Part one"}},
			{"templateId": "no-such-template"},
			{"templateId": "highlight-reel"}
		]
	}`

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/batch", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	results, ok := result["results"].([]interface{})
	if !ok || len(results) != 3 {
		t.Fatalf("expected 3 batch results, got %v", result["results"])
	}

	first := results[0].(map[string]interface{})
	if first["status"] != "success" {
		t.Errorf("expected first task to succeed, got %v (%v)", first["status"], first["error"])
	}
	second := results[1].(map[string]interface{})
	if second["status"] != "failed" {
		t.Errorf("expected second task to fail on unknown template, got %v", second["status"])
	}
	third := results[2].(map[string]interface{})
	if third["status"] != "success" {
		t.Errorf("expected third task to succeed, got %v (%v)", third["status"], third["error"])
	}
}

func TestRenderBatch_Empty(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/render/batch", `{"tasks": []}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestTemplates_List(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/templates", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
}
