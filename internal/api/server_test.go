package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"qapipe/internal/config"
	"qapipe/internal/registry"
	"qapipe/internal/storage"
	"qapipe/pkg/logx"
)

func newTestServer(t *testing.T, token string, withModel bool) *Server {
	t.Helper()

	store, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "corpus.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	pairs := []storage.QAPair{
		{Question: "What is Level 2 charging?", Answer: "AC charging up to 19 kW.", Context: "Level 2 chargers use AC."},
		{Question: "How fast is DC charging?", Answer: "Between 50 and 350 kW.", Context: "DC fast chargers bypass the onboard converter."},
	}
	if _, err := store.StoreTrainingPairs(context.Background(), pairs); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.New(t.TempDir(), logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if withModel {
		if _, err := reg.Register(context.Background(), "ev_qa", "v1", "/models/v1", nil); err != nil {
			t.Fatal(err)
		}
	}

	srv := New(config.APIConfig{Token: token}, reg, store, logx.Nop())
	if withModel {
		if err := srv.handler.loadLatest(); err != nil {
			t.Fatalf("loadLatest: %v", err)
		}
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestRootAndHealthNeedNoAuth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "secret", true)

	if rec := doJSON(t, srv, http.MethodGet, "/", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}
	var health struct {
		Status      string `json:"status"`
		ModelLoaded bool   `json:"model_loaded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || !health.ModelLoaded {
		t.Fatalf("health = %+v", health)
	}
}

func TestHealthDegradedWithoutModel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "", false)
	rec := doJSON(t, srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAskRequiresToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "secret", true)
	body := `{"question": "What is Level 2 charging?"}`

	if rec := doJSON(t, srv, http.MethodPost, "/ask", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d, want 401", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/ask", "wrong", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: %d, want 401", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/ask", "secret", body); rec.Code != http.StatusOK {
		t.Fatalf("valid token: %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
}

func TestAskAnswersFromBestMatch(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "", true)
	rec := doJSON(t, srv, http.MethodPost, "/ask", "", `{"question": "How fast is DC charging?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /ask = %d (%s)", rec.Code, rec.Body.String())
	}

	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Between 50 and 350 kW." {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if resp.Confidence <= 0 {
		t.Fatalf("confidence = %v", resp.Confidence)
	}
}

func TestAskWithoutModelReturns503(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "", false)
	rec := doJSON(t, srv, http.MethodPost, "/ask", "", `{"question": "anything"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("POST /ask = %d, want 503", rec.Code)
	}
}

func TestAskRejectsMissingQuestion(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "", true)
	rec := doJSON(t, srv, http.MethodPost, "/ask", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /ask = %d, want 400", rec.Code)
	}
}

func TestModelsListingAndLoad(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "", true)

	rec := doJSON(t, srv, http.MethodGet, "/models", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /models = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ev_qa") {
		t.Fatalf("models listing missing entry: %s", rec.Body.String())
	}

	if rec := doJSON(t, srv, http.MethodPost, "/models/ev_qa/load", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("load = %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, srv, http.MethodPost, "/models/unknown/load", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("load unknown = %d, want 404", rec.Code)
	}
}
