package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"justibot/internal/cases"
	"justibot/internal/config"
	"justibot/internal/domain"
	"justibot/internal/services"
	"justibot/internal/storage"
)

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(ctx context.Context, caseType domain.CaseType, description string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func setupTestServer(t *testing.T, gen *stubGenerator) *gin.Engine {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Config{
		Port:         "8000",
		BaseURL:      "http://localhost:8000",
		ShareSecret:  "secret",
		ShareTTL:     time.Minute,
		MaxBodyBytes: 256 * 1024,
		DataDir:      tmpDir,
	}

	fm, err := storage.NewFileManager(cfg.DataDir)
	if err != nil {
		t.Fatalf("file manager: %v", err)
	}

	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	pdf := services.NewPDFService(fm)
	share := services.NewShareService(cfg)
	orchestrator := cases.NewOrchestrator(store, gen, pdf)

	engine := gin.New()
	engine.Use(gin.Recovery())
	api := NewAPI(cfg, orchestrator, fm, nil, share)
	registerRoutes(engine, api)

	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := setupTestServer(t, &stubGenerator{text: "texto"})

	rec := doJSON(t, engine, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("expected healthy status, body=%v", body)
	}
}

func TestCaseLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := setupTestServer(t, &stubGenerator{text: "De conformidad con el artículo 49 de la Constitución Política..."})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/cases",
		`{"case_type":"health","description":"Denied diabetes medication"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var created domain.LegalCase
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created case: %v", err)
	}
	if created.Status != domain.CaseStatusDraft {
		t.Fatalf("expected draft, got %s", created.Status)
	}
	if created.GeneratedText == "" {
		t.Fatalf("expected generated text")
	}

	finalizePath := fmt.Sprintf("/api/v1/cases/%d/finalize", created.ID)
	rec = doJSON(t, engine, http.MethodPut, finalizePath,
		`{"citizen_name":"Juan Pérez","citizen_id":"123","city":"Bogotá"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var finalized domain.LegalCase
	if err := json.Unmarshal(rec.Body.Bytes(), &finalized); err != nil {
		t.Fatalf("decode finalized case: %v", err)
	}
	if finalized.Status != domain.CaseStatusCompleted {
		t.Fatalf("expected completed, got %s", finalized.Status)
	}
	if finalized.PDFPath != fmt.Sprintf("case_%d.pdf", created.ID) {
		t.Fatalf("unexpected document name: %q", finalized.PDFPath)
	}
	if finalized.Email != "" {
		t.Fatalf("email was not supplied, got %q", finalized.Email)
	}

	rec = doJSON(t, engine, http.MethodPut, finalizePath,
		`{"citizen_name":"Otra Persona","citizen_id":"999","city":"Cali"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat finalize, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/api/v1/cases/%d", created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", rec.Code)
	}
	var fetched domain.LegalCase
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode fetched case: %v", err)
	}
	if fetched.CitizenName != "Juan Pérez" || fetched.PDFPath != finalized.PDFPath {
		t.Fatalf("conflicting finalize must not change case: %+v", fetched)
	}

	rec = doJSON(t, engine, http.MethodGet, "/static/"+finalized.PDFPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected rendered document under /static, got %d", rec.Code)
	}
}

func TestCreateCaseWithFailingGenerator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := setupTestServer(t, &stubGenerator{err: errors.New("model unavailable")})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/cases",
		`{"case_type":"fine","description":"Fotomulta sin notificación"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generation failure must not fail creation, got %d", rec.Code)
	}

	var created domain.LegalCase
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created case: %v", err)
	}
	if created.GeneratedText != cases.GenerationFallbackText {
		t.Fatalf("expected placeholder text, got %q", created.GeneratedText)
	}
}

func TestCreateCaseRejectsInvalidPayloads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := setupTestServer(t, &stubGenerator{text: "texto"})

	for _, body := range []string{
		`{"description":"sin tipo"}`,
		`{"case_type":"divorce","description":"tipo inválido"}`,
		`{"case_type":"health"}`,
	} {
		rec := doJSON(t, engine, http.MethodPost, "/api/v1/cases", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestFinalizeUnknownCase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := setupTestServer(t, &stubGenerator{text: "texto"})

	rec := doJSON(t, engine, http.MethodPut, "/api/v1/cases/42/finalize",
		`{"citizen_name":"Juan Pérez","citizen_id":"123","city":"Bogotá"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/cases/42", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on get, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/cases/not-a-number", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestShareLinkValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := setupTestServer(t, &stubGenerator{text: "texto legal"})

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/cases",
		`{"case_type":"health","description":"Me negaron una cirugía"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	var created domain.LegalCase
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	sharePath := fmt.Sprintf("/api/v1/cases/%d/share", created.ID)

	// Draft cases have no document to share yet.
	rec = doJSON(t, engine, http.MethodPost, sharePath, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 sharing a draft case, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPut, fmt.Sprintf("/api/v1/cases/%d/finalize", created.ID),
		`{"citizen_name":"Juan Pérez","citizen_id":"123","city":"Bogotá"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodPost, sharePath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("share: %d body=%s", rec.Code, rec.Body.String())
	}

	var shared struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &shared); err != nil {
		t.Fatalf("decode share response: %v", err)
	}
	if shared.URL == "" {
		t.Fatalf("expected url in response")
	}

	signedPath := strings.TrimPrefix(shared.URL, "http://localhost:8000")
	rec = doJSON(t, engine, http.MethodGet, signedPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for signed link, got %d", rec.Code)
	}

	docName := fmt.Sprintf("case_%d.pdf", created.ID)
	rec = doJSON(t, engine, http.MethodGet, "/files/"+docName+"?exp=9999999999&sig=invalid", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for invalid signature, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/files/"+docName+"?exp=1&sig=whatever", "")
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410 for expired link, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/files/"+docName, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
}

func TestAIHealthWithoutGenerator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := setupTestServer(t, &stubGenerator{text: "texto"})

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/ai/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without configured generator, got %d", rec.Code)
	}
}
