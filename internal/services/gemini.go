package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"justibot/internal/config"
	"justibot/internal/domain"
)

const generateMethod = "generateContent"

// Some accounts see 404s on hardcoded model names depending on region and
// credential entitlements, so the generator never pins one: it lists the
// models enabled for the key on every call and lets the selector pick.
var legalSystemPrompt = `Eres JustiBot, un abogado experto colombiano potenciado con IA.
Tu trabajo es redactar documentos legales formales basándote en descripciones informales de usuarios.

IMPORTANTE: Detecta el idioma de la 'User Story'.
- Si la User Story está en ESPAÑOL, el OUTPUT del documento legal DEBE estar en ESPAÑOL.
- Si la User Story está en ENGLISH, el OUTPUT del documento legal DEBE estar en ENGLISH.

Tipos de documentos a generar:
- Si el request es 'health': redacta una 'Acción de Tutela' (protege derechos fundamentales de salud)
- Si el request es 'fine': redacta un 'Derecho de Petición' (solicitud formal a autoridad)

Reglas de generación:
- Genera SOLO el cuerpo de los argumentos legales
- NO incluyas placeholders para nombre/ID (eso se agrega después en el PDF)
- Usa terminología legal formal apropiada para el idioma elegido
- Cita artículos de leyes colombianas cuando sea posible
- Mantén un tono empático pero profesional`

// ModelInfo describes one entry of the provider's model catalog.
type ModelInfo struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

func (m ModelInfo) SupportsGeneration() bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == generateMethod {
			return true
		}
	}
	return false
}

// ModelSelector picks the active model for a generation call from the live
// catalog.
type ModelSelector interface {
	Select(catalog []ModelInfo) (string, error)
}

// FirstEligible selects the first catalog entry capable of text generation.
// The provider lists its recommended default first.
type FirstEligible struct{}

func (FirstEligible) Select(catalog []ModelInfo) (string, error) {
	for _, m := range catalog {
		if m.SupportsGeneration() {
			return m.Name, nil
		}
	}
	return "", errors.New("no generative models available for this api key")
}

// GeminiService produces legal prose through the Google generative-language
// API.
type GeminiService struct {
	apiKey     string
	baseURL    string
	reqTimeout time.Duration
	selector   ModelSelector
	httpClient *http.Client
	errorLog   string
}

func NewGeminiService(cfg config.Config) *GeminiService {
	return &GeminiService{
		apiKey:     cfg.GeminiAPIKey,
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		reqTimeout: cfg.AITimeout,
		selector:   FirstEligible{},
		httpClient: &http.Client{
			Timeout: cfg.AITimeout,
		},
		errorLog: filepath.Join(cfg.DataDir, "ai_errors.log"),
	}
}

// WithSelector replaces the model-selection policy. Call sites keep the
// default first-eligible rule.
func (s *GeminiService) WithSelector(selector ModelSelector) *GeminiService {
	s.selector = selector
	return s
}

// Generate turns a free-text description into formal legal prose framed by the
// case type. Model discovery runs on every call; catalog entries change per
// credential and over time without notice, so nothing is cached.
func (s *GeminiService) Generate(ctx context.Context, caseType domain.CaseType, description string) (string, error) {
	if err := s.ensureAPIKey(); err != nil {
		s.logFailure("", err)
		return "", err
	}

	catalog, err := s.ListModels(ctx)
	if err != nil {
		s.logFailure("", err)
		return "", err
	}

	model, err := s.selector.Select(catalog)
	if err != nil {
		s.logFailure("", err)
		return "", err
	}
	log.Printf("gemini: selected model %s", model)

	prompt := fmt.Sprintf("System Instruction: %s\n\nCase Type: %s\nUser Story: %s", legalSystemPrompt, caseType, description)

	text, err := s.generateContent(ctx, model, prompt)
	if err != nil {
		s.logFailure(model, err)
		return "", err
	}

	return text, nil
}

// ListModels queries the models enabled for the active credential.
func (s *GeminiService) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if err := s.ensureAPIKey(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/models"), nil)
	if err != nil {
		return nil, fmt.Errorf("create list models request: %w", err)
	}

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, s.decodeAPIError(resp)
	}

	var payload struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}

	return payload.Models, nil
}

// Ping verifies the credential and that at least one eligible model exists.
// Replaces ad hoc credential probing in operational tooling.
func (s *GeminiService) Ping(ctx context.Context) error {
	catalog, err := s.ListModels(ctx)
	if err != nil {
		return err
	}

	if _, err := s.selector.Select(catalog); err != nil {
		return err
	}
	return nil
}

func (s *GeminiService) generateContent(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode generate payload: %w", err)
	}

	url := s.endpoint(fmt.Sprintf("/%s:%s", strings.TrimPrefix(model, "/"), generateMethod))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", s.decodeAPIError(resp)
	}

	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no legal text returned")
	}

	text := strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", errors.New("empty legal text returned")
	}
	return text, nil
}

func (s *GeminiService) endpoint(path string) string {
	return s.baseURL + path
}

// do sends the request with the credential attached. The client's Timeout
// bounds the whole exchange through the body read, so no per-request deadline
// context is layered on top; cancelling one before the body is consumed can
// abort the read mid-stream.
func (s *GeminiService) do(req *http.Request) (*http.Response, error) {
	q := req.URL.Query()
	q.Set("key", s.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	return resp, nil
}

func (s *GeminiService) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
			Code    int    `json:"code"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewBuffer(body))

	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("gemini api error: status %d %s message %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
	}

	return fmt.Errorf("gemini api error: status %d body %s", resp.StatusCode, string(body))
}

func (s *GeminiService) ensureAPIKey() error {
	if strings.TrimSpace(s.apiKey) == "" {
		return errors.New("gemini api key is not configured")
	}
	return nil
}

// logFailure records a generation failure in the durable diagnostic log so
// operators can follow up; failures degrade to placeholder text upstream and
// would otherwise leave no trace.
func (s *GeminiService) logFailure(model string, cause error) {
	log.Printf("gemini: generation failed (model=%q): %v", model, cause)

	if s.errorLog == "" {
		return
	}
	f, err := os.OpenFile(s.errorLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("gemini: open error log: %v", err)
		return
	}
	defer f.Close()

	if model == "" {
		model = "(none selected)"
	}
	fmt.Fprintf(f, "%s model=%s error=%v\n", time.Now().UTC().Format(time.RFC3339), model, cause)
}
