package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"justibot/internal/cases"
	"justibot/internal/config"
	"justibot/internal/domain"
	"justibot/internal/services"
	"justibot/internal/storage"
)

type API struct {
	cfg          config.Config
	orchestrator *cases.Orchestrator
	files        *storage.FileManager
	gemini       *services.GeminiService
	share        *services.ShareService
}

func NewAPI(cfg config.Config, orchestrator *cases.Orchestrator, files *storage.FileManager, gemini *services.GeminiService, share *services.ShareService) *API {
	return &API{cfg: cfg, orchestrator: orchestrator, files: files, gemini: gemini, share: share}
}

func registerRoutes(r *gin.Engine, api *API) {
	r.GET("/", api.handleRoot)
	r.GET("/health", api.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ai/health", api.handleAIHealth)

		v1.POST("/cases", api.handleCreateCase)
		v1.GET("/cases/:id", api.handleGetCase)
		v1.PUT("/cases/:id/finalize", api.handleFinalizeCase)
		v1.POST("/cases/:id/share", api.handleShareCase)
	}

	r.Static("/static", api.files.StaticDir())
	r.GET("/files/:name", api.handleServeDocument)
}

func (a *API) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "JustiBot API is running"})
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (a *API) handleAIHealth(c *gin.Context) {
	if a.gemini == nil {
		respondMessage(c, http.StatusServiceUnavailable, "generator not configured")
		return
	}
	if err := a.gemini.Ping(c.Request.Context()); err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleCreateCase(c *gin.Context) {
	var payload struct {
		CaseType    domain.CaseType `json:"case_type" binding:"required"`
		Description string          `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	created, err := a.orchestrator.CreateCase(c.Request.Context(), cases.CreateParams{
		CaseType:    payload.CaseType,
		Description: payload.Description,
	})
	if err != nil {
		respondCaseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (a *API) handleGetCase(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	found, err := a.orchestrator.GetCase(c.Request.Context(), id)
	if err != nil {
		respondCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (a *API) handleFinalizeCase(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		CitizenName string  `json:"citizen_name" binding:"required"`
		CitizenID   string  `json:"citizen_id" binding:"required"`
		City        string  `json:"city" binding:"required"`
		Email       *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	finalized, err := a.orchestrator.FinalizeCase(c.Request.Context(), id, cases.FinalizeParams{
		CitizenName: payload.CitizenName,
		CitizenID:   payload.CitizenID,
		City:        payload.City,
		Email:       payload.Email,
	})
	if err != nil {
		respondCaseError(c, err)
		return
	}

	c.JSON(http.StatusOK, finalized)
}

func (a *API) handleShareCase(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	found, err := a.orchestrator.GetCase(c.Request.Context(), id)
	if err != nil {
		respondCaseError(c, err)
		return
	}

	if !found.Completed() || found.PDFPath == "" {
		respondMessage(c, http.StatusBadRequest, "no document available for this case")
		return
	}

	url, expiresAt, err := a.share.Generate(found.PDFPath)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "expiresAt": expiresAt.UTC()})
}

func (a *API) handleServeDocument(c *gin.Context) {
	name := c.Param("name")
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	if expires < time.Now().Unix() {
		respondMessage(c, http.StatusGone, "link expired")
		return
	}

	if !a.share.Validate(c.Request.URL.Path, expires, signature) {
		respondMessage(c, http.StatusForbidden, "invalid signature")
		return
	}

	path, ok := a.files.ResolveDocument(name)
	if !ok {
		respondMessage(c, http.StatusNotFound, "document not found")
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(path, name)
}

func caseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid case id")
		return 0, false
	}
	return uint(id), true
}

func respondCaseError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrCaseNotFound):
		respondMessage(c, http.StatusNotFound, "Case not found")
	case errors.Is(err, domain.ErrAlreadyFinalized):
		respondMessage(c, http.StatusConflict, "Case already finalized")
	case errors.Is(err, domain.ErrRenderFailed):
		respondError(c, http.StatusBadGateway, err)
	default:
		respondError(c, http.StatusInternalServerError, err)
	}
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
