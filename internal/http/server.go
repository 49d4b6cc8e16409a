package http

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"justibot/internal/cases"
	"justibot/internal/config"
	"justibot/internal/services"
	"justibot/internal/storage"
)

type Server struct {
	engine *gin.Engine
	cfg    config.Config
}

func NewServer(cfg config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	fm, err := storage.NewFileManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init file manager: %w", err)
	}

	store, err := newCaseStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init case store: %w", err)
	}

	geminiSvc := services.NewGeminiService(cfg)
	pdfSvc := services.NewPDFService(fm)
	shareSvc := services.NewShareService(cfg)

	orchestrator := cases.NewOrchestrator(store, geminiSvc, pdfSvc)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(RequestLogger())
	engine.Use(MaxBodySize(cfg.MaxBodyBytes))
	engine.Use(CORS())

	api := NewAPI(cfg, orchestrator, fm, geminiSvc, shareSvc)
	registerRoutes(engine, api)

	return &Server{engine: engine, cfg: cfg}, nil
}

func newCaseStore(cfg config.Config) (storage.CaseStore, error) {
	if cfg.DatabaseURL != "" {
		log.Printf("using postgres case store")
		return storage.NewGormStore(cfg.DatabaseURL)
	}

	log.Printf("DATABASE_URL not set, using file case store in %s", cfg.DataDir)
	return storage.NewFileStore(cfg.DataDir)
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	return s.engine.Run(addr)
}
