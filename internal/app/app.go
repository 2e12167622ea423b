package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/repository"
	"trafficwatch/internal/repository/sqlite"
	"trafficwatch/internal/routes"
	"trafficwatch/internal/services"
	challansvc "trafficwatch/internal/services/challan"
	"trafficwatch/internal/services/detector"
	"trafficwatch/internal/services/plate"
	"trafficwatch/internal/services/storage"
	"trafficwatch/internal/services/video"
	"trafficwatch/internal/services/websocket"
)

type App struct {
	config          *config.Config
	logger          *logger.Logger
	db              *sqlite.DB
	caseRepo        repository.CaseRepository
	violationRepo   repository.ViolationRepository
	detectionRepo   repository.DetectionRepository
	challanRepo     repository.ChallanRepository
	evidenceService *storage.EvidenceService
	hubService      *websocket.HubService
	manager         *services.Manager
	challanService  *challansvc.Service
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	caseRepo := sqlite.NewCaseRepository(db)
	violationRepo := sqlite.NewViolationRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)
	challanRepo := sqlite.NewChallanRepository(db)

	detectors := make([]services.Detector, 0, cfg.ProcessingWorkers)
	ready := true
	for i := 0; i < cfg.ProcessingWorkers; i++ {
		ds := detector.NewService(cfg, log) // each worker loads its own network
		detectors = append(detectors, ds)
		ready = ready && ds.Ready()
	}

	evidence := storage.NewEvidenceService(cfg.EvidenceDirectory, cfg.EvidenceBufferLimit, log)
	hub := websocket.NewHubService(log)
	plateReader := plate.NewReader(cfg)
	videoService := video.NewService(cfg.VideoFrameInterval, log)

	manager := services.NewManager(detectors, ready, caseRepo, violationRepo,
		detectionRepo, evidence, hub, plateReader, videoService, log)

	var mailer challansvc.Mailer
	if smtp := challansvc.NewSMTPMailer(cfg); smtp != nil {
		mailer = smtp
	} else {
		log.Warning("SMTP not configured - challan delivery disabled")
	}
	challanService := challansvc.NewService(mailer, caseRepo, challanRepo)

	return &App{
		config:          cfg,
		logger:          log,
		db:              db,
		caseRepo:        caseRepo,
		violationRepo:   violationRepo,
		detectionRepo:   detectionRepo,
		challanRepo:     challanRepo,
		evidenceService: evidence,
		hubService:      hub,
		manager:         manager,
		challanService:  challanService,
	}, nil
}

func (a *App) Run() error {
	// Start background services
	go a.evidenceService.Run(a.config.EvidenceFlushInterval)
	go a.hubService.Run()

	// Setup routes
	router := routes.SetupRoutes(a.manager, a.config, a.logger,
		a.caseRepo, a.violationRepo, a.detectionRepo, a.challanRepo, a.challanService)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	a.logger.Info("Traffic Violation Detection Server")
	a.logger.Info("URL: http://localhost:%d", a.config.Port)
	a.logger.Info("Uploads: %s", a.config.UploadDirectory)
	a.logger.Info("Evidence: %s", a.config.EvidenceDirectory)
	a.logger.Info("Model: %s", a.config.ModelPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	var serveErr error
	select {
	case serveErr = <-errCh:
	case sig := <-stop:
		a.logger.Info("Received %s, shutting down", sig)

		// Stop accepting requests first; an upload arriving mid-shutdown
		// must not reach a stopped manager or a closed database.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("Error shutting down server: %v", err)
		}
	}

	a.manager.Stop()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}

	return serveErr
}
