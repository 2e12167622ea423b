package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"trafficwatch/internal/config"
	"trafficwatch/internal/handlers"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/middleware"
	"trafficwatch/internal/repository"
	"trafficwatch/internal/services"
	challansvc "trafficwatch/internal/services/challan"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", path+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(
	manager *services.Manager,
	cfg *config.Config,
	logger *logger.Logger,
	cases repository.CaseRepository,
	violations repository.ViolationRepository,
	detections repository.DetectionRepository,
	challans repository.ChallanRepository,
	challanService *challansvc.Service,
) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// API endpoints
	mux.HandleFunc("/api/upload", handlers.UploadHandler(manager, cases, cfg, logger))
	mux.HandleFunc("/api/cases", handlers.GetCasesHandler(cases, violations, logger))
	mux.HandleFunc("/api/cases/detail", handlers.GetCaseDetailHandler(cases, violations, detections, challans, logger))
	mux.HandleFunc("/api/cases/delete", handlers.DeleteCaseHandler(manager, cases, logger))
	mux.HandleFunc("/api/cases/clear", handlers.ClearCasesHandler(manager, cases, logger))
	mux.HandleFunc("/api/cases/filters", handlers.GetFiltersHandler(cases, violations, logger))
	mux.HandleFunc("/api/stats", handlers.GetStatsHandler(cases, logger))
	mux.HandleFunc("/api/report/csv", handlers.CSVReportHandler(cases, violations, logger))
	mux.HandleFunc("/api/challan/send", handlers.SendChallanHandler(challanService, cases, violations, logger))
	mux.HandleFunc("/api/evidence", handlers.ViewEvidenceHandler(manager))
	mux.HandleFunc("/api/live", handlers.LiveHandler(manager, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowInfoLogsHandler(cfg))
	mux.HandleFunc("/logs/warning", handlers.ShowWarningLogsHandler(cfg))
	mux.HandleFunc("/logs/error", handlers.ShowErrorLogsHandler(cfg))

	mux.HandleFunc("/logs/info/clear", handlers.ClearInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning/clear", handlers.ClearWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error/clear", handlers.ClearErrorLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)

	// Automatic HTML handler mapping for example: /reports -> /static/reports.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
