package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/dto"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"
	"trafficwatch/internal/repository/sqlite"
	"trafficwatch/internal/services"
	"trafficwatch/internal/services/detector"
	"trafficwatch/internal/services/storage"
	"trafficwatch/internal/services/video"
	"trafficwatch/internal/services/websocket"
)

// ========================================
// Test Setup Helpers
// ========================================

// stubDetector returns canned detections without touching any model.
type stubDetector struct {
	dets []detector.Detection
}

func (s *stubDetector) DetectObjects(imageBytes []byte) ([]detector.Detection, error) {
	return s.dets, nil
}

func (s *stubDetector) AnnotateImage(dets []detector.Detection, img []byte) ([]byte, error) {
	return img, nil
}

// stubPlateReader satisfies plate.Reader without OCR.
type stubPlateReader struct{}

func (stubPlateReader) ReadPlate(ctx context.Context, roi []byte) (string, float64, error) {
	return "KA01AB1234", 0.9, nil
}

type testEnv struct {
	cfg        *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	cases      *sqlite.CaseRepository
	violations *sqlite.ViolationRepository
	detections *sqlite.DetectionRepository
	challans   *sqlite.ChallanRepository
	manager    *services.Manager
}

// setupEnv wires a full processing stack over a temp directory, with a stub
// detector producing a helmetless rider.
func setupEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "handlers_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	cfg := &config.Config{
		Password:          "secret",
		UploadDirectory:   filepath.Join(tempDir, "uploads"),
		EvidenceDirectory: filepath.Join(tempDir, "evidence"),
		LogDirectory:      filepath.Join(tempDir, "logs"),
		MaxUploadSizeMB:   1,
		DefaultStation:    "Traffic Point 1",
	}

	log := logger.NewLogger(cfg)

	db, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	env := &testEnv{
		cfg:        cfg,
		logger:     log,
		db:         db,
		cases:      sqlite.NewCaseRepository(db),
		violations: sqlite.NewViolationRepository(db),
		detections: sqlite.NewDetectionRepository(db),
		challans:   sqlite.NewChallanRepository(db),
	}

	evidence := storage.NewEvidenceService(cfg.EvidenceDirectory, 16, log)
	hub := websocket.NewHubService(log)
	go hub.Run()

	// A rider with a plate but no helmet: every processed upload ends up with
	// one No Helmet violation.
	stub := &stubDetector{dets: []detector.Detection{
		{Label: detector.LabelRider, Confidence: 0.92, X: 100, Y: 100, Width: 200, Height: 400},
		{Label: detector.LabelPlate, Confidence: 0.81, X: 170, Y: 420, Width: 60, Height: 30},
	}}

	env.manager = services.NewManager(
		[]services.Detector{stub}, true,
		env.cases, env.violations, env.detections,
		evidence, hub, stubPlateReader{}, video.NewService(15, log), log,
	)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return env, cleanup
}

func multipartUpload(t *testing.T, filename, location string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if location != "" {
		writer.WriteField("location", location)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(content)
	writer.Close()

	return &body, writer.FormDataContentType()
}

func insertProcessedCase(t *testing.T, env *testEnv, number string, fine int) int64 {
	t.Helper()

	id, err := env.cases.Insert(&models.Case{
		CaseNumber:  number,
		Filename:    number + ".jpg",
		FilePath:    filepath.Join(env.cfg.UploadDirectory, number+".jpg"),
		FileSize:    1024,
		MediaType:   models.MediaImage,
		Location:    "MG Road",
		VehicleType: "Motorcycle",
		PlateNumber: "KA01AB1234",
		CapturedAt:  time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
		Status:      models.StatusProcessed,
		TotalFine:   fine,
	})
	if err != nil {
		t.Fatalf("Failed to insert case: %v", err)
	}
	return id
}

// ========================================
// Upload Handler Tests
// ========================================

func TestUploadHandler_ImageProcessedEndToEnd(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	body, contentType := multipartUpload(t, "scene.jpg", "MG Road", []byte("fake image data"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.CaseNumber, "TVC-") {
		t.Errorf("Expected TVC case number, got %s", resp.CaseNumber)
	}
	if !resp.Queued {
		t.Error("Expected case to be queued")
	}
	if resp.MediaType != models.MediaImage {
		t.Errorf("Expected image media type, got %s", resp.MediaType)
	}

	// The upload is stored under its case number.
	stored := filepath.Join(env.cfg.UploadDirectory, resp.CaseNumber+".jpg")
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("Upload not stored at %s: %v", stored, err)
	}

	// Drain the pipeline, then the case must be fully processed.
	env.manager.Stop()

	c, err := env.cases.GetByID(resp.CaseID)
	if err != nil {
		t.Fatalf("Failed to reload case: %v", err)
	}
	if c.Status != models.StatusProcessed {
		t.Errorf("Expected status Processed, got %s", c.Status)
	}
	if c.TotalFine != 500 {
		t.Errorf("Expected fine 500 for No Helmet, got %d", c.TotalFine)
	}
	if c.EvidenceFile != resp.CaseNumber+".jpg" {
		t.Errorf("Expected evidence file, got %q", c.EvidenceFile)
	}

	vs, _ := env.violations.GetByCaseID(resp.CaseID)
	if len(vs) != 1 || vs[0].Code != models.CodeNoHelmet {
		t.Errorf("Expected one No Helmet violation, got %+v", vs)
	}

	ds, _ := env.detections.GetByCaseID(resp.CaseID)
	if len(ds) != 2 {
		t.Errorf("Expected 2 stored detections, got %d", len(ds))
	}
}

func TestUploadHandler_UnsupportedType(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	body, contentType := multipartUpload(t, "notes.txt", "", []byte("not media"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for .txt upload, got %d", rec.Code)
	}
}

func TestUploadHandler_MissingFile(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("location", "MG Road")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing file, got %d", rec.Code)
	}
}

func TestUploadHandler_TooLarge(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	// Config allows 1MB, send 2MB.
	body, contentType := multipartUpload(t, "big.jpg", "", bytes.Repeat([]byte("x"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for oversized upload, got %d", rec.Code)
	}
}

func TestUploadHandler_MethodNotAllowed(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestUploadHandler_DefaultLocation(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	body, contentType := multipartUpload(t, "scene.png", "", []byte("fake image data"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	var resp dto.UploadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	c, _ := env.cases.GetByID(resp.CaseID)
	if c.Location != env.cfg.DefaultStation {
		t.Errorf("Expected default station %q, got %q", env.cfg.DefaultStation, c.Location)
	}
}

func TestUploadHandler_ReprocessingDoesNotDuplicateRows(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	body, contentType := multipartUpload(t, "scene.jpg", "MG Road", []byte("fake image data"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	var resp dto.UploadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	env.manager.Stop()

	// Run the case through a second pipeline, as after a restart with the
	// case re-queued. Earlier rows must be replaced, not duplicated.
	stub := &stubDetector{dets: []detector.Detection{
		{Label: detector.LabelRider, Confidence: 0.92, X: 100, Y: 100, Width: 200, Height: 400},
		{Label: detector.LabelPlate, Confidence: 0.81, X: 170, Y: 420, Width: 60, Height: 30},
	}}
	evidence := storage.NewEvidenceService(env.cfg.EvidenceDirectory, 16, env.logger)
	hub := websocket.NewHubService(env.logger)
	go hub.Run()

	second := services.NewManager(
		[]services.Detector{stub}, true,
		env.cases, env.violations, env.detections,
		evidence, hub, stubPlateReader{}, video.NewService(15, env.logger), env.logger,
	)
	if !second.Enqueue(resp.CaseID) {
		t.Fatal("Expected re-enqueue to succeed")
	}
	second.Stop()

	ds, _ := env.detections.GetByCaseID(resp.CaseID)
	if len(ds) != 2 {
		t.Errorf("Expected 2 detections after reprocessing, got %d", len(ds))
	}
	vs, _ := env.violations.GetByCaseID(resp.CaseID)
	if len(vs) != 1 {
		t.Errorf("Expected 1 violation after reprocessing, got %d", len(vs))
	}
}

func TestUploadHandler_NumberingAfterCaseDeletion(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := UploadHandler(env.manager, env.cases, env.cfg, env.logger)

	upload := func(name string) dto.UploadResponse {
		t.Helper()
		body, contentType := multipartUpload(t, name, "MG Road", []byte("fake image data"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201 for %s, got %d: %s", name, rec.Code, rec.Body.String())
		}
		var resp dto.UploadResponse
		json.Unmarshal(rec.Body.Bytes(), &resp)
		return resp
	}

	first := upload("a.jpg")
	second := upload("b.jpg")

	// Dropping the first case must not make its number come back; the next
	// upload continues past the highest number ever issued.
	if err := env.cases.Delete(first.CaseID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	third := upload("c.jpg")
	if third.CaseNumber == first.CaseNumber || third.CaseNumber == second.CaseNumber {
		t.Errorf("Case number %s reissued after deletion", third.CaseNumber)
	}
	if !strings.HasSuffix(third.CaseNumber, "-000003") {
		t.Errorf("Expected third case to take sequence 3, got %s", third.CaseNumber)
	}
}

// ========================================
// Case List / Detail Handler Tests
// ========================================

func TestGetCasesHandler(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	id := insertProcessedCase(t, env, "TVC-20260827-000001", 500)
	insertProcessedCase(t, env, "TVC-20260827-000002", 800)
	env.violations.InsertBatch([]models.Violation{
		{CaseID: id, Code: models.CodeNoHelmet, Description: "No Helmet", FineAmount: 500, Confidence: 0.9},
	})

	handler := GetCasesHandler(env.cases, env.violations, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/cases?page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var data struct {
		Cases []struct {
			CaseNumber string   `json:"case_number"`
			Date       string   `json:"date"`
			TimeOfDay  string   `json:"timeOfDay"`
			Violations []string `json:"violations"`
		} `json:"cases"`
		Length     int `json:"length"`
		TotalPages int `json:"totalPages"`
		TotalFines int `json:"totalFines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if data.Length != 2 || len(data.Cases) != 2 {
		t.Errorf("Expected 2 cases, got length=%d cases=%d", data.Length, len(data.Cases))
	}
	if data.TotalPages != 1 {
		t.Errorf("Expected 1 page, got %d", data.TotalPages)
	}
	if data.TotalFines != 1300 {
		t.Errorf("Expected total fines 1300, got %d", data.TotalFines)
	}

	// Capture moment is split into dashboard columns.
	if data.Cases[0].Date != "27-08-2026" {
		t.Errorf("Expected date 27-08-2026, got %s", data.Cases[0].Date)
	}
	if data.Cases[0].TimeOfDay != "10:00" {
		t.Errorf("Expected time 10:00, got %s", data.Cases[0].TimeOfDay)
	}

	// The offending case carries its violation names.
	for _, c := range data.Cases {
		if c.CaseNumber == "TVC-20260827-000001" && len(c.Violations) != 1 {
			t.Errorf("Expected 1 violation name, got %v", c.Violations)
		}
	}
}

func TestGetCasesHandler_StatusFilter(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	insertProcessedCase(t, env, "TVC-20260827-000001", 500)
	env.cases.Insert(&models.Case{
		CaseNumber: "TVC-20260827-000002",
		Filename:   "p.jpg",
		MediaType:  models.MediaImage,
		CapturedAt: time.Now(),
		Status:     models.StatusPending,
	})

	handler := GetCasesHandler(env.cases, env.violations, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/cases?status=Pending", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var data dto.CasesData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data.Length != 1 {
		t.Errorf("Expected 1 pending case, got %d", data.Length)
	}
}

func TestGetCaseDetailHandler(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	id := insertProcessedCase(t, env, "TVC-20260827-000001", 500)
	env.violations.InsertBatch([]models.Violation{
		{CaseID: id, Code: models.CodeNoHelmet, Description: "No Helmet", FineAmount: 500, Confidence: 0.9},
	})
	env.detections.InsertBatch([]models.Detection{
		{CaseID: id, Label: "rider", X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.9},
	})

	handler := GetCaseDetailHandler(env.cases, env.violations, env.detections, env.challans, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/cases/detail?id=1", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var detail dto.CaseDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if detail.Case.CaseNumber != "TVC-20260827-000001" {
		t.Errorf("Wrong case in detail: %s", detail.Case.CaseNumber)
	}
	if len(detail.Violations) != 1 || len(detail.Detections) != 1 {
		t.Errorf("Expected 1 violation and 1 detection, got %d/%d", len(detail.Violations), len(detail.Detections))
	}
}

func TestGetCaseDetailHandler_NotFound(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := GetCaseDetailHandler(env.cases, env.violations, env.detections, env.challans, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/cases/detail?id=42", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestGetCaseDetailHandler_BadID(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := GetCaseDetailHandler(env.cases, env.violations, env.detections, env.challans, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/cases/detail?id=abc", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestDeleteCaseHandler(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	id := insertProcessedCase(t, env, "TVC-20260827-000001", 500)

	// Put the upload on disk so the handler has something to remove.
	os.MkdirAll(env.cfg.UploadDirectory, 0755)
	uploadPath := filepath.Join(env.cfg.UploadDirectory, "TVC-20260827-000001.jpg")
	os.WriteFile(uploadPath, []byte("x"), 0644)

	handler := DeleteCaseHandler(env.manager, env.cases, env.logger)

	req := httptest.NewRequest(http.MethodDelete, "/api/cases/delete?id=1", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if c, _ := env.cases.GetByID(id); c != nil {
		t.Error("Case should be deleted")
	}
	if _, err := os.Stat(uploadPath); !os.IsNotExist(err) {
		t.Error("Upload file should be deleted")
	}
}

func TestClearCasesHandler(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	insertProcessedCase(t, env, "TVC-20260827-000001", 500)
	insertProcessedCase(t, env, "TVC-20260827-000002", 800)

	handler := ClearCasesHandler(env.manager, env.cases, env.logger)

	// Clearing is POST-only.
	req := httptest.NewRequest(http.MethodGet, "/api/cases/clear", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/cases/clear", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	count, _ := env.cases.GetTotalCount(&dto.CaseFilter{})
	if count != 0 {
		t.Errorf("Expected 0 cases after clear, got %d", count)
	}
}

// ========================================
// Report / Stats Handler Tests
// ========================================

func TestCSVReportHandler(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	id := insertProcessedCase(t, env, "TVC-20260827-000001", 500)
	env.violations.InsertBatch([]models.Violation{
		{CaseID: id, Code: models.CodeNoHelmet, Description: "No Helmet", FineAmount: 500, Confidence: 0.9},
	})

	handler := CSVReportHandler(env.cases, env.violations, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/report/csv", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "traffic_violations_") {
		t.Errorf("Expected attachment filename, got %s", cd)
	}

	body := rec.Body.String()
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 row, got %d lines:\n%s", len(lines), body)
	}
	if !strings.HasPrefix(lines[0], "Case Number,Date,Time") {
		t.Errorf("Unexpected CSV header: %s", lines[0])
	}
	for _, want := range []string{"TVC-20260827-000001", "2026-08-27", "No Helmet", "500", "Processed"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("CSV row missing %q: %s", want, lines[1])
		}
	}
}

func TestGetStatsHandler(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	id := insertProcessedCase(t, env, "TVC-20260827-000001", 500)
	env.violations.InsertBatch([]models.Violation{
		{CaseID: id, Code: models.CodeNoHelmet, Description: "No Helmet", FineAmount: 500, Confidence: 0.9},
	})

	handler := GetStatsHandler(env.cases, env.logger)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats dto.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.TotalCases != 1 || stats.TotalViolations != 1 || stats.TotalFines != 500 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

// ========================================
// Login Handler Tests
// ========================================

func TestLoginHandler(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := LoginHandler(env.cfg, env.logger)

	form := strings.NewReader("password=secret")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303 redirect, got %d", rec.Code)
	}

	cookies := rec.Result().Cookies()
	found := false
	for _, c := range cookies {
		if c.Name == "authenticated" && c.Value == "true" {
			found = true
		}
	}
	if !found {
		t.Error("Expected authenticated cookie to be set")
	}
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	env, cleanup := setupEnv(t)
	defer cleanup()

	handler := LoginHandler(env.cfg, env.logger)

	form := strings.NewReader("password=wrong")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

// ========================================
// Helper Tests
// ========================================

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"1", 0, 1},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
	}

	for _, tt := range tests {
		if got := atoiDefault(tt.input, tt.def); got != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, got, tt.expected)
		}
	}
}

func TestParseDate(t *testing.T) {
	if got := parseDate("2026-08-27"); got.IsZero() {
		t.Error("Expected valid date to parse")
	}
	if got := parseDate("27/08/2026"); !got.IsZero() {
		t.Errorf("Expected invalid format to yield zero time, got %v", got)
	}
	if got := parseDate(""); !got.IsZero() {
		t.Error("Expected empty string to yield zero time")
	}
}
