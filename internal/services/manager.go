package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"trafficwatch/internal/dto"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"
	"trafficwatch/internal/repository"
	"trafficwatch/internal/services/detector"
	"trafficwatch/internal/services/plate"
	"trafficwatch/internal/services/rules"
	"trafficwatch/internal/services/storage"
	"trafficwatch/internal/services/vehicle"
	"trafficwatch/internal/services/video"
	"trafficwatch/internal/services/websocket"
)

// Detector is the part of the detection service the pipeline uses.
type Detector interface {
	DetectObjects(imageBytes []byte) ([]detector.Detection, error)
	AnnotateImage(detections []detector.Detection, img []byte) ([]byte, error)
}

// Task is one queued processing job.
type Task struct {
	CaseID int64
}

// Manager owns the processing workers. Each queued case runs the full
// pipeline: detect, derive violations, read the plate, name the vehicle
// color, persist, write evidence and notify dashboard clients.
type Manager struct {
	pool            chan Detector
	queue           chan Task
	numWorkers      int
	detectorsReady  bool
	cases           repository.CaseRepository
	violations      repository.ViolationRepository
	detections      repository.DetectionRepository
	evidenceService *storage.EvidenceService
	hubService      *websocket.HubService
	plateReader     plate.Reader
	videoService    *video.Service
	logger          *logger.Logger

	wg      sync.WaitGroup
	stopMu  sync.Mutex
	stopped bool
}

// NewManager starts numWorkers processing workers over the given detectors.
func NewManager(
	detectors []Detector,
	detectorsReady bool,
	cases repository.CaseRepository,
	violations repository.ViolationRepository,
	detections repository.DetectionRepository,
	evidenceService *storage.EvidenceService,
	hubService *websocket.HubService,
	plateReader plate.Reader,
	videoService *video.Service,
	logger *logger.Logger,
) *Manager {
	pool := make(chan Detector, len(detectors))
	for _, d := range detectors {
		pool <- d
	}

	m := &Manager{
		pool:            pool,
		queue:           make(chan Task, 100),
		numWorkers:      len(detectors),
		detectorsReady:  detectorsReady,
		cases:           cases,
		violations:      violations,
		detections:      detections,
		evidenceService: evidenceService,
		hubService:      hubService,
		plateReader:     plateReader,
		videoService:    videoService,
		logger:          logger,
	}

	for i := 0; i < m.numWorkers; i++ {
		m.wg.Add(1)
		go m.processingWorker(i)
	}

	m.logger.Info("Manager started with %d processing workers", m.numWorkers)
	return m
}

// Enqueue queues a case for processing. Returns false when the queue is full
// or the manager has stopped; the case then stays Pending until re-queued.
func (m *Manager) Enqueue(caseID int64) bool {
	m.stopMu.Lock()
	defer m.stopMu.Unlock()

	if m.stopped {
		m.logger.Warning("Manager stopped - case %d left pending", caseID)
		return false
	}

	select {
	case m.queue <- Task{CaseID: caseID}:
		return true
	default:
		m.logger.Warning("Processing queue full - case %d left pending", caseID)
		return false
	}
}

// Stop drains the queue and waits for all workers to finish. Stopping twice
// is a no-op; Enqueue refuses new cases once Stop has begun.
func (m *Manager) Stop() {
	m.stopMu.Lock()
	if m.stopped {
		m.stopMu.Unlock()
		return
	}
	m.stopped = true
	close(m.queue)
	m.stopMu.Unlock()

	m.wg.Wait()
	m.evidenceService.Flush()
	m.logger.Info("All processing workers stopped")
}

func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("Processing worker %d started", workerID)

	for task := range m.queue {
		if err := m.process(task); err != nil {
			m.logger.Error("Worker %d: case %d: %v", workerID, task.CaseID, err)
		}
	}

	m.logger.Info("Processing worker %d stopped", workerID)
}

// process runs the pipeline for one case. On error the case stays Pending.
func (m *Manager) process(task Task) error {
	if !m.detectorsReady {
		return fmt.Errorf("detector not ready, case stays pending")
	}

	c, err := m.cases.GetByID(task.CaseID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("case not found")
	}

	// A re-queued case may carry rows from an earlier aborted run.
	if err := m.detections.DeleteByCaseID(c.ID); err != nil {
		return err
	}
	if err := m.violations.DeleteByCaseID(c.ID); err != nil {
		return err
	}

	var frame []byte
	var dets []detector.Detection

	switch c.MediaType {
	case models.MediaVideo:
		frame, dets, err = m.analyzeVideo(c.FilePath)
	default:
		frame, dets, err = m.analyzeImage(c.FilePath)
	}
	if err != nil {
		return err
	}

	result := rules.Evaluate(dets)

	c.PlateNumber = m.readPlate(frame, dets)
	c.VehicleColor = m.vehicleColor(frame, dets)
	if result.VehicleType != "" {
		c.VehicleType = result.VehicleType
	}

	annotated, err := m.annotate(dets, frame)
	if err != nil {
		m.logger.Error("Failed to annotate evidence for %s: %v", c.CaseNumber, err)
		annotated = frame
	}
	c.EvidenceFile = m.evidenceService.Add(c.CaseNumber, annotated)

	rows := make([]models.Detection, 0, len(dets))
	for _, d := range dets {
		rows = append(rows, models.Detection{
			CaseID:     c.ID,
			Label:      d.Label,
			X:          d.X,
			Y:          d.Y,
			Width:      d.Width,
			Height:     d.Height,
			Confidence: d.Confidence,
		})
	}
	if err := m.detections.InsertBatch(rows); err != nil {
		return err
	}

	for i := range result.Violations {
		result.Violations[i].CaseID = c.ID
	}
	if err := m.violations.InsertBatch(result.Violations); err != nil {
		return err
	}

	c.TotalFine = rules.TotalFine(result.Violations)
	c.Status = models.StatusProcessed
	if err := m.cases.UpdateResult(c); err != nil {
		return err
	}

	m.broadcast(c, result.Violations)

	m.logger.Info("Case %s processed: %d detections, %d violations, fine %d",
		c.CaseNumber, len(dets), len(result.Violations), c.TotalFine)
	return nil
}

func (m *Manager) analyzeImage(path string) ([]byte, []detector.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}

	det := <-m.pool
	defer func() { m.pool <- det }()

	dets, err := det.DetectObjects(data)
	if err != nil {
		return nil, nil, err
	}

	return data, dets, nil
}

// analyzeVideo samples the video and keeps the frame with the most derived
// violations (ties broken by detection count) as the case evidence.
func (m *Manager) analyzeVideo(path string) ([]byte, []detector.Detection, error) {
	frames, err := m.videoService.Sample(path)
	if err != nil {
		return nil, nil, err
	}

	// Take one detector unconditionally so the analysis can always make
	// progress, then grab any idle ones for extra parallelism.
	borrowed := []Detector{<-m.pool}
grab:
	for len(borrowed) < cap(m.pool) {
		select {
		case d := <-m.pool:
			borrowed = append(borrowed, d)
		default:
			break grab
		}
	}
	defer func() {
		for _, d := range borrowed {
			m.pool <- d
		}
	}()

	videoPool := make(chan video.Detector, len(borrowed))
	for _, d := range borrowed {
		videoPool <- d
	}

	results, err := m.videoService.Analyze(context.Background(), frames, videoPool)
	if err != nil {
		return nil, nil, err
	}

	best := results[0]
	bestScore := -1
	for _, r := range results {
		score := len(rules.Evaluate(r.Detections).Violations)*1000 + len(r.Detections)
		if score > bestScore {
			best = r
			bestScore = score
		}
	}

	return best.Frame, best.Detections, nil
}

func (m *Manager) annotate(dets []detector.Detection, frame []byte) ([]byte, error) {
	det := <-m.pool
	defer func() { m.pool <- det }()
	return det.AnnotateImage(dets, frame)
}

// readPlate crops the best license-plate detection and runs it through the
// configured reader. Failures downgrade to Unread, never fail the case.
func (m *Manager) readPlate(frame []byte, dets []detector.Detection) string {
	var plateDet *detector.Detection
	for i := range dets {
		d := &dets[i]
		if d.Label != detector.LabelPlate {
			continue
		}
		if plateDet == nil || d.Confidence > plateDet.Confidence {
			plateDet = d
		}
	}
	if plateDet == nil {
		return plate.Unread
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		m.logger.Warning("Failed to decode frame for plate read: %v", err)
		return plate.Unread
	}

	roi, err := plate.PrepareROI(img, plateDet.Rect())
	if err != nil {
		m.logger.Warning("Failed to prepare plate region: %v", err)
		return plate.Unread
	}

	number, confidence, err := m.plateReader.ReadPlate(context.Background(), roi)
	if err != nil {
		m.logger.Warning("Plate read failed: %v", err)
		return plate.Unread
	}
	if number == "" {
		return plate.Unread
	}

	m.logger.Info("Plate read %s (%.2f)", number, confidence)
	return number
}

// vehicleColor names the dominant color of the largest vehicle (or rider) box.
func (m *Manager) vehicleColor(frame []byte, dets []detector.Detection) string {
	var region *detector.Detection
	for i := range dets {
		d := &dets[i]
		switch d.Label {
		case detector.LabelMotorcycle, detector.LabelScooter, detector.LabelBicycle, detector.LabelRider:
		default:
			continue
		}
		if region == nil || d.Width*d.Height > region.Width*region.Height {
			region = d
		}
	}
	if region == nil {
		return ""
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return ""
	}

	return vehicle.DominantColor(img, region.Rect())
}

func (m *Manager) broadcast(c *models.Case, violations []models.Violation) {
	names := make([]string, 0, len(violations))
	for _, v := range violations {
		names = append(names, v.Description)
	}

	event := dto.CaseEvent{
		Event:      "case_processed",
		CaseID:     c.ID,
		CaseNumber: c.CaseNumber,
		Location:   c.Location,
		Plate:      c.PlateNumber,
		Violations: names,
		TotalFine:  c.TotalFine,
		Confidence: rules.MaxConfidence(violations),
		Evidence:   c.EvidenceFile,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to encode case event: %v", err)
		return
	}

	m.hubService.Broadcast(payload)
}

// GetHubService exposes the websocket hub to handlers.
func (m *Manager) GetHubService() *websocket.HubService {
	return m.hubService
}

// GetEvidenceService exposes the evidence store to handlers.
func (m *Manager) GetEvidenceService() *storage.EvidenceService {
	return m.evidenceService
}
