package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trafficwatch/internal/logger"
)

type evidenceItem struct {
	Filename string
	Data     []byte
}

// EvidenceService buffers annotated evidence images and flushes them to disk
// periodically, so a burst of processed cases does not turn into a burst of
// disk writes.
type EvidenceService struct {
	dir         string
	pending     []evidenceItem
	bufferLimit int
	logger      *logger.Logger
	mu          sync.Mutex
}

// NewEvidenceService creates the service and ensures the evidence directory exists.
func NewEvidenceService(dir string, bufferLimit int, logger *logger.Logger) *EvidenceService {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("Failed to create evidence directory %s: %v", dir, err)
	}

	return &EvidenceService{
		dir:         dir,
		bufferLimit: bufferLimit,
		pending:     make([]evidenceItem, 0),
		logger:      logger,
	}
}

// Run flushes the buffer on a fixed interval until the process exits.
func (s *EvidenceService) Run(flushInterval int) {
	ticker := time.NewTicker(time.Duration(flushInterval) * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		s.Flush()
	}
}

// Add queues an annotated image for writing and returns the evidence filename.
// A full buffer triggers an immediate flush; evidence is never dropped.
func (s *EvidenceService) Add(caseNumber string, data []byte) string {
	filename := fmt.Sprintf("%s.jpg", caseNumber)

	s.mu.Lock()
	s.pending = append(s.pending, evidenceItem{Filename: filename, Data: data})
	full := len(s.pending) >= s.bufferLimit
	s.mu.Unlock()

	if full {
		s.Flush()
	}

	return filename
}

// Flush writes all buffered evidence images to disk.
func (s *EvidenceService) Flush() {
	s.mu.Lock()
	items := s.pending
	s.pending = make([]evidenceItem, 0)
	s.mu.Unlock()

	if len(items) == 0 {
		return
	}

	for _, item := range items {
		fullpath := filepath.Join(s.dir, item.Filename)
		if err := os.WriteFile(fullpath, item.Data, 0644); err != nil {
			s.logger.Error("Error saving evidence %s: %v", item.Filename, err)
			continue
		}
	}

	s.logger.Info("Flushed %d evidence images to disk", len(items))
}

// Remove deletes an evidence file from disk.
func (s *EvidenceService) Remove(filename string) error {
	if filename == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear deletes all evidence files.
func (s *EvidenceService) Clear() error {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read evidence directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, file.Name())); err != nil {
			s.logger.Error("Error deleting evidence %s: %v", file.Name(), err)
		}
	}

	return nil
}

// Dir returns the evidence directory path.
func (s *EvidenceService) Dir() string {
	return s.dir
}

// Path resolves an evidence filename within the evidence directory. The name
// is reduced to its base so requests cannot escape the directory.
func (s *EvidenceService) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}
