package repository

import (
	"errors"

	"trafficwatch/internal/dto"
	"trafficwatch/internal/models"
)

// ErrDuplicateCaseNumber is returned by CaseRepository.Insert when the case
// number is already taken, which happens when two uploads race for the same
// day sequence. Callers should pick a fresh number and retry.
var ErrDuplicateCaseNumber = errors.New("case number already in use")

// CaseRepository defines the interface for violation case data operations.
type CaseRepository interface {
	// Create operations
	Insert(c *models.Case) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Case, error)
	GetByCaseNumber(number string) (*models.Case, error)
	GetAll(filter *dto.CaseFilter) ([]models.Case, error)
	GetTotalCount(filter *dto.CaseFilter) (int, error)
	GetFilterValues() (locations, vehicleTypes []string, err error)
	GetStats() (*dto.Stats, error)
	NextSequence(day string) (int, error)

	// Update operations
	UpdateResult(c *models.Case) error
	UpdateStatus(id int64, status string) error

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}

// ViolationRepository defines the interface for violation data operations.
type ViolationRepository interface {
	InsertBatch(violations []models.Violation) error
	GetByCaseID(caseID int64) ([]models.Violation, error)
	GetCodes() ([]string, error)
	DeleteByCaseID(caseID int64) error
}

// DetectionRepository defines the interface for raw detection data operations.
type DetectionRepository interface {
	InsertBatch(detections []models.Detection) error
	GetByCaseID(caseID int64) ([]models.Detection, error)
	DeleteByCaseID(caseID int64) error
}

// ChallanRepository defines the interface for challan data operations.
type ChallanRepository interface {
	Insert(ch *models.Challan) (int64, error)
	GetByCaseID(caseID int64) ([]models.Challan, error)
	NextNumber() (int, error)
}
