package dto

import "trafficwatch/internal/models"

// CaseDetail is the full record of a single case.
type CaseDetail struct {
	Case       models.Case        `json:"case"`
	Violations []models.Violation `json:"violations"`
	Detections []models.Detection `json:"detections"`
	Challans   []models.Challan   `json:"challans"`
}
