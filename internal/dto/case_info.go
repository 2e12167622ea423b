package dto

import (
	"encoding/json"
	"time"
)

// CaseInfo is the list-view projection of a case together with the
// descriptions of its violations.
type CaseInfo struct {
	ID           int64     `json:"id"`
	CaseNumber   string    `json:"case_number"`
	Filename     string    `json:"filename"`
	CapturedAt   time.Time `json:"captured_at"`
	Location     string    `json:"location"`
	VehicleType  string    `json:"vehicle_type"`
	VehicleColor string    `json:"vehicle_color"`
	PlateNumber  string    `json:"plate_number"`
	Status       string    `json:"status"`
	TotalFine    int       `json:"total_fine"`
	Violations   []string  `json:"violations"`
	EvidenceFile string    `json:"evidence_file"`
}

// MarshalJSON customizes JSON output for CaseInfo so the dashboard gets the
// capture moment split into date and time-of-day columns.
func (c CaseInfo) MarshalJSON() ([]byte, error) {
	type Alias CaseInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      c.CapturedAt.Format("02-01-2006"),
		TimeOfDay: c.CapturedAt.Format("15:04"),
		Alias:     (Alias)(c),
	})
}
