package dto

// Stats aggregates dashboard numbers over all recorded cases.
type Stats struct {
	TotalCases      int            `json:"total_cases"`
	TotalViolations int            `json:"total_violations"`
	TotalFines      int            `json:"total_fines"`
	PendingCases    int            `json:"pending_cases"`
	ChallansSent    int            `json:"challans_sent"`
	ViolationRate   float64        `json:"violation_rate"` // percentage of cases with at least one violation
	ByViolation     map[string]int `json:"by_violation"`
	ByLocation      map[string]int `json:"by_location"`
	ByVehicleType   map[string]int `json:"by_vehicle_type"`
	UploadBytes     int64          `json:"upload_bytes"` // total size of stored source media
	ProcessedPerDay map[string]int `json:"processed_per_day"`
}
