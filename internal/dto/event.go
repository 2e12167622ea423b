package dto

// CaseEvent is pushed to live dashboard clients when a case finishes processing.
type CaseEvent struct {
	Event      string   `json:"event"`
	CaseID     int64    `json:"case_id"`
	CaseNumber string   `json:"case_number"`
	Location   string   `json:"location"`
	Plate      string   `json:"plate"`
	Violations []string `json:"violations"`
	TotalFine  int      `json:"total_fine"`
	Confidence float64  `json:"confidence"`
	Evidence   string   `json:"evidence"`
}
