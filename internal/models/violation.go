package models

// Violation codes. The codes are stable identifiers, the descriptions are what
// reports and challans show.
const (
	CodeNoHelmet        = "NO_HELMET"
	CodeTripleRiding    = "TRIPLE_RIDING"
	CodeNoLicensePlate  = "NO_LICENSE_PLATE"
	CodeRedLightJumping = "RED_LIGHT_JUMPING"
)

// Violation is a single offence derived from the detections of a case.
type Violation struct {
	ID          int64   `json:"id"`
	CaseID      int64   `json:"case_id"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	FineAmount  int     `json:"fine_amount"`
	Confidence  float64 `json:"confidence"`
}
