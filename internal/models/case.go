package models

import "time"

// Case statuses. A case only ever moves forward through these.
const (
	StatusPending     = "Pending"
	StatusProcessed   = "Processed"
	StatusChallanSent = "Challan Sent"
)

// Media types accepted by the upload endpoint.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Case represents one uploaded piece of traffic media and the outcome of
// processing it.
type Case struct {
	ID           int64     `json:"id"`
	CaseNumber   string    `json:"case_number"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"filepath"`
	FileSize     int64     `json:"filesize"`
	MediaType    string    `json:"media_type"`
	Location     string    `json:"location"`
	VehicleType  string    `json:"vehicle_type"`
	VehicleColor string    `json:"vehicle_color"`
	PlateNumber  string    `json:"plate_number"`
	CapturedAt   time.Time `json:"captured_at"`
	Status       string    `json:"status"`
	TotalFine    int       `json:"total_fine"`
	EvidenceFile string    `json:"evidence_file"`
}
