package dto

// UploadResponse is returned after a successful media upload.
type UploadResponse struct {
	CaseID     int64  `json:"case_id"`
	CaseNumber string `json:"case_number"`
	MediaType  string `json:"media_type"`
	Queued     bool   `json:"queued"`
}
