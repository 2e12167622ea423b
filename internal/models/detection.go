package models

// Detection represents a raw detected object in the media of a case.
type Detection struct {
	ID         int64   `json:"id"`
	CaseID     int64   `json:"case_id"`
	Label      string  `json:"label"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}
