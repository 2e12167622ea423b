package models

import "time"

// Challan records a delivered fine notice for a case.
type Challan struct {
	ID            int64     `json:"id"`
	CaseID        int64     `json:"case_id"`
	ChallanNumber string    `json:"challan_number"`
	Recipient     string    `json:"recipient"`
	SentAt        time.Time `json:"sent_at"`
}
