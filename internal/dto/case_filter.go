package dto

import "time"

// CaseFilter contains filtering options for querying violation cases.
type CaseFilter struct {
	Status        string
	ViolationCode string
	Location      string
	VehicleType   string
	Plate         string
	DateAfter     time.Time
	DateBefore    time.Time
	Limit         int
	Offset        int
}
