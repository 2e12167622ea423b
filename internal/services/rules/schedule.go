package rules

import "trafficwatch/internal/models"

// fineSchedule holds the fine amount per violation code.
var fineSchedule = map[string]int{
	models.CodeNoHelmet:        500,
	models.CodeTripleRiding:    1000,
	models.CodeNoLicensePlate:  300,
	models.CodeRedLightJumping: 800,
}

// descriptions are the human-readable names used on reports and challans.
var descriptions = map[string]string{
	models.CodeNoHelmet:        "No Helmet",
	models.CodeTripleRiding:    "Triple Riding",
	models.CodeNoLicensePlate:  "No License Plate",
	models.CodeRedLightJumping: "Red Light Jumping",
}

// FineFor returns the fine amount for a violation code, 0 for unknown codes.
func FineFor(code string) int {
	return fineSchedule[code]
}

// Describe returns the display name of a violation code.
func Describe(code string) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return code
}

// TotalFine sums the fine amounts of the given violations.
func TotalFine(violations []models.Violation) int {
	total := 0
	for _, v := range violations {
		total += v.FineAmount
	}
	return total
}
