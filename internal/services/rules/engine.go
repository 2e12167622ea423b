// Package rules derives traffic violations from raw detections. All decisions
// are pure bounding-box geometry so the same detections always yield the same
// violations.
package rules

import (
	"image"
	"math"

	"trafficwatch/internal/models"
	"trafficwatch/internal/services/detector"
)

// triplePersonCount is the passenger threshold for a triple riding offence.
const triplePersonCount = 3

// Result is the outcome of evaluating the detections of one frame.
type Result struct {
	Violations  []models.Violation
	VehicleType string
	Riders      int
}

// Evaluate derives violations from a set of detections. Violations are
// produced per rider: two riders without helmets yield two No Helmet entries,
// matching how challans are issued.
func Evaluate(detections []detector.Detection) Result {
	var (
		riders, helmets, persons, plates, redLights []detector.Detection
	)

	for _, d := range detections {
		switch d.Label {
		case detector.LabelRider:
			riders = append(riders, d)
		case detector.LabelHelmet:
			helmets = append(helmets, d)
		case detector.LabelPerson:
			persons = append(persons, d)
		case detector.LabelPlate:
			plates = append(plates, d)
		case detector.LabelRedLight:
			redLights = append(redLights, d)
		}
	}

	result := Result{
		Riders:      len(riders),
		VehicleType: vehicleType(detections, riders),
	}

	for _, rider := range riders {
		riderRect := rider.Rect()

		if !hasHelmet(riderRect, helmets) {
			result.Violations = append(result.Violations, violation(models.CodeNoHelmet, rider.Confidence))
		}

		if passengerCount(riderRect, persons) >= triplePersonCount {
			result.Violations = append(result.Violations, violation(models.CodeTripleRiding, rider.Confidence))
		}

		if !hasPlate(riderRect, plates) {
			result.Violations = append(result.Violations, violation(models.CodeNoLicensePlate, rider.Confidence))
		}

		if jumpedRedLight(riderRect, redLights) {
			result.Violations = append(result.Violations, violation(models.CodeRedLightJumping, rider.Confidence))
		}
	}

	return result
}

func violation(code string, confidence float64) models.Violation {
	return models.Violation{
		Code:        code,
		Description: Describe(code),
		FineAmount:  FineFor(code),
		Confidence:  confidence,
	}
}

// hasHelmet reports whether any helmet box is centered in the upper half of
// the rider box.
func hasHelmet(rider image.Rectangle, helmets []detector.Detection) bool {
	upperHalf := image.Rect(rider.Min.X, rider.Min.Y, rider.Max.X, rider.Min.Y+rider.Dy()/2)
	for _, h := range helmets {
		if center(h.Rect()).In(upperHalf) {
			return true
		}
	}
	return false
}

// passengerCount counts person boxes overlapping the rider box.
func passengerCount(rider image.Rectangle, persons []detector.Detection) int {
	count := 0
	for _, p := range persons {
		if p.Rect().Overlaps(rider) {
			count++
		}
	}
	return count
}

// hasPlate reports whether any license plate box is centered inside the rider box.
func hasPlate(rider image.Rectangle, plates []detector.Detection) bool {
	for _, p := range plates {
		if center(p.Rect()).In(rider) {
			return true
		}
	}
	return false
}

// jumpedRedLight reports whether the rider box has fully crossed the stop line
// of a red signal. The stop line is taken as the horizontal at the bottom edge
// of the signal box: a rider entirely below it in the frame has passed the
// signal while it is red.
func jumpedRedLight(rider image.Rectangle, redLights []detector.Detection) bool {
	for _, light := range redLights {
		if rider.Min.Y > light.Rect().Max.Y {
			return true
		}
	}
	return false
}

// vehicleType names the vehicle class nearest to a rider, preferring the
// detection with the highest overlap.
func vehicleType(detections []detector.Detection, riders []detector.Detection) string {
	names := map[string]string{
		detector.LabelMotorcycle: "Motorcycle",
		detector.LabelScooter:    "Scooter",
		detector.LabelBicycle:    "Bike",
	}

	best := ""
	bestArea := 0
	for _, d := range detections {
		name, ok := names[d.Label]
		if !ok {
			continue
		}
		for _, rider := range riders {
			area := intersectionArea(d.Rect(), rider.Rect())
			if area > bestArea {
				bestArea = area
				best = name
			}
		}
		// A vehicle with no rider overlap still names the case when nothing
		// better is found.
		if best == "" {
			best = name
		}
	}

	return best
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func intersectionArea(a, b image.Rectangle) int {
	i := a.Intersect(b)
	return i.Dx() * i.Dy()
}

// MaxConfidence returns the highest confidence among the violations, used when
// a single number is needed for a case summary.
func MaxConfidence(violations []models.Violation) float64 {
	max := 0.0
	for _, v := range violations {
		max = math.Max(max, v.Confidence)
	}
	return max
}
