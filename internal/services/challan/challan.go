// Package challan builds and delivers fine notices for processed cases.
package challan

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"trafficwatch/internal/models"
	"trafficwatch/internal/repository"
)

// Mailer delivers a challan email. Satisfied by SMTPMailer in production and
// by fakes in tests.
type Mailer interface {
	Send(to, subject, body string) error
}

var bodyTemplate = template.Must(template.New("challan").Parse(`TRAFFIC VIOLATION CHALLAN

Challan No : {{.ChallanNumber}}
Case No    : {{.Case.CaseNumber}}
Date       : {{.Case.CapturedAt.Format "02-01-2006 15:04"}}
Location   : {{.Case.Location}}
Vehicle    : {{.Vehicle}}
Plate No   : {{.Plate}}

Violations:
{{- range .Violations}}
  - {{.Description}} (Rs. {{.FineAmount}})
{{- end}}

Total Fine : Rs. {{.Case.TotalFine}}

This challan was issued based on automated camera evidence. Payment is due
within 15 days of issue. Contact your regional transport office to contest.
`))

// Service issues challans: it generates the notice, mails it, records the
// delivery and advances the case status.
type Service struct {
	mailer   Mailer
	cases    repository.CaseRepository
	challans repository.ChallanRepository
}

// NewService creates a challan service. mailer may be nil when SMTP is not
// configured; Send then refuses with ErrNotConfigured.
func NewService(mailer Mailer, cases repository.CaseRepository, challans repository.ChallanRepository) *Service {
	return &Service{mailer: mailer, cases: cases, challans: challans}
}

// ErrNotConfigured is returned when challan delivery is attempted without
// SMTP settings.
var ErrNotConfigured = fmt.Errorf("challan delivery is not configured")

// Send issues a challan for the case to the recipient address.
func (s *Service) Send(c *models.Case, violations []models.Violation, recipient string) (*models.Challan, error) {
	if s.mailer == nil {
		return nil, ErrNotConfigured
	}
	if len(violations) == 0 {
		return nil, fmt.Errorf("case %s has no violations to challan", c.CaseNumber)
	}

	seq, err := s.challans.NextNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to number challan: %w", err)
	}
	number := fmt.Sprintf("CHL-%06d", seq)

	body, err := BuildBody(number, c, violations)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Traffic Violation Challan %s", number)
	if err := s.mailer.Send(recipient, subject, body); err != nil {
		return nil, fmt.Errorf("failed to send challan: %w", err)
	}

	ch := &models.Challan{
		CaseID:        c.ID,
		ChallanNumber: number,
		Recipient:     recipient,
		SentAt:        time.Now(),
	}

	id, err := s.challans.Insert(ch)
	if err != nil {
		return nil, fmt.Errorf("challan sent but not recorded: %w", err)
	}
	ch.ID = id

	if err := s.cases.UpdateStatus(c.ID, models.StatusChallanSent); err != nil {
		return nil, fmt.Errorf("challan sent but case status not updated: %w", err)
	}

	return ch, nil
}

// BuildBody renders the challan notice text.
func BuildBody(number string, c *models.Case, violations []models.Violation) (string, error) {
	vehicle := c.VehicleType
	if vehicle == "" {
		vehicle = "Unknown"
	}
	if c.VehicleColor != "" {
		vehicle = fmt.Sprintf("%s (%s)", vehicle, c.VehicleColor)
	}

	plate := c.PlateNumber
	if plate == "" {
		plate = "Not identified"
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		ChallanNumber string
		Case          *models.Case
		Violations    []models.Violation
		Vehicle       string
		Plate         string
	}{
		ChallanNumber: number,
		Case:          c,
		Violations:    violations,
		Vehicle:       vehicle,
		Plate:         plate,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render challan: %w", err)
	}

	return buf.String(), nil
}
