package sqlite

import (
	"fmt"

	"trafficwatch/internal/models"
)

// ChallanRepository implements repository.ChallanRepository for SQLite.
type ChallanRepository struct {
	db *DB
}

// NewChallanRepository creates a new SQLite challan repository.
func NewChallanRepository(db *DB) *ChallanRepository {
	return &ChallanRepository{db: db}
}

// Insert records a delivered challan.
func (r *ChallanRepository) Insert(ch *models.Challan) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO challans (case_id, challan_number, recipient, sent_at)
		VALUES (?, ?, ?, ?)
	`, ch.CaseID, ch.ChallanNumber, ch.Recipient, ch.SentAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert challan: %w", err)
	}

	return result.LastInsertId()
}

// GetByCaseID retrieves all challans sent for a case.
func (r *ChallanRepository) GetByCaseID(caseID int64) ([]models.Challan, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, case_id, challan_number, recipient, sent_at
		FROM challans WHERE case_id = ? ORDER BY sent_at
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query challans: %w", err)
	}
	defer rows.Close()

	var challans []models.Challan
	for rows.Next() {
		var ch models.Challan
		if err := rows.Scan(&ch.ID, &ch.CaseID, &ch.ChallanNumber, &ch.Recipient, &ch.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan challan: %w", err)
		}
		challans = append(challans, ch)
	}

	return challans, rows.Err()
}

// NextNumber returns the next challan sequence number, one past the highest
// number ever issued. Numbers of deleted challans are never reissued.
func (r *ChallanRepository) NextNumber() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	// challan_number is CHL-NNNNNN; the sequence starts at offset 5.
	var max int
	err := r.db.Conn().QueryRow(
		`SELECT COALESCE(MAX(CAST(SUBSTR(challan_number, 5) AS INTEGER)), 0) FROM challans`,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query challan sequence: %w", err)
	}
	return max + 1, nil
}
