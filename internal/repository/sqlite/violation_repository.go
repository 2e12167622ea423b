package sqlite

import (
	"fmt"

	"trafficwatch/internal/models"
)

// ViolationRepository implements repository.ViolationRepository for SQLite.
type ViolationRepository struct {
	db *DB
}

// NewViolationRepository creates a new SQLite violation repository.
func NewViolationRepository(db *DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// InsertBatch adds multiple violations in a single transaction.
func (r *ViolationRepository) InsertBatch(violations []models.Violation) error {
	if len(violations) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO violations (case_id, code, description, fine_amount, confidence)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range violations {
		if _, err := stmt.Exec(v.CaseID, v.Code, v.Description, v.FineAmount, v.Confidence); err != nil {
			return fmt.Errorf("failed to insert violation: %w", err)
		}
	}

	return tx.Commit()
}

// GetByCaseID retrieves all violations recorded for a case.
func (r *ViolationRepository) GetByCaseID(caseID int64) ([]models.Violation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, case_id, code, description, fine_amount, confidence
		FROM violations WHERE case_id = ? ORDER BY id
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var violations []models.Violation
	for rows.Next() {
		var v models.Violation
		if err := rows.Scan(&v.ID, &v.CaseID, &v.Code, &v.Description, &v.FineAmount, &v.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, v)
	}

	return violations, rows.Err()
}

// GetCodes returns all distinct violation codes present in the database.
func (r *ViolationRepository) GetCodes() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT code FROM violations ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query violation codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

// DeleteByCaseID removes all violations of a case.
func (r *ViolationRepository) DeleteByCaseID(caseID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`DELETE FROM violations WHERE case_id = ?`, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete violations: %w", err)
	}
	return nil
}
