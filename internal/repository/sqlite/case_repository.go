package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"trafficwatch/internal/dto"
	"trafficwatch/internal/models"
	"trafficwatch/internal/repository"
)

// CaseRepository implements repository.CaseRepository for SQLite.
type CaseRepository struct {
	db *DB
}

// NewCaseRepository creates a new SQLite case repository.
func NewCaseRepository(db *DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Insert adds a new case record to the database.
func (r *CaseRepository) Insert(c *models.Case) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO cases (case_number, filename, filepath, filesize, media_type,
			location, vehicle_type, vehicle_color, plate_number, captured_at,
			status, total_fine, evidence_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.CaseNumber, c.Filename, c.FilePath, c.FileSize, c.MediaType,
		c.Location, c.VehicleType, c.VehicleColor, c.PlateNumber, c.CapturedAt,
		c.Status, c.TotalFine, c.EvidenceFile)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, repository.ErrDuplicateCaseNumber
		}
		return 0, fmt.Errorf("failed to insert case: %w", err)
	}

	return result.LastInsertId()
}

// UpdateResult writes the processing outcome of a case back to the database.
func (r *CaseRepository) UpdateResult(c *models.Case) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		UPDATE cases
		SET vehicle_type = ?, vehicle_color = ?, plate_number = ?,
			status = ?, total_fine = ?, evidence_file = ?
		WHERE id = ?
	`, c.VehicleType, c.VehicleColor, c.PlateNumber,
		c.Status, c.TotalFine, c.EvidenceFile, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update case result: %w", err)
	}
	return nil
}

// UpdateStatus moves a case to a new status.
func (r *CaseRepository) UpdateStatus(id int64, status string) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`UPDATE cases SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update case status: %w", err)
	}
	return nil
}

// GetByID retrieves a case by its id.
func (r *CaseRepository) GetByID(id int64) (*models.Case, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(r.db.Conn().QueryRow(selectCase+` WHERE id = ?`, id))
}

// GetByCaseNumber retrieves a case by its case number.
func (r *CaseRepository) GetByCaseNumber(number string) (*models.Case, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(r.db.Conn().QueryRow(selectCase+` WHERE case_number = ?`, number))
}

const selectCase = `
	SELECT id, case_number, filename, filepath, filesize, media_type,
		location, vehicle_type, vehicle_color, plate_number, captured_at,
		status, total_fine, evidence_file
	FROM cases`

func (r *CaseRepository) scanOne(row *sql.Row) (*models.Case, error) {
	var c models.Case
	err := row.Scan(&c.ID, &c.CaseNumber, &c.Filename, &c.FilePath, &c.FileSize,
		&c.MediaType, &c.Location, &c.VehicleType, &c.VehicleColor, &c.PlateNumber,
		&c.CapturedAt, &c.Status, &c.TotalFine, &c.EvidenceFile)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query case: %w", err)
	}
	return &c, nil
}

// buildFilter appends WHERE clauses for the given filter and returns the args.
func buildFilter(filter *dto.CaseFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	if filter.Location != "" {
		query += " AND location = ?"
		args = append(args, filter.Location)
	}

	if filter.VehicleType != "" {
		query += " AND vehicle_type = ?"
		args = append(args, filter.VehicleType)
	}

	if filter.Plate != "" {
		query += " AND plate_number = ?"
		args = append(args, filter.Plate)
	}

	if filter.ViolationCode != "" {
		query += " AND EXISTS (SELECT 1 FROM violations v WHERE v.case_id = cases.id AND v.code = ?)"
		args = append(args, filter.ViolationCode)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND DATE(captured_at) >= DATE(?)"
		args = append(args, filter.DateAfter)
	}

	if !filter.DateBefore.IsZero() {
		query += " AND DATE(captured_at) <= DATE(?)"
		args = append(args, filter.DateBefore)
	}

	return query, args
}

// GetAll retrieves cases based on filter criteria, newest first.
func (r *CaseRepository) GetAll(filter *dto.CaseFilter) ([]models.Case, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildFilter(filter)
	query := selectCase + where + " ORDER BY captured_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []models.Case
	for rows.Next() {
		var c models.Case
		err := rows.Scan(&c.ID, &c.CaseNumber, &c.Filename, &c.FilePath, &c.FileSize,
			&c.MediaType, &c.Location, &c.VehicleType, &c.VehicleColor, &c.PlateNumber,
			&c.CapturedAt, &c.Status, &c.TotalFine, &c.EvidenceFile)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

// GetTotalCount returns the count of cases matching the filter (without limit/offset).
func (r *CaseRepository) GetTotalCount(filter *dto.CaseFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildFilter(filter)

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM cases`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cases: %w", err)
	}

	return count, nil
}

// GetFilterValues returns distinct locations and vehicle types for filter dropdowns.
func (r *CaseRepository) GetFilterValues() ([]string, []string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	locations, err := r.distinct(`SELECT DISTINCT location FROM cases WHERE location != '' ORDER BY location`)
	if err != nil {
		return nil, nil, err
	}

	vehicleTypes, err := r.distinct(`SELECT DISTINCT vehicle_type FROM cases WHERE vehicle_type != '' ORDER BY vehicle_type`)
	if err != nil {
		return nil, nil, err
	}

	return locations, vehicleTypes, nil
}

func (r *CaseRepository) distinct(query string) ([]string, error) {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// NextSequence returns the next per-day sequence number for case numbering,
// one past the highest number issued that day. Deriving it from the maximum
// rather than a row count keeps numbers unique after deletions; the UNIQUE
// constraint on case_number catches concurrent claims of the same number.
func (r *CaseRepository) NextSequence(day string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	// case_number is TVC-YYYYMMDD-NNNNNN; the sequence starts at offset 14.
	var max int
	err := r.db.Conn().QueryRow(
		`SELECT COALESCE(MAX(CAST(SUBSTR(case_number, 14) AS INTEGER)), 0)
		 FROM cases WHERE case_number LIKE ?`, "TVC-"+day+"-%",
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query day sequence: %w", err)
	}

	return max + 1, nil
}

// GetStats returns aggregated statistics for the dashboard.
func (r *CaseRepository) GetStats() (*dto.Stats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &dto.Stats{
		ByViolation:     make(map[string]int),
		ByLocation:      make(map[string]int),
		ByVehicleType:   make(map[string]int),
		ProcessedPerDay: make(map[string]int),
	}

	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(total_fine), 0),
			COALESCE(SUM(CASE WHEN status = 'Pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(filesize), 0)
		FROM cases
	`).Scan(&stats.TotalCases, &stats.TotalFines, &stats.PendingCases, &stats.UploadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to query case totals: %w", err)
	}

	err = r.db.Conn().QueryRow(`SELECT COUNT(*) FROM violations`).Scan(&stats.TotalViolations)
	if err != nil {
		return nil, fmt.Errorf("failed to count violations: %w", err)
	}

	err = r.db.Conn().QueryRow(`SELECT COUNT(*) FROM challans`).Scan(&stats.ChallansSent)
	if err != nil {
		return nil, fmt.Errorf("failed to count challans: %w", err)
	}

	var offending int
	err = r.db.Conn().QueryRow(
		`SELECT COUNT(DISTINCT case_id) FROM violations`,
	).Scan(&offending)
	if err != nil {
		return nil, fmt.Errorf("failed to count offending cases: %w", err)
	}
	if stats.TotalCases > 0 {
		stats.ViolationRate = float64(offending) / float64(stats.TotalCases) * 100
	}

	if err := r.groupCount(`SELECT description, COUNT(*) FROM violations GROUP BY description`, stats.ByViolation); err != nil {
		return nil, err
	}
	if err := r.groupCount(`SELECT location, COUNT(*) FROM cases WHERE location != '' GROUP BY location`, stats.ByLocation); err != nil {
		return nil, err
	}
	if err := r.groupCount(`SELECT vehicle_type, COUNT(*) FROM cases WHERE vehicle_type != '' GROUP BY vehicle_type`, stats.ByVehicleType); err != nil {
		return nil, err
	}
	if err := r.groupCount(`SELECT DATE(captured_at), COUNT(*) FROM cases GROUP BY DATE(captured_at)`, stats.ProcessedPerDay); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *CaseRepository) groupCount(query string, dest map[string]int) error {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return fmt.Errorf("failed to query group counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan group count: %w", err)
		}
		dest[key] = count
	}

	return rows.Err()
}

// Delete removes a case record together with its violations, detections and challans.
func (r *CaseRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	for _, q := range []string{
		`DELETE FROM violations WHERE case_id = ?`,
		`DELETE FROM detections WHERE case_id = ?`,
		`DELETE FROM challans WHERE case_id = ?`,
		`DELETE FROM cases WHERE id = ?`,
	} {
		if _, err := r.db.Conn().Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete case: %w", err)
		}
	}
	return nil
}

// DeleteAll removes all cases and their related rows.
func (r *CaseRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	for _, q := range []string{
		`DELETE FROM violations`,
		`DELETE FROM detections`,
		`DELETE FROM challans`,
		`DELETE FROM cases`,
	} {
		if _, err := r.db.Conn().Exec(q); err != nil {
			return fmt.Errorf("failed to clear cases: %w", err)
		}
	}
	return nil
}
