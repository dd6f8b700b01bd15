package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/percentile-data/growth.report/internal/agecalc"
	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/units"
)

// Person is a tracked child. BirthDate is stored as YYYY-MM-DD and
// GestationalAgeAtBirth is in completed weeks (40 for a term birth).
type Person struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	BirthDate             string    `json:"birthDate"`
	GestationalAgeAtBirth float64   `json:"gestationalAgeAtBirth"`
	Sex                   string    `json:"sex"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Validate checks the fields a person row must carry before it is stored.
func (p *Person) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("person name is required")
	}
	if _, err := ParseDate(p.BirthDate); err != nil {
		return fmt.Errorf("invalid birth date: %w", err)
	}
	if _, err := refdata.ParseSex(p.Sex); err != nil {
		return err
	}
	if p.GestationalAgeAtBirth < units.PretermMinGestationWeeks ||
		p.GestationalAgeAtBirth > units.PretermMaxGestationWeeks {
		return fmt.Errorf("gestational age %.1f weeks is outside the supported 22-42 range",
			p.GestationalAgeAtBirth)
	}
	return nil
}

// CreatePerson inserts a person. A missing ID is filled with a fresh UUID
// and a zero gestational age defaults to term.
func (db *DB) CreatePerson(p *Person) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.GestationalAgeAtBirth == 0 {
		p.GestationalAgeAtBirth = units.TermGestationWeeks
	}
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO persons (
			id, name, birth_date, gestational_age_weeks, sex,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().Unix()
	_, err := db.DB.Exec(
		query,
		p.ID,
		p.Name,
		p.BirthDate,
		p.GestationalAgeAtBirth,
		p.Sex,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}

	p.CreatedAt = time.Unix(now, 0)
	p.UpdatedAt = time.Unix(now, 0)
	return nil
}

// GetPerson retrieves a person by ID.
func (db *DB) GetPerson(id string) (*Person, error) {
	query := `
		SELECT
			id, name, birth_date, gestational_age_weeks, sex,
			created_at, updated_at
		FROM persons
		WHERE id = ?
	`

	var p Person
	var createdAtUnix, updatedAtUnix int64

	err := db.DB.QueryRow(query, id).Scan(
		&p.ID,
		&p.Name,
		&p.BirthDate,
		&p.GestationalAgeAtBirth,
		&p.Sex,
		&createdAtUnix,
		&updatedAtUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("person not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	p.CreatedAt = time.Unix(createdAtUnix, 0)
	p.UpdatedAt = time.Unix(updatedAtUnix, 0)
	return &p, nil
}

// GetAllPersons returns every person ordered by name.
func (db *DB) GetAllPersons() ([]Person, error) {
	query := `
		SELECT
			id, name, birth_date, gestational_age_weeks, sex,
			created_at, updated_at
		FROM persons
		ORDER BY name ASC, id ASC
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		var p Person
		var createdAtUnix, updatedAtUnix int64

		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.BirthDate,
			&p.GestationalAgeAtBirth,
			&p.Sex,
			&createdAtUnix,
			&updatedAtUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}

		p.CreatedAt = time.Unix(createdAtUnix, 0)
		p.UpdatedAt = time.Unix(updatedAtUnix, 0)
		persons = append(persons, p)
	}

	return persons, rows.Err()
}

// UpdatePerson updates a person's editable fields. When the birth date
// changes, the stored ages on the person's measurements are recomputed so
// the derived columns stay in step with the dates they came from.
func (db *DB) UpdatePerson(p *Person) error {
	if p.GestationalAgeAtBirth == 0 {
		p.GestationalAgeAtBirth = units.TermGestationWeeks
	}
	if err := p.Validate(); err != nil {
		return err
	}

	existing, err := db.GetPerson(p.ID)
	if err != nil {
		return err
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE persons SET
			name = ?,
			birth_date = ?,
			gestational_age_weeks = ?,
			sex = ?,
			updated_at = ?
		WHERE id = ?
	`

	now := time.Now().Unix()
	if _, err := tx.Exec(
		query,
		p.Name,
		p.BirthDate,
		p.GestationalAgeAtBirth,
		p.Sex,
		now,
		p.ID,
	); err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}

	if existing.BirthDate != p.BirthDate {
		birth, err := ParseDate(p.BirthDate)
		if err != nil {
			return err
		}
		if err := recomputeMeasurementAges(tx, p.ID, birth); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit person update: %w", err)
	}

	p.UpdatedAt = time.Unix(now, 0)
	return nil
}

// recomputeMeasurementAges rewrites age_years and age_months for every
// measurement of a person after their birth date changed.
func recomputeMeasurementAges(tx *sql.Tx, personID string, birth time.Time) error {
	rows, err := tx.Query(`SELECT id, measured_at FROM measurements WHERE person_id = ?`, personID)
	if err != nil {
		return fmt.Errorf("failed to query measurements for recompute: %w", err)
	}

	type pendingRow struct {
		id         string
		measuredAt string
	}
	var pending []pendingRow
	for rows.Next() {
		var r pendingRow
		if err := rows.Scan(&r.id, &r.measuredAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan measurement: %w", err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range pending {
		at, err := ParseDate(r.measuredAt)
		if err != nil {
			return err
		}
		age, ok := agecalc.Age(birth, at)
		if !ok {
			return fmt.Errorf("cannot recompute age for measurement %s", r.id)
		}
		if _, err := tx.Exec(
			`UPDATE measurements SET age_years = ?, age_months = ? WHERE id = ?`,
			age.Years,
			age.Months,
			r.id,
		); err != nil {
			return fmt.Errorf("failed to update measurement %s: %w", r.id, err)
		}
	}

	return nil
}

// DeletePerson removes a person. Their measurements go with them via the
// foreign key cascade.
func (db *DB) DeletePerson(id string) error {
	query := `DELETE FROM persons WHERE id = ?`

	result, err := db.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("person not found")
	}

	return nil
}
