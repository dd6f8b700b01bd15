package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/percentile-data/growth.report/internal/agecalc"
)

// Measurement is a single visit's readings. Nil metric fields were not
// measured at that visit. AgeYears and AgeMonths are derived from the
// owning person's birth date and kept current by the person update path.
type Measurement struct {
	ID                  string    `json:"id"`
	PersonID            string    `json:"personId"`
	Date                string    `json:"date"`
	AgeYears            float64   `json:"ageYears"`
	AgeMonths           float64   `json:"ageMonths"`
	Weight              *float64  `json:"weight,omitempty"`
	Height              *float64  `json:"height,omitempty"`
	HeadCircumference   *float64  `json:"headCircumference,omitempty"`
	ArmCircumference    *float64  `json:"armCircumference,omitempty"`
	SubscapularSkinfold *float64  `json:"subscapularSkinfold,omitempty"`
	TricepsSkinfold     *float64  `json:"tricepsSkinfold,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Validate checks the measurement's own fields. Relationship checks (the
// person existing, the date not predating birth) happen in AddMeasurement.
func (m *Measurement) Validate() error {
	if m.PersonID == "" {
		return fmt.Errorf("personId is required")
	}
	if _, err := ParseDate(m.Date); err != nil {
		return fmt.Errorf("invalid measurement date: %w", err)
	}

	hasReading := false
	for _, r := range []*float64{
		m.Weight,
		m.Height,
		m.HeadCircumference,
		m.ArmCircumference,
		m.SubscapularSkinfold,
		m.TricepsSkinfold,
	} {
		if r == nil {
			continue
		}
		if *r <= 0 {
			return fmt.Errorf("measurement values must be positive")
		}
		hasReading = true
	}
	if !hasReading {
		return fmt.Errorf("at least one measurement value is required")
	}

	return nil
}

// AddMeasurement validates and stores a measurement, deriving the age
// columns from the owning person's birth date.
func (db *DB) AddMeasurement(m *Measurement) error {
	if err := m.Validate(); err != nil {
		return err
	}

	person, err := db.GetPerson(m.PersonID)
	if err != nil {
		return err
	}
	birth, err := ParseDate(person.BirthDate)
	if err != nil {
		return err
	}
	at, err := ParseDate(m.Date)
	if err != nil {
		return err
	}
	if at.Before(birth) {
		return fmt.Errorf("measurement date %s predates birth date %s", m.Date, person.BirthDate)
	}

	age, ok := agecalc.Age(birth, at)
	if !ok {
		return fmt.Errorf("cannot derive age for measurement on %s", m.Date)
	}
	m.AgeYears = age.Years
	m.AgeMonths = age.Months

	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	query := `
		INSERT INTO measurements (
			id, person_id, measured_at, age_years, age_months,
			weight_kg, height_cm, head_circumference_cm,
			arm_circumference_cm, subscapular_skinfold_mm, triceps_skinfold_mm,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().Unix()
	_, err = db.DB.Exec(
		query,
		m.ID,
		m.PersonID,
		m.Date,
		m.AgeYears,
		m.AgeMonths,
		m.Weight,
		m.Height,
		m.HeadCircumference,
		m.ArmCircumference,
		m.SubscapularSkinfold,
		m.TricepsSkinfold,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to add measurement: %w", err)
	}

	m.CreatedAt = time.Unix(now, 0)
	return nil
}

// GetMeasurement retrieves a single measurement by ID.
func (db *DB) GetMeasurement(id string) (*Measurement, error) {
	query := `
		SELECT
			id, person_id, measured_at, age_years, age_months,
			weight_kg, height_cm, head_circumference_cm,
			arm_circumference_cm, subscapular_skinfold_mm, triceps_skinfold_mm,
			created_at
		FROM measurements
		WHERE id = ?
	`

	var m Measurement
	var createdAtUnix int64

	err := db.DB.QueryRow(query, id).Scan(
		&m.ID,
		&m.PersonID,
		&m.Date,
		&m.AgeYears,
		&m.AgeMonths,
		&m.Weight,
		&m.Height,
		&m.HeadCircumference,
		&m.ArmCircumference,
		&m.SubscapularSkinfold,
		&m.TricepsSkinfold,
		&createdAtUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("measurement not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get measurement: %w", err)
	}

	m.CreatedAt = time.Unix(createdAtUnix, 0)
	return &m, nil
}

// ListMeasurements returns a person's measurements ordered by date.
func (db *DB) ListMeasurements(personID string) ([]Measurement, error) {
	query := `
		SELECT
			id, person_id, measured_at, age_years, age_months,
			weight_kg, height_cm, head_circumference_cm,
			arm_circumference_cm, subscapular_skinfold_mm, triceps_skinfold_mm,
			created_at
		FROM measurements
		WHERE person_id = ?
		ORDER BY measured_at ASC, created_at ASC, id ASC
	`

	rows, err := db.DB.Query(query, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		var createdAtUnix int64

		err := rows.Scan(
			&m.ID,
			&m.PersonID,
			&m.Date,
			&m.AgeYears,
			&m.AgeMonths,
			&m.Weight,
			&m.Height,
			&m.HeadCircumference,
			&m.ArmCircumference,
			&m.SubscapularSkinfold,
			&m.TricepsSkinfold,
			&createdAtUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}

		m.CreatedAt = time.Unix(createdAtUnix, 0)
		measurements = append(measurements, m)
	}

	return measurements, rows.Err()
}

// DeleteMeasurement removes a single measurement.
func (db *DB) DeleteMeasurement(id string) error {
	query := `DELETE FROM measurements WHERE id = ?`

	result, err := db.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete measurement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("measurement not found")
	}

	return nil
}
