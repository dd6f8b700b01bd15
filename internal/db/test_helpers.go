package db

import (
	"testing"
)

// Helper function for creating pointer values
func floatPtr(f float64) *float64 {
	return &f
}

// newTestDB opens a fresh migrated database under t.TempDir.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := NewDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// createTestPerson inserts a term boy born 2023-01-10.
func createTestPerson(t *testing.T, database *DB) *Person {
	t.Helper()

	p := &Person{
		Name:      "Alex",
		BirthDate: "2023-01-10",
		Sex:       "boys",
	}
	if err := database.CreatePerson(p); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	return p
}

// createTestMeasurement adds a weight and height reading on date.
func createTestMeasurement(t *testing.T, database *DB, personID, date string) *Measurement {
	t.Helper()

	m := &Measurement{
		PersonID: personID,
		Date:     date,
		Weight:   floatPtr(9.6),
		Height:   floatPtr(75.7),
	}
	if err := database.AddMeasurement(m); err != nil {
		t.Fatalf("AddMeasurement failed: %v", err)
	}
	return m
}
