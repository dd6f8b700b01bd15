package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormatVersion identifies the archive layout.
const ExportFormatVersion = 1

// PersonRecord is a person together with their ordered measurements, the
// shape the export archive and the person detail endpoint share.
type PersonRecord struct {
	Person
	Measurements []Measurement `json:"measurements"`
}

// ExportFile is the round-trip archive format.
type ExportFile struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exportedAt"`
	Persons    []PersonRecord `json:"persons"`
}

// GetPersonRecord fetches a person with their measurements.
func (db *DB) GetPersonRecord(id string) (*PersonRecord, error) {
	person, err := db.GetPerson(id)
	if err != nil {
		return nil, err
	}

	measurements, err := db.ListMeasurements(id)
	if err != nil {
		return nil, err
	}
	if measurements == nil {
		measurements = []Measurement{}
	}

	return &PersonRecord{Person: *person, Measurements: measurements}, nil
}

// ExportJSON serializes every person and their measurements into the
// archive format.
func (db *DB) ExportJSON() ([]byte, error) {
	persons, err := db.GetAllPersons()
	if err != nil {
		return nil, err
	}

	file := ExportFile{
		Version:    ExportFormatVersion,
		ExportedAt: time.Now().UTC(),
		Persons:    make([]PersonRecord, 0, len(persons)),
	}
	for _, p := range persons {
		record, err := db.GetPersonRecord(p.ID)
		if err != nil {
			return nil, err
		}
		file.Persons = append(file.Persons, *record)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// ImportJSON loads an archive produced by ExportJSON and returns how many
// persons and measurements were stored. Persons already in the database
// are replaced wholesale: their fields are overwritten and their old
// measurements dropped in favor of the imported ones. Age columns are
// rederived from the imported dates rather than trusted from the file.
func (db *DB) ImportJSON(data []byte) (int, int, error) {
	var file ExportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, 0, fmt.Errorf("failed to parse import: %w", err)
	}
	if file.Version != 0 && file.Version != ExportFormatVersion {
		return 0, 0, fmt.Errorf("unsupported export version %d", file.Version)
	}

	personCount := 0
	measurementCount := 0
	for _, record := range file.Persons {
		p := record.Person
		if p.ID != "" {
			if _, err := db.GetPerson(p.ID); err == nil {
				if err := db.DeletePerson(p.ID); err != nil {
					return personCount, measurementCount, err
				}
			}
		}
		if err := db.CreatePerson(&p); err != nil {
			return personCount, measurementCount, fmt.Errorf("person %q: %w", p.Name, err)
		}
		personCount++

		for _, m := range record.Measurements {
			m.PersonID = p.ID
			if err := db.AddMeasurement(&m); err != nil {
				return personCount, measurementCount,
					fmt.Errorf("person %q measurement on %s: %w", p.Name, m.Date, err)
			}
			measurementCount++
		}
	}

	return personCount, measurementCount, nil
}
