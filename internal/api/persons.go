package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/httputil"
)

// PersonRequest is the request body for creating or updating a person
type PersonRequest struct {
	Name                  string  `json:"name"`
	BirthDate             string  `json:"birthDate"`
	GestationalAgeAtBirth float64 `json:"gestationalAgeAtBirth"`
	Sex                   string  `json:"sex"`
}

// errorStatus maps service errors onto HTTP statuses: missing records
// become 404, internal failures 500, and validation problems 400.
func errorStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "failed to"):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// handlePersonsOrCreate handles GET and POST to /api/persons
func (s *Server) handlePersonsOrCreate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListPersons(w, r)
	case http.MethodPost:
		s.handleCreatePerson(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handlePersonSubroutes handles /api/persons/{id} and its child resources
func (s *Server) handlePersonSubroutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/persons/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		httputil.BadRequest(w, "missing person ID")
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetPerson(w, r, id)
		case http.MethodPut:
			s.handleUpdatePerson(w, r, id)
		case http.MethodDelete:
			s.handleDeletePerson(w, r, id)
		default:
			httputil.MethodNotAllowed(w)
		}
		return
	}

	switch parts[1] {
	case "measurements":
		switch r.Method {
		case http.MethodGet:
			s.handleListMeasurements(w, r, id)
		case http.MethodPost:
			s.handleAddMeasurement(w, r, id)
		default:
			httputil.MethodNotAllowed(w)
		}
	case "series":
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s.handleSeries(w, r, id)
	default:
		httputil.NotFound(w, "unknown resource")
	}
}

// handleListPersons handles GET /api/persons - list all tracked persons
func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := s.db.GetAllPersons()
	if err != nil {
		httputil.InternalServerError(w, "failed to list persons")
		return
	}
	if persons == nil {
		persons = []db.Person{}
	}

	httputil.WriteJSONOK(w, persons)
}

// handleCreatePerson handles POST /api/persons
func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req PersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}

	person := &db.Person{
		Name:                  req.Name,
		BirthDate:             req.BirthDate,
		GestationalAgeAtBirth: req.GestationalAgeAtBirth,
		Sex:                   req.Sex,
	}
	if err := s.db.CreatePerson(person); err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, person)
}

// handleGetPerson handles GET /api/persons/{id} - person with measurements
func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request, id string) {
	record, err := s.db.GetPersonRecord(id)
	if err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	httputil.WriteJSONOK(w, record)
}

// handleUpdatePerson handles PUT /api/persons/{id}
func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request, id string) {
	var req PersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}

	person := &db.Person{
		ID:                    id,
		Name:                  req.Name,
		BirthDate:             req.BirthDate,
		GestationalAgeAtBirth: req.GestationalAgeAtBirth,
		Sex:                   req.Sex,
	}
	if err := s.db.UpdatePerson(person); err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	httputil.WriteJSONOK(w, person)
}

// handleDeletePerson handles DELETE /api/persons/{id}
func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.db.DeletePerson(id); err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	httputil.WriteJSONOK(w, map[string]string{"message": "person deleted"})
}
