package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/httputil"
)

// MeasurementRequest is the request body for recording a measurement.
// All readings are optional but at least one must be present.
type MeasurementRequest struct {
	Date                string   `json:"date"`
	Weight              *float64 `json:"weight,omitempty"`
	Height              *float64 `json:"height,omitempty"`
	HeadCircumference   *float64 `json:"headCircumference,omitempty"`
	ArmCircumference    *float64 `json:"armCircumference,omitempty"`
	SubscapularSkinfold *float64 `json:"subscapularSkinfold,omitempty"`
	TricepsSkinfold     *float64 `json:"tricepsSkinfold,omitempty"`
}

func (req *MeasurementRequest) toMeasurement(personID string) *db.Measurement {
	return &db.Measurement{
		PersonID:            personID,
		Date:                req.Date,
		Weight:              req.Weight,
		Height:              req.Height,
		HeadCircumference:   req.HeadCircumference,
		ArmCircumference:    req.ArmCircumference,
		SubscapularSkinfold: req.SubscapularSkinfold,
		TricepsSkinfold:     req.TricepsSkinfold,
	}
}

// handleMeasurementSubroutes handles /api/measurements/{id}
func (s *Server) handleMeasurementSubroutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/measurements/")
	if id == "" || strings.Contains(id, "/") {
		httputil.BadRequest(w, "missing measurement ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetMeasurement(w, r, id)
	case http.MethodDelete:
		s.handleDeleteMeasurement(w, r, id)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleListMeasurements handles GET /api/persons/{id}/measurements
func (s *Server) handleListMeasurements(w http.ResponseWriter, r *http.Request, personID string) {
	if _, err := s.db.GetPerson(personID); err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	measurements, err := s.db.ListMeasurements(personID)
	if err != nil {
		httputil.InternalServerError(w, "failed to list measurements")
		return
	}
	if measurements == nil {
		measurements = []db.Measurement{}
	}

	httputil.WriteJSONOK(w, measurements)
}

// handleAddMeasurement handles POST /api/persons/{id}/measurements
func (s *Server) handleAddMeasurement(w http.ResponseWriter, r *http.Request, personID string) {
	var req MeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}

	measurement := req.toMeasurement(personID)
	if err := s.db.AddMeasurement(measurement); err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, measurement)
}

// handleGetMeasurement handles GET /api/measurements/{id}
func (s *Server) handleGetMeasurement(w http.ResponseWriter, r *http.Request, id string) {
	measurement, err := s.db.GetMeasurement(id)
	if err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	httputil.WriteJSONOK(w, measurement)
}

// handleDeleteMeasurement handles DELETE /api/measurements/{id}
func (s *Server) handleDeleteMeasurement(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.db.DeleteMeasurement(id); err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}

	httputil.WriteJSONOK(w, map[string]string{"message": "measurement deleted"})
}
