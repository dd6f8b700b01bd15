package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/httputil"
	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/timeline"
	"github.com/percentile-data/growth.report/internal/units"
)

// EvaluateRequest is the request body for a one-shot evaluation that never
// touches stored records.
type EvaluateRequest struct {
	BirthDate             string   `json:"birthDate"`
	GestationalAgeAtBirth float64  `json:"gestationalAgeAtBirth"`
	Sex                   string   `json:"sex"`
	Date                  string   `json:"date"`
	Source                string   `json:"source,omitempty"`
	Weight                *float64 `json:"weight,omitempty"`
	Height                *float64 `json:"height,omitempty"`
	HeadCircumference     *float64 `json:"headCircumference,omitempty"`
	ArmCircumference      *float64 `json:"armCircumference,omitempty"`
	SubscapularSkinfold   *float64 `json:"subscapularSkinfold,omitempty"`
	TricepsSkinfold       *float64 `json:"tricepsSkinfold,omitempty"`
}

// EvaluateResponse pairs the chart placement with the percentile outcome of
// every reading present on the request.
type EvaluateResponse struct {
	Coordinate  timeline.Coordinate   `json:"coordinate"`
	Evaluations []timeline.Evaluation `json:"evaluations"`
}

// handleEvaluate handles POST /api/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}

	sex, err := refdata.ParseSex(req.Sex)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	birth, err := db.ParseDate(req.BirthDate)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	at, err := db.ParseDate(req.Date)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if at.Before(birth) {
		httputil.BadRequest(w, fmt.Sprintf("measurement date %s predates birth date %s", req.Date, req.BirthDate))
		return
	}

	ga := req.GestationalAgeAtBirth
	if ga == 0 {
		ga = units.TermGestationWeeks
	}
	if ga < units.PretermMinGestationWeeks || ga > units.PretermMaxGestationWeeks {
		httputil.BadRequest(w, fmt.Sprintf("gestational age %.1f weeks is outside the supported 22-42 range", ga))
		return
	}

	var source refdata.Source
	if req.Source != "" {
		source, err = refdata.ParseSource(req.Source)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}

	readings := []*float64{
		req.Weight,
		req.Height,
		req.HeadCircumference,
		req.ArmCircumference,
		req.SubscapularSkinfold,
		req.TricepsSkinfold,
	}
	hasReading := false
	for _, v := range readings {
		if v == nil {
			continue
		}
		if *v <= 0 {
			httputil.BadRequest(w, "measurement values must be positive")
			return
		}
		hasReading = true
	}
	if !hasReading {
		httputil.BadRequest(w, "at least one measurement value is required")
		return
	}

	person := timeline.Person{BirthDate: birth, GestationalAgeAtBirth: ga, Sex: sex}
	m := timeline.Measurement{
		Date:                at,
		Weight:              req.Weight,
		Height:              req.Height,
		HeadCircumference:   req.HeadCircumference,
		ArmCircumference:    req.ArmCircumference,
		SubscapularSkinfold: req.SubscapularSkinfold,
		TricepsSkinfold:     req.TricepsSkinfold,
	}

	coord, ok := timeline.StitchedCoordinate(person, at)
	if !ok {
		httputil.BadRequest(w, timeline.ErrMissingDate.Error())
		return
	}

	evals, err := s.engine.EvaluateMeasurement(person, m, source)
	if err != nil {
		httputil.WriteJSONError(w, errorStatus(err), err.Error())
		return
	}
	if evals == nil {
		evals = []timeline.Evaluation{}
	}

	httputil.WriteJSONOK(w, EvaluateResponse{Coordinate: coord, Evaluations: evals})
}
