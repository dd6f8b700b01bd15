package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/percentile-data/growth.report/internal/httputil"
	"github.com/percentile-data/growth.report/internal/refdata"
)

// ReferenceInfo summarizes one loadable reference bundle.
type ReferenceInfo struct {
	Sex     refdata.Sex    `json:"sex"`
	Source  refdata.Source `json:"source"`
	Metrics []string       `json:"metrics"`
}

// handleReferences handles GET /api/references - catalog of shipped bundles
func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sources := []refdata.Source{refdata.SourceWHO, refdata.SourceCDC, refdata.SourceFenton}
	sexes := []refdata.Sex{refdata.SexBoys, refdata.SexGirls}

	catalog := make([]ReferenceInfo, 0, len(sources)*len(sexes))
	for _, source := range sources {
		for _, sex := range sexes {
			bundle, err := s.cache.Load(sex, source)
			if err != nil {
				httputil.InternalServerError(w, fmt.Sprintf("failed to load %s reference data", refdata.Key(sex, source)))
				return
			}

			metrics := make([]string, 0, len(bundle.Datasets))
			for metric := range bundle.Datasets {
				metrics = append(metrics, string(metric))
			}
			sort.Strings(metrics)

			catalog = append(catalog, ReferenceInfo{Sex: sex, Source: source, Metrics: metrics})
		}
	}

	httputil.WriteJSONOK(w, catalog)
}

// handleReferenceDataset handles GET /api/references/{source}/{sex}/{metric}
func (s *Server) handleReferenceDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/references/"), "/")
	if len(parts) != 3 {
		httputil.BadRequest(w, "want /api/references/{source}/{sex}/{metric}")
		return
	}

	source, err := refdata.ParseSource(parts[0])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sex, err := refdata.ParseSex(parts[1])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	metric, err := refdata.ParseMetric(parts[2])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	bundle, err := s.cache.Load(sex, source)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load %s reference data", refdata.Key(sex, source)))
		return
	}
	ds, ok := bundle.Dataset(metric)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("no %s dataset published by %s", metric, source))
		return
	}

	httputil.WriteJSONOK(w, ds)
}
