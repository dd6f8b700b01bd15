package api

import (
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/percentile-data/growth.report/internal/config"
	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/refcache"
	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/testutil"
)

func floatPtr(f float64) *float64 {
	return &f
}

func setupTestServer(t *testing.T) (*Server, *http.ServeMux) {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	server := NewServer(database, refcache.New(refdata.LoadBundle), config.EmptyServerConfig())
	return server, server.ServeMux()
}

func createPersonViaAPI(t *testing.T, mux *http.ServeMux, body PersonRequest) db.Person {
	t.Helper()

	req := testutil.NewJSONRequest(t, "POST", "/api/persons", body)
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var person db.Person
	testutil.DecodeJSON(t, rec, &person)
	return person
}

func addMeasurementViaAPI(t *testing.T, mux *http.ServeMux, personID string, body MeasurementRequest) db.Measurement {
	t.Helper()

	req := testutil.NewJSONRequest(t, "POST", "/api/persons/"+personID+"/measurements", body)
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var measurement db.Measurement
	testutil.DecodeJSON(t, rec, &measurement)
	return measurement
}

func TestHealthEndpoint(t *testing.T) {
	_, mux := setupTestServer(t)

	req := testutil.NewTestRequest("GET", "/api/health")
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
	if body["version"] == "" {
		t.Error("health response missing version")
	}

	rec = testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest("POST", "/api/health"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen},
		{201, colorBoldGreen},
		{301, colorYellow},
		{404, colorBoldRed},
		{500, colorBoldRed},
	}

	for _, tt := range tests {
		got := statusCodeColor(tt.code)
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("statusCodeColor(%d) = %q, want prefix %q", tt.code, got, tt.want)
		}
	}

	if got := statusCodeColor(100); got != "100" {
		t.Errorf("statusCodeColor(100) = %q, want plain 100", got)
	}
}

func TestLoggingMiddlewarePreservesResponse(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := testutil.NewTestRecorder()
	handler.ServeHTTP(rec, testutil.NewTestRequest("GET", "/anything"))

	testutil.AssertStatusCode(t, rec.Code, http.StatusTeapot)
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q, middleware must not rewrite it", rec.Body.String())
	}
}
