package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"car-scout/apiclient"
	"car-scout/cache"
	"car-scout/models"
	"car-scout/services"
	"car-scout/storage"
	"car-scout/utils"
)

// Container holds the dependencies of the HTTP API.
type Container struct {
	Pipeline *services.Pipeline
	Insights *services.InsightService
	// Catalog is used when a request carries no references of its own.
	Catalog []models.ReferenceRecord
	// Enricher, when set, fetches references for listings the request and
	// the catalog leave uncovered.
	Enricher *apiclient.Enricher
	// Reports, when set, persists every completed run.
	Reports storage.ReportWriter
	// RunHistory caps how many recent runs GET /v1/runs can serve.
	RunHistory int
	Logger     *utils.Logger
}

const defaultRunHistory = 100

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	h := &rankHandler{
		c:    c,
		runs: cache.NewLRU[string, *models.RankReport](runHistory(c.RunHistory)),
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/rank", h.Rank).Methods("POST")
	v1.HandleFunc("/runs/{runId}", h.GetRun).Methods("GET")
	v1.HandleFunc("/runs/{runId}/insights", h.GetInsights).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	return r
}

func runHistory(n int) int {
	if n <= 0 {
		return defaultRunHistory
	}
	return n
}
