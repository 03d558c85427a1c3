package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"car-scout/apiclient"
	"car-scout/cache"
	"car-scout/config"
	"car-scout/models"
	"car-scout/services"
)

const maxRequestBytes = 8 << 20

type rankRequest struct {
	Listings    []*models.Listing        `json:"listings"`
	RawListings []*models.RawListing     `json:"raw_listings"`
	References  []models.ReferenceRecord `json:"references"`
	Priorities  models.FactorSet         `json:"priorities"`
}

type rankHandler struct {
	c    *Container
	runs cache.Store[string, *models.RankReport]
}

// Rank handles POST /v1/rank
func (h *rankHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	for i, l := range req.Listings {
		if l != nil {
			l.Seq = i
		}
	}

	if _, err := config.EffectiveRankWeights(h.c.Pipeline.Scoring().Rank.Weights, req.Priorities); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	catalog := req.References
	if len(catalog) == 0 {
		catalog = h.c.Catalog
	}
	if h.c.Enricher != nil {
		listings := req.Listings
		if len(req.RawListings) > 0 {
			listings, _ = services.NewCleaner(h.c.Logger).Clean(req.RawListings)
		}
		if keys := apiclient.KeysFor(listings); len(keys) > 0 {
			fetched, err := h.c.Enricher.Fetch(r.Context(), keys)
			if err != nil {
				h.c.Logger.Warn("[server] Enrichment incomplete: %v", err)
			}
			catalog = append(append([]models.ReferenceRecord(nil), catalog...), fetched...)
		}
	}

	var (
		report *models.RankReport
		err    error
	)
	if len(req.RawListings) > 0 {
		report, err = h.c.Pipeline.RunRaw(req.RawListings, catalog, req.Priorities)
	} else {
		report, err = h.c.Pipeline.Run(req.Listings, catalog, req.Priorities)
	}
	if errors.Is(err, config.ErrInvalidConfig) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.runs.Set(report.RunID, report)
	if h.c.Reports != nil {
		if err := h.c.Reports.WriteReport(r.Context(), report); err != nil {
			h.c.Logger.Error("[server] Persisting run %s failed: %v", report.RunID, err)
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// GetRun handles GET /v1/runs/{runId}
func (h *rankHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	report, ok := h.runs.Get(mux.Vars(r)["runId"])
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetInsights handles GET /v1/runs/{runId}/insights
func (h *rankHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	report, ok := h.runs.Get(mux.Vars(r)["runId"])
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, h.c.Insights.Generate(report))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
