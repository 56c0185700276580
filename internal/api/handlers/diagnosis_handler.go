package handlers

import (
	"net/http"

	"github.com/zatekoja/healthcarecommons/internal/application/services"
)

// DiagnosisHandler serves symptom to specialty recommendations
type DiagnosisHandler struct {
	taxonomy *services.SymptomTaxonomy
}

// NewDiagnosisHandler creates a new diagnosis handler
func NewDiagnosisHandler(taxonomy *services.SymptomTaxonomy) *DiagnosisHandler {
	if taxonomy == nil {
		taxonomy = services.NewSymptomTaxonomy()
	}
	return &DiagnosisHandler{taxonomy: taxonomy}
}

// Diagnose handles GET /api/diagnosis?symptoms=a,b
func (h *DiagnosisHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	symptoms := splitParam(r.URL.Query()["symptoms"])
	if len(symptoms) == 0 {
		respondWithError(w, http.StatusBadRequest, "at least one symptom is required")
		return
	}

	respondWithJSON(w, http.StatusOK, h.taxonomy.Diagnose(symptoms))
}

// ListSymptoms handles GET /api/symptoms
func (h *DiagnosisHandler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms := h.taxonomy.CommonSymptoms()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symptoms": symptoms,
		"count":    len(symptoms),
	})
}
