package handler

import "net/http"

// IndexHandler serves the unauthenticated liveness/identity probes.
type IndexHandler struct{}

func NewIndexHandler() *IndexHandler {
	return &IndexHandler{}
}

// HandleRoot identifies the service.
//
// HTTP: GET /
func (h *IndexHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Agent For You API",
		"status":  "ok",
	})
}

// HandleHealth is the liveness probe.
//
// HTTP: GET /health
func (h *IndexHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
