// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("Cannot "+r.Method+" "+r.URL.Path))
		return
	}
	stats := map[string]interface{}{}
	if h.statsProvider != nil {
		stats = h.statsProvider.GetStats()
	}
	writeJSON(w, http.StatusOK, stats)
}
