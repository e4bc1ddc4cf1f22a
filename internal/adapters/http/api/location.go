package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/locapi/pkg/logger"
)

// handleGetLocation handles GET /api/location/{id}. An unknown id yields
// 200 with a null body.
func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	rec, err := s.deps.GetLocation(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "get location failed", logger.String("id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteLocation handles DELETE /api/location/{id}. It removes the
// pending request, not the location itself.
func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	res, err := s.deps.DeleteLocationRequest(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
