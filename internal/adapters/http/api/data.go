package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/locapi/pkg/logger"
)

// handleListData handles GET /api/data.
func (s *Server) handleListData(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.ListLocationRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleCreateData handles POST /api/data.
func (s *Server) handleCreateData(w http.ResponseWriter, r *http.Request) {
	body, err := readObject(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	ctx := r.Context()
	res, err := s.deps.CreateLocation(ctx, SessionFromContext(ctx), body)
	if err != nil {
		s.logger.Error(ctx, "insert location failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleUpdateData handles PUT /api/data/{id}.
func (s *Server) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	body, err := readObject(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	res, err := s.deps.UpdateLocation(ctx, SessionFromContext(ctx), id, body)
	if err != nil {
		s.logger.Error(ctx, "update location failed", logger.String("id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
