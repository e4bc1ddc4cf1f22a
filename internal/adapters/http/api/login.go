package api

import (
	"fmt"
	"net/http"

	"github.com/okian/locapi/internal/domain/model"
)

// handleLogin handles POST /login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := readObject(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	email, err := credentialField(body, "email")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	password, err := credentialField(body, "password")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.deps.Login(r.Context(), model.Credentials{Email: email, Password: password})
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// credentialField returns body[name] as a string. A missing or null field is
// empty; any other non-string value is rejected.
func credentialField(body model.Record, name string) (string, error) {
	switch v := body[name].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", ErrBadRequest, name)
	}
}
