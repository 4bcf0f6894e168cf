package http

import (
	"net/http"

	applog "gestorebinder/internal/log"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	u, ok, err := s.auth.verify(ctx, req.Username, req.Password)
	if err != nil {
		s.writeStoreError(w, r, applog.OpLogin, err)
		return
	}
	if !ok {
		logger.WarnContext(ctx, "Login rejected", applog.FieldOperation, applog.OpLogin)
		writeError(w, http.StatusUnauthorized, "Credenziali non valide")
		return
	}

	cookie, err := s.auth.issue(u)
	if err != nil {
		logger.ErrorContext(ctx, "Session issue failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Errore interno del server")
		return
	}
	http.SetCookie(w, cookie)
	logger.InfoContext(ctx, "Login succeeded", applog.FieldOperation, applog.OpLogin, applog.FieldUserID, u.ID)
	writeJSON(w, http.StatusOK, map[string]string{"username": u.Username})
}

// handleLogout always clears the cookie and answers 200. A valid session is
// also revoked so the token stops working before it expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if claims, err := s.auth.parse(r); err == nil {
		if err := s.auth.revoke(ctx, claims); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Session revocation failed",
				applog.FieldOperation, applog.OpLogout, applog.FieldError, err)
		}
	}
	http.SetCookie(w, s.auth.clearCookie())
	writeOK(w)
}
