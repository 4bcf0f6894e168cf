package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"gestorebinder/internal/core"
	applog "gestorebinder/internal/log"
	"gestorebinder/internal/storage"
)

const maxRequestBody = 64 << 10

// errorResponse is the body of every non-2xx answer. Clients read Message.
type errorResponse struct {
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// writeStoreError maps storage errors to statuses. Missing and foreign
// resources are indistinguishable on purpose.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Risorsa non trovata")
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "Risorsa già esistente")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Storage operation failed",
			applog.FieldOperation, op, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Errore interno del server")
	}
}

// decodeJSON reads a bounded JSON body into dst and runs struct validation.
// On failure it writes the answer and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		msg := "Richiesta non valida"
		if errors.Is(err, core.ErrInvalidAmount) {
			msg = "Importo non valido"
		} else if errors.Is(err, core.ErrInvalidDate) {
			msg = "Data non valida"
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := errorResponse{Message: "Dati non validi"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Details[fe.Field()] = fmt.Sprintf("vincolo '%s' non rispettato", fe.Tag())
		}
		if len(verrs) > 0 {
			resp.Message = fmt.Sprintf("Campo %s non valido", verrs[0].Field())
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// domainError answers 422 for core validation failures.
func domainError(w http.ResponseWriter, err error) {
	msg := "Dati non validi"
	switch {
	case errors.Is(err, core.ErrEmptyName):
		msg = "Il nome è obbligatorio"
	case errors.Is(err, core.ErrNameTooLong):
		msg = "Il nome è troppo lungo"
	case errors.Is(err, core.ErrEmptyDescription):
		msg = "La descrizione è obbligatoria"
	case errors.Is(err, core.ErrZeroAmount), errors.Is(err, core.ErrInvalidAmount):
		msg = "Importo non valido"
	case errors.Is(err, core.ErrInvalidDate):
		msg = "Data non valida"
	}
	writeError(w, http.StatusUnprocessableEntity, msg)
}

// pathID parses the {id} URL parameter. Unparseable ids answer 404 like any
// unknown resource.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "Risorsa non trovata")
		return 0, false
	}
	return id, true
}
