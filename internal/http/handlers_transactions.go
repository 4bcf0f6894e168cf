package http

import (
	"net/http"
	"strings"

	"gestorebinder/internal/core"
	"gestorebinder/internal/datasync"
	applog "gestorebinder/internal/log"
)

// transactionRequest relies on core's JSON decoding for date and amount;
// their semantic checks run through TransactionInput.Validate.
type transactionRequest struct {
	Date        core.Date  `json:"date"`
	Description string     `json:"description" validate:"required,max=200"`
	Amount      core.Money `json:"amount"`
}

func (req transactionRequest) input(w http.ResponseWriter) (core.TransactionInput, bool) {
	in := core.TransactionInput{
		Date:        req.Date,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
	}
	if err := in.Validate(); err != nil {
		domainError(w, err)
		return core.TransactionInput{}, false
	}
	return in, true
}

type createTransactionRequest struct {
	transactionRequest
	CategoryID int64 `json:"categoryId" validate:"required,gt=0"`
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.store.GetTransaction(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		s.writeStoreError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	t, err := s.store.CreateTransaction(ctx, userID, req.CategoryID, in)
	if err != nil {
		s.writeStoreError(w, r, applog.OpCreate, err)
		return
	}
	fields := applog.NewFields().WithOperation(applog.OpCreate).WithEntity(0, t.CategoryID, t.ID)
	fields[applog.FieldAmountCents] = t.Amount.Cents
	applog.FromContext(ctx).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
	s.notify(ctx, userID, datasync.CreateTransaction)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input(w)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	t, err := s.store.UpdateTransaction(ctx, userID, id, in)
	if err != nil {
		s.writeStoreError(w, r, applog.OpUpdate, err)
		return
	}
	s.notify(ctx, userID, datasync.UpdateTransaction)
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		s.writeStoreError(w, r, applog.OpDelete, err)
		return
	}
	s.notify(ctx, userID, datasync.DeleteTransaction)
	writeOK(w)
}
