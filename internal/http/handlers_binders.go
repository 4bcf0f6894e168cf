package http

import (
	"net/http"
	"strings"

	"gestorebinder/internal/core"
	"gestorebinder/internal/datasync"
	applog "gestorebinder/internal/log"
)

type nameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// name validates and trims the name, answering 422 when it is unusable.
func (req nameRequest) name(w http.ResponseWriter) (string, bool) {
	if err := core.ValidateName(req.Name); err != nil {
		domainError(w, err)
		return "", false
	}
	return strings.TrimSpace(req.Name), true
}

func (s *Server) handleListBinders(w http.ResponseWriter, r *http.Request) {
	binders, err := s.store.ListBinders(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeStoreError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, binders)
}

func (s *Server) handleGetBinder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := s.store.GetBinder(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		s.writeStoreError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBinder(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	name, ok := req.name(w)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	b, err := s.store.CreateBinder(ctx, userID, name)
	if err != nil {
		s.writeStoreError(w, r, applog.OpCreate, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Binder created",
		applog.NewFields().WithOperation(applog.OpCreate).WithEntity(b.ID, 0, 0).ToSlice()...)
	s.notify(ctx, userID, datasync.CreateBinder)
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBinder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	name, ok := req.name(w)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	b, err := s.store.UpdateBinder(ctx, userID, id, name)
	if err != nil {
		s.writeStoreError(w, r, applog.OpUpdate, err)
		return
	}
	s.notify(ctx, userID, datasync.UpdateBinder)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBinder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	if err := s.store.DeleteBinder(ctx, userID, id); err != nil {
		s.writeStoreError(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Binder deleted",
		applog.NewFields().WithOperation(applog.OpDelete).WithEntity(id, 0, 0).ToSlice()...)
	s.notify(ctx, userID, datasync.DeleteBinder)
	writeOK(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cats, err := s.store.ListCategories(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		s.writeStoreError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}
