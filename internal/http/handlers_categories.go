package http

import (
	"net/http"

	"gestorebinder/internal/datasync"
	applog "gestorebinder/internal/log"
)

type createCategoryRequest struct {
	nameRequest
	BinderID int64 `json:"binderId" validate:"required,gt=0"`
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := s.store.GetCategory(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		s.writeStoreError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	name, ok := req.name(w)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	c, err := s.store.CreateCategory(ctx, userID, req.BinderID, name)
	if err != nil {
		s.writeStoreError(w, r, applog.OpCreate, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Category created",
		applog.NewFields().WithOperation(applog.OpCreate).WithEntity(c.BinderID, c.ID, 0).ToSlice()...)
	s.notify(ctx, userID, datasync.CreateCategory)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
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
	c, err := s.store.UpdateCategory(ctx, userID, id, name)
	if err != nil {
		s.writeStoreError(w, r, applog.OpUpdate, err)
		return
	}
	s.notify(ctx, userID, datasync.UpdateCategory)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx, userID := r.Context(), userIDFrom(r.Context())
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		s.writeStoreError(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Category deleted",
		applog.NewFields().WithOperation(applog.OpDelete).WithEntity(0, id, 0).ToSlice()...)
	s.notify(ctx, userID, datasync.DeleteCategory)
	writeOK(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListTransactions(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		s.writeStoreError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
