package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flexdir/internal/entryservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *entryservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *entryservice.Service) *Handler {
	return &Handler{svc: svc}
}

func page(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// decodeFields reads a JSON object body.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("body must be a JSON object"))
		return nil, false
	}
	return fields, true
}

func setETag(w http.ResponseWriter, d *EntryDetail) {
	w.Header().Set("ETag", `"`+d.Checksum+`"`)
}

// ListDirectories handles GET /api/directories.
//
//	@Summary		List enabled directory types
//	@Tags			directories
//	@Produce		json
//	@Success		200	{object}	DirectoryListResponse
//	@Security		BearerAuth
//	@Router			/directories [get]
func (h *Handler) ListDirectories(w http.ResponseWriter, r *http.Request) {
	dirs := h.svc.ListDirectories(r.Context())
	writeJSON(w, http.StatusOK, DirectoryListResponse{Directories: dirs, Count: len(dirs)})
}

// ListEntries handles GET /api/directories/{type}/entries.
//
//	@Summary		List the entries of a directory
//	@Tags			entries
//	@Produce		json
//	@Param			type	path		string	true	"Directory type"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	EntryListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	entries, total, err := h.svc.ListEntries(r.Context(), chi.URLParam(r, "type"), limit, offset)
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Total: total})
}

// GetEntry handles GET /api/directories/{type}/entries/{key}.
//
//	@Summary		Get one entry
//	@Tags			entries
//	@Produce		json
//	@Param			type	path		string	true	"Directory type"
//	@Param			key		path		string	true	"Entry key"
//	@Success		200		{object}	EntryDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/entries/{key} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, "get entry", err)
		return
	}
	setETag(w, d)
	writeJSON(w, http.StatusOK, d)
}

// CreateEntry handles POST /api/directories/{type}/entries. The key comes
// from the type's natural key field or is generated.
//
//	@Summary		Create an entry
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string			true	"Directory type"
//	@Param			body	body		map[string]any	true	"Entry fields"
//	@Success		201		{object}	EntryDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/entries [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	d, _, err := h.svc.CreateOrUpdate(r.Context(), chi.URLParam(r, "type"), "", fields, "")
	if err != nil {
		writeError(w, "create entry", err)
		return
	}
	setETag(w, d)
	writeJSON(w, http.StatusCreated, d)
}

// UpdateEntry handles PUT /api/directories/{type}/entries/{key}. Submitted
// fields are merged into the stored entry; an unknown key is created.
//
//	@Summary		Update an entry with optimistic concurrency
//	@Tags			entries
//	@Accept			json
//	@Produce		json
//	@Param			type		path		string			true	"Directory type"
//	@Param			key			path		string			true	"Entry key"
//	@Param			If-Match	header		string			false	"Entry checksum for optimistic concurrency"
//	@Param			body		body		map[string]any	true	"Fields to merge"
//	@Success		200			{object}	EntryDetail
//	@Success		201			{object}	EntryDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/entries/{key} [put]
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	d, created, err := h.svc.CreateOrUpdate(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "key"), fields, ifMatch)
	if err != nil {
		writeError(w, "update entry", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	setETag(w, d)
	writeJSON(w, status, d)
}

// DeleteEntry handles DELETE /api/directories/{type}/entries/{key}.
//
//	@Summary		Delete an entry
//	@Tags			entries
//	@Param			type	path	string	true	"Directory type"
//	@Param			key		path	string	true	"Entry key"
//	@Success		204		"Entry deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/entries/{key} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveEntry(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "key")); err != nil {
		writeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChanges handles GET /api/directories/{type}/changes.
//
//	@Summary		Persisted change history of a directory
//	@Tags			directories
//	@Produce		json
//	@Param			type	path		string	true	"Directory type"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ChangeListResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/changes [get]
func (h *Handler) ListChanges(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	rows, total, err := h.svc.Changes(r.Context(), chi.URLParam(r, "type"), limit, offset)
	if err != nil {
		writeError(w, "list changes", err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeListResponse{Changes: rows, Total: total})
}

// Reload handles POST /api/directories/{type}/reload.
//
//	@Summary		Rebuild a directory from its blueprint and storage
//	@Tags			directories
//	@Produce		json
//	@Param			type	path		string	true	"Directory type"
//	@Success		200		{object}	DirectorySummary
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Reload(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, "reload", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
