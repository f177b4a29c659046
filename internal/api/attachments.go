package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadMedia handles POST /api/directories/{type}/entries/{key}/media
// (multipart/form-data, field "file"). The file lands in the entry's folder.
//
//	@Summary		Upload a file next to an entry
//	@Tags			entries
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			type	path		string	true	"Directory type"
//	@Param			key		path		string	true	"Entry key"
//	@Param			file	formData	file	true	"File to store"
//	@Success		201		{object}	MediaUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directories/{type}/entries/{key}/media [post]
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	p, err := h.svc.AddMedia(r.Context(), chi.URLParam(r, "type"), chi.URLParam(r, "key"), header.Filename, file)
	if err != nil {
		writeError(w, "upload media", err)
		return
	}

	writeJSON(w, http.StatusCreated, MediaUploadResponse{
		Name: header.Filename,
		Path: p,
		Size: header.Size,
	})
}
