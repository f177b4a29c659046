package api

import (
	"github.com/starford/flexdir/internal/changelog"
	"github.com/starford/flexdir/internal/entryservice"
)

// DirectorySummary describes one directory type (aliased from the domain layer).
type DirectorySummary = entryservice.DirectorySummary

// EntryDetail is one record with its checksum (aliased from the domain layer).
type EntryDetail = entryservice.EntryDetail

// DirectoryListResponse wraps the enabled directory types.
type DirectoryListResponse struct {
	Directories []DirectorySummary `json:"directories" validate:"required"`
	Count       int                `json:"count" example:"2" validate:"required"`
}

// EntryListResponse wraps paginated entry listings.
type EntryListResponse struct {
	Entries []EntryDetail `json:"entries" validate:"required"`
	Total   int           `json:"total" example:"42" validate:"required"`
}

// ChangeListResponse wraps paginated change history.
type ChangeListResponse struct {
	Changes []changelog.Row `json:"changes" validate:"required"`
	Total   int             `json:"total" example:"7" validate:"required"`
}

// MediaUploadResponse is returned after a successful media upload.
type MediaUploadResponse struct {
	Name string `json:"name" example:"photo.jpg" validate:"required"`
	Path string `json:"path" example:"data/contacts/ada/photo.jpg" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
}
