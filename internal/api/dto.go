package api

import (
	"github.com/starford/othala/internal/models"
)

// CreateSessionRequest is the body for POST /sessions.
type CreateSessionRequest struct {
	NotesPlanned  int `json:"notes_planned"`
	AssetsPlanned int `json:"assets_planned"`
}

// RenderOptions carries per-call rendering flags from the client.
type RenderOptions struct {
	RawHTML bool `json:"raw_html"`
}

// UploadNotesRequest is the body for POST /sessions/{id}/notes.
type UploadNotesRequest struct {
	Notes              []models.Document `json:"notes"`
	FolderDisplayNames map[string]string `json:"folder_display_names,omitempty"`
	Options            RenderOptions     `json:"options"`
}

// UploadAssetsRequest is the body for POST /sessions/{id}/assets.
// Asset content is transported base64-encoded.
type UploadAssetsRequest struct {
	Assets []models.AssetUpload `json:"assets"`
}

// FinishRequest is the body for POST /sessions/{id}/finish.
type FinishRequest struct {
	NotesProcessed  int      `json:"notes_processed"`
	AssetsProcessed int      `json:"assets_processed"`
	Routes          []string `json:"routes,omitempty"`
}

// SessionResponse is the session representation returned by the API.
type SessionResponse = models.Session

// UploadResponse is the per-call batch outcome returned by upload routes.
type UploadResponse = models.UploadBatchResult
