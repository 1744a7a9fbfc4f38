package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/manifest"
	"github.com/starford/othala/internal/publish"
	"github.com/starford/othala/internal/render"
	"github.com/starford/othala/internal/sse"
)

const (
	maxNotesBody  = 25 << 20 // 25 MB of markdown per batch
	maxAssetsBody = 50 << 20 // 50 MB of encoded binaries per batch
)

// Handler holds API route handlers.
type Handler struct {
	svc    *publish.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil (no event streaming).
func NewHandler(svc *publish.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

func (h *Handler) publishEvent(eventType, sessionID string, data map[string]any) {
	if h.broker != nil {
		h.broker.PublishSession(eventType, sessionID, data)
	}
}

// writeServiceError maps service errors onto HTTP statuses: unknown session
// to 404, terminal/incompatible session state and manifest version conflicts
// to 409, everything else to 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
	case errors.Is(err, apperr.ErrSessionInvalid):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrManifestConflict):
		writeJSON(w, http.StatusConflict, errorBody("manifest was modified concurrently, retry"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// CreateSession handles POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	session, err := h.svc.CreateSession(r.Context(), req.NotesPlanned, req.AssetsPlanned)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.publishEvent(sse.EventSessionCreated, session.ID, map[string]any{
		"notes_planned":  session.NotesPlanned,
		"assets_planned": session.AssetsPlanned,
	})
	writeJSON(w, http.StatusCreated, session)
}

// GetSession handles GET /sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UploadNotes handles POST /sessions/{id}/notes.
func (h *Handler) UploadNotes(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNotesBody)
	var req UploadNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Notes) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("notes are required"))
		return
	}

	sessionID := chi.URLParam(r, "id")
	result, err := h.svc.UploadNotes(r.Context(), sessionID, req.Notes,
		req.FolderDisplayNames, render.Options{RawHTML: req.Options.RawHTML})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.publishEvent(sse.EventNotesPublished, sessionID, map[string]any{
		"published": result.Published,
		"failed":    len(result.Errors),
	})
	writeJSON(w, http.StatusOK, result)
}

// UploadAssets handles POST /sessions/{id}/assets.
func (h *Handler) UploadAssets(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAssetsBody)
	var req UploadAssetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Assets) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("assets are required"))
		return
	}

	sessionID := chi.URLParam(r, "id")
	result, err := h.svc.UploadAssets(r.Context(), sessionID, req.Assets)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.publishEvent(sse.EventAssetsPublished, sessionID, map[string]any{
		"published": result.Published,
		"skipped":   result.Skipped,
		"failed":    len(result.Errors),
	})
	writeJSON(w, http.StatusOK, result)
}

// Finish handles POST /sessions/{id}/finish.
func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	var req FinishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sessionID := chi.URLParam(r, "id")
	session, err := h.svc.Finish(r.Context(), sessionID, req.NotesProcessed, req.AssetsProcessed, req.Routes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.publishEvent(sse.EventSessionFinished, sessionID, map[string]any{
		"notes_processed":  session.NotesProcessed,
		"assets_processed": session.AssetsProcessed,
	})
	writeJSON(w, http.StatusOK, session)
}

// Abort handles POST /sessions/{id}/abort.
func (h *Handler) Abort(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	session, err := h.svc.Abort(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.publishEvent(sse.EventSessionAborted, sessionID, nil)
	writeJSON(w, http.StatusOK, session)
}

// GetManifest handles GET /manifest.
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Manifest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no manifest published yet"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetTree handles GET /tree.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Manifest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no manifest published yet"))
		return
	}
	writeJSON(w, http.StatusOK, manifest.BuildTree(m))
}
