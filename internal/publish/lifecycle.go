package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// CreateSession persists a new session in pending status.
func (s *Service) CreateSession(_ context.Context, notesPlanned, assetsPlanned int) (*models.Session, error) {
	now := s.now()
	session := &models.Session{
		ID:            uuid.New().String(),
		Status:        models.SessionPending,
		NotesPlanned:  notesPlanned,
		AssetsPlanned: assetsPlanned,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	slog.Info("session created",
		slog.String("session_id", session.ID),
		slog.Int("notes_planned", notesPlanned),
		slog.Int("assets_planned", assetsPlanned))
	return session, nil
}

// GetSession returns the session with the given id.
func (s *Service) GetSession(_ context.Context, id string) (*models.Session, error) {
	return s.sessions.FindByID(id)
}

// Finish transitions a session to its terminal finished state and records
// the final counters plus the optional full route inventory.
func (s *Service) Finish(_ context.Context, id string, notesProcessed, assetsProcessed int, routes []string) (*models.Session, error) {
	session, err := s.sessions.FindByID(id)
	if err != nil {
		return nil, err
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: cannot finish session %s in status %s",
			apperr.ErrSessionInvalid, id, session.Status)
	}

	session.Status = models.SessionFinished
	session.NotesProcessed = notesProcessed
	session.AssetsProcessed = assetsProcessed
	session.Routes = routes
	session.UpdatedAt = s.now()
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}
	slog.Info("session finished",
		slog.String("session_id", id),
		slog.Int("notes_processed", notesProcessed),
		slog.Int("assets_processed", assetsProcessed))
	return session, nil
}

// Abort transitions a session to aborted. Aborting an already aborted
// session is a no-op; aborting a finished session fails.
func (s *Service) Abort(_ context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionFinished {
		return nil, fmt.Errorf("%w: cannot abort finished session %s",
			apperr.ErrSessionInvalid, id)
	}
	if session.Status == models.SessionAborted {
		return session, nil
	}

	session.Status = models.SessionAborted
	session.UpdatedAt = s.now()
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}
	slog.Info("session aborted", slog.String("session_id", id))
	return session, nil
}

// uploadable loads a session and enforces that it can still accept uploads.
func (s *Service) uploadable(id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(id)
	if err != nil {
		return nil, err
	}
	if session.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s",
			apperr.ErrSessionInvalid, id, session.Status)
	}
	return session, nil
}

// touch activates a pending session and persists the updated counters.
func (s *Service) touch(session *models.Session) error {
	if session.Status == models.SessionPending {
		session.Status = models.SessionActive
	}
	session.UpdatedAt = s.now()
	return s.sessions.Save(session)
}
