package apperr

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionInvalid   = errors.New("session in invalid state")
	ErrManifestConflict = errors.New("manifest version conflict")
	ErrInvalidSlug      = errors.New("invalid slug")
)
