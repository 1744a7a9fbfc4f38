package models

import "time"

// Manifest is the reconciled index of everything currently published.
// There is one manifest per publishing lineage; a session that does not own
// the stored manifest starts a fresh one.
type Manifest struct {
	SessionID string `json:"session_id"`
	// Version is incremented by every successful save. Writers must present
	// the version they loaded; a mismatch fails the save (compare-and-swap).
	Version            int64             `json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	LastUpdatedAt      time.Time         `json:"last_updated_at"`
	Pages              []ManifestPage    `json:"pages"`
	Assets             []AssetRecord     `json:"assets"`
	FolderDisplayNames map[string]string `json:"folder_display_names,omitempty"`
	// CanonicalMap maps retired routes to their current replacement.
	// It never maps a route to itself.
	CanonicalMap map[string]string `json:"canonical_map,omitempty"`
}

// PageByID returns the page with the given id, or nil.
func (m *Manifest) PageByID(id string) *ManifestPage {
	for i := range m.Pages {
		if m.Pages[i].ID == id {
			return &m.Pages[i]
		}
	}
	return nil
}

// AssetByHash returns the first asset record with the given content hash, or nil.
func (m *Manifest) AssetByHash(hash string) *AssetRecord {
	for i := range m.Assets {
		if m.Assets[i].Hash == hash {
			return &m.Assets[i]
		}
	}
	return nil
}

// ManifestPage is one published document.
type ManifestPage struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Route       string    `json:"route"`
	Slug        string    `json:"slug"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	VaultPath   string    `json:"vault_path"`
	SourceHash  string    `json:"source_hash,omitempty"`
	SourceSize  int64     `json:"source_size,omitempty"`
	// IsIndex marks a custom folder index page. Index pages replace the
	// auto-generated folder listing and are excluded from the route tree.
	IsIndex bool `json:"is_index,omitempty"`

	// FolderDisplayHints carries per-page folder label hints (route prefix →
	// human label) from the upload payload into reconciliation. Not persisted.
	FolderDisplayHints map[string]string `json:"-"`
}

// AssetRecord is one published binary.
type AssetRecord struct {
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ItemError reports a per-item failure inside a batch.
type ItemError struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

// UploadBatchResult is the outcome of one upload call.
// Published + Skipped + len(Errors) always equals the submitted batch size.
type UploadBatchResult struct {
	Published     int         `json:"published"`
	Skipped       int         `json:"skipped"`
	SkippedAssets []string    `json:"skipped_assets,omitempty"`
	Errors        []ItemError `json:"errors"`
}
