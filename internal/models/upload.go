package models

import "time"

// Document is one renderable note received from the vault client.
// Title, slug and folder placement arrive pre-resolved; the server never
// parses frontmatter.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Folders   []string  `json:"folders,omitempty"`
	VaultPath string    `json:"vault_path"`
	Markdown  string    `json:"markdown"`
	Tags      []string  `json:"tags,omitempty"`
	IsIndex   bool      `json:"is_index,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	// FolderDisplayNames maps route prefixes to human labels for folders on
	// this document's path (e.g. "/meeting-notes/" → "Meeting Notes").
	FolderDisplayNames map[string]string `json:"folder_display_names,omitempty"`
}

// AssetUpload is one binary asset submitted for publishing.
type AssetUpload struct {
	Path     string `json:"path"`
	Content  []byte `json:"content"`
	MimeType string `json:"mime_type,omitempty"`
}
