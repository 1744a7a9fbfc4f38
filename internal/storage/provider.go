// Package storage implements the published-site persistence layer: rendered
// pages, binary assets, and the site manifest, all under one site root.
package storage

// ContentStore persists rendered pages keyed by their published route.
type ContentStore interface {
	// Save writes the full HTML document for a route.
	Save(route string, content []byte, slug string) error
	// Read returns the stored document for a route.
	Read(route string) ([]byte, error)
}

// AssetItem is one binary to persist.
type AssetItem struct {
	Path    string
	Content []byte
}

// AssetStore persists asset byte buffers by logical path.
type AssetStore interface {
	Save(items []AssetItem) error
}
