package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/manifest"
	"github.com/starford/othala/internal/models"
)

const (
	manifestFile = "manifest.json"
	treeFile     = "tree.json"
)

// ManifestFS persists the manifest as a JSON file under the site root and
// regenerates derived structures (route tree, folder index pages) from it.
// Save is guarded by a version compare-and-swap so concurrent read-modify-
// write cycles against the same file cannot silently overwrite each other.
type ManifestFS struct {
	dir rootDir
	mu  sync.Mutex
}

// NewManifestFS creates a manifest store under siteRoot.
func NewManifestFS(siteRoot string) (*ManifestFS, error) {
	dir, err := newRootDir(siteRoot)
	if err != nil {
		return nil, err
	}
	return &ManifestFS{dir: dir}, nil
}

// Path returns the absolute location of the manifest file, for the watcher.
func (s *ManifestFS) Path() string {
	return filepath.Join(s.dir.root, manifestFile)
}

// Load returns the stored manifest, or (nil, nil) when none exists yet.
func (s *ManifestFS) Load() (*models.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *ManifestFS) loadLocked() (*models.Manifest, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read manifest: %w", err)
	}
	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("storage: decode manifest: %w", err)
	}
	return &m, nil
}

// Save persists m if its version matches the stored one, then bumps the
// version. A mismatch fails with apperr.ErrManifestConflict and writes
// nothing.
func (s *ManifestFS) Save(m *models.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked()
	if err != nil {
		return err
	}
	var stored int64
	if current != nil {
		stored = current.Version
	}
	if m.Version != stored {
		return fmt.Errorf("storage: save manifest: %w: have %d, stored %d",
			apperr.ErrManifestConflict, m.Version, stored)
	}
	m.Version++

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode manifest: %w", err)
	}
	if err := s.dir.write(manifestFile, data); err != nil {
		m.Version--
		return err
	}
	return nil
}

// RebuildIndex regenerates the derived structures from the final manifest:
// the route tree consumed by the navigation UI, and a listing page for every
// folder that has no custom index page. Regeneration is full, not
// incremental, so it is idempotent for a given manifest.
func (s *ManifestFS) RebuildIndex(m *models.Manifest) error {
	tree := manifest.BuildTree(m)

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode tree: %w", err)
	}
	if err := s.dir.write(treeFile, data); err != nil {
		return err
	}

	customIndex := make(map[string]bool)
	for _, p := range m.Pages {
		if p.IsIndex {
			customIndex[p.Route] = true
		}
	}
	return s.writeFolderIndexes(tree, customIndex)
}

func (s *ManifestFS) writeFolderIndexes(node *manifest.TreeNode, customIndex map[string]bool) error {
	if node.Folder && node.Route != "/" && !customIndex[node.Route] {
		page := folderIndexHTML(node)
		if err := s.dir.write(routeFile(node.Route), page); err != nil {
			return err
		}
	}
	for _, c := range node.Children {
		if c.Folder {
			if err := s.writeFolderIndexes(c, customIndex); err != nil {
				return err
			}
		}
	}
	return nil
}

// folderIndexHTML renders a minimal listing page for a folder without a
// custom index. Visual styling belongs to the presentation layer.
func folderIndexHTML(node *manifest.TreeNode) []byte {
	var b []byte
	b = append(b, "<!doctype html>\n<html>\n<head><meta charset=\"utf-8\"><title>"...)
	b = append(b, html.EscapeString(node.Label)...)
	b = append(b, "</title></head>\n<body>\n<h1>"...)
	b = append(b, html.EscapeString(node.Label)...)
	b = append(b, "</h1>\n<ul>\n"...)
	for _, c := range node.Children {
		b = append(b, "<li><a href=\""...)
		b = append(b, html.EscapeString(c.Route)...)
		b = append(b, "\">"...)
		b = append(b, html.EscapeString(c.Label)...)
		b = append(b, "</a></li>\n"...)
	}
	b = append(b, "</ul>\n</body>\n</html>\n"...)
	return b
}
