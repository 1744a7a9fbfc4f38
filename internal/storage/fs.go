package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	contentDir = "content"
	assetDir   = "assets"
)

// rootDir anchors all site writes under one absolute directory and rejects
// paths that escape it.
type rootDir struct {
	root string
}

func newRootDir(root string) (rootDir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return rootDir{}, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return rootDir{}, fmt.Errorf("storage: create root: %w", err)
	}
	return rootDir{root: abs}, nil
}

// safePath resolves rel against the site root and rejects any result that
// escapes it (directory traversal).
func (d rootDir) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(d.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) && abs != d.root {
		return "", fmt.Errorf("storage: path escapes site root: %s", rel)
	}
	return abs, nil
}

// write atomically persists content: tmp file → fsync → rename.
func (d rootDir) write(rel string, content []byte) error {
	abs, err := d.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".othala-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

func (d rootDir) read(rel string) ([]byte, error) {
	abs, err := d.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// ContentFS stores rendered pages as content/<route>/index.html.
type ContentFS struct {
	dir rootDir
}

// NewContentFS creates a page store under siteRoot.
func NewContentFS(siteRoot string) (*ContentFS, error) {
	dir, err := newRootDir(siteRoot)
	if err != nil {
		return nil, err
	}
	return &ContentFS{dir: dir}, nil
}

// routeFile maps a published route to its on-disk document.
// "/a/b/" → content/a/b/index.html, "/" → content/index.html.
func routeFile(route string) string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return filepath.Join(contentDir, "index.html")
	}
	return filepath.Join(contentDir, filepath.FromSlash(trimmed), "index.html")
}

// Save writes the full HTML document for a route.
func (c *ContentFS) Save(route string, content []byte, _ string) error {
	return c.dir.write(routeFile(route), content)
}

// Read returns the stored document for a route.
func (c *ContentFS) Read(route string) ([]byte, error) {
	return c.dir.read(routeFile(route))
}

// AssetFS stores binaries as assets/<logical path>.
type AssetFS struct {
	dir rootDir
}

// NewAssetFS creates an asset store under siteRoot.
func NewAssetFS(siteRoot string) (*AssetFS, error) {
	dir, err := newRootDir(siteRoot)
	if err != nil {
		return nil, err
	}
	return &AssetFS{dir: dir}, nil
}

// assetPath maps a client-controlled logical path to its location under
// assets/. The logical path is cleaned before joining; anything that would
// climb out of the assets subtree is rejected, since the site root also holds
// the manifest and rendered pages.
func assetPath(logical string) (string, error) {
	if strings.Contains(logical, "\\") {
		return "", fmt.Errorf("storage: invalid asset path: %s", logical)
	}
	rel := path.Clean(strings.TrimPrefix(logical, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("storage: asset path escapes asset dir: %s", logical)
	}
	return filepath.Join(assetDir, filepath.FromSlash(rel)), nil
}

// Save persists every item; the first failure stops the batch and is
// returned to the caller.
func (a *AssetFS) Save(items []AssetItem) error {
	for _, item := range items {
		rel, err := assetPath(item.Path)
		if err != nil {
			return err
		}
		if err := a.dir.write(rel, item.Content); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the stored bytes for a logical asset path.
func (a *AssetFS) Read(logical string) ([]byte, error) {
	rel, err := assetPath(logical)
	if err != nil {
		return nil, err
	}
	return a.dir.read(rel)
}
