package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Store is the manifest persistence port consumed by the reconciler.
// Load returns (nil, nil) when no manifest exists yet. Save performs a
// compare-and-swap on the manifest version and fails with
// apperr.ErrManifestConflict when a concurrent writer got there first.
type Store interface {
	Load() (*models.Manifest, error)
	Save(m *models.Manifest) error
	RebuildIndex(m *models.Manifest) error
}

// saveRetries bounds how often a reconcile reloads after losing a
// compare-and-swap race before giving up.
const saveRetries = 3

// Reconciler merges upload results into the stored manifest.
type Reconciler struct {
	store Store
	now   func() time.Time
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// Reconcile upserts newPages (by id) and newAssets (by path) into the
// manifest owned by sessionID and persists the result. A stored manifest
// owned by a different session is not merged into; the session starts a
// fresh lineage. Reconciling the same batch twice yields the same manifest.
func (r *Reconciler) Reconcile(sessionID string, newPages []models.ManifestPage, newAssets []models.AssetRecord, folderDisplayNames map[string]string) (*models.Manifest, error) {
	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		current, err := r.store.Load()
		if err != nil {
			return nil, fmt.Errorf("manifest: load: %w", err)
		}

		m := r.base(sessionID, current)
		m.FolderDisplayNames = mergeDisplayNames(m.FolderDisplayNames, folderDisplayNames, newPages)
		mergePages(m, newPages)
		mergeAssets(m, newAssets)
		m.LastUpdatedAt = r.now()

		if err := r.store.Save(m); err != nil {
			if errors.Is(err, apperr.ErrManifestConflict) {
				lastErr = err
				slog.Warn("manifest save lost version race, retrying",
					slog.String("session_id", sessionID),
					slog.Int("attempt", attempt+1))
				continue
			}
			return nil, fmt.Errorf("manifest: save: %w", err)
		}
		if err := r.store.RebuildIndex(m); err != nil {
			return nil, fmt.Errorf("manifest: rebuild index: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("manifest: save: %w", lastErr)
}

// base returns the manifest to merge into: the stored one when this session
// owns it, otherwise a fresh manifest that keeps the stored version so the
// compare-and-swap still guards the write.
func (r *Reconciler) base(sessionID string, current *models.Manifest) *models.Manifest {
	if current != nil && current.SessionID == sessionID {
		return current
	}
	var version int64
	if current != nil {
		version = current.Version
	}
	return &models.Manifest{
		SessionID: sessionID,
		Version:   version,
		CreatedAt: r.now(),
	}
}

// mergeDisplayNames layers folder labels: stored names first, provided names
// override them, and per-page hints fill entries still missing (first writer
// wins across the incoming page order).
func mergeDisplayNames(stored, provided map[string]string, pages []models.ManifestPage) map[string]string {
	out := make(map[string]string, len(stored)+len(provided))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range provided {
		out[k] = v
	}
	for _, p := range pages {
		for k, v := range p.FolderDisplayHints {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// mergePages upserts by page id (most recent write wins) and records route
// moves in the canonical map. The final list is ordered by publishedAt
// descending, ties broken by id for determinism.
func mergePages(m *models.Manifest, newPages []models.ManifestPage) {
	byID := make(map[string]int, len(m.Pages))
	for i, p := range m.Pages {
		byID[p.ID] = i
	}

	for _, p := range newPages {
		if i, ok := byID[p.ID]; ok {
			if old := m.Pages[i].Route; old != p.Route {
				recordRedirect(m, old, p.Route)
			}
			m.Pages[i] = p
			continue
		}
		m.Pages = append(m.Pages, p)
		byID[p.ID] = len(m.Pages) - 1
	}

	sort.SliceStable(m.Pages, func(i, j int) bool {
		a, b := m.Pages[i], m.Pages[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ID < b.ID
	})
}

// recordRedirect maps a retired route to its replacement, collapsing chains
// so every entry points at a live route. Self-mappings are never stored.
func recordRedirect(m *models.Manifest, oldRoute, newRoute string) {
	if oldRoute == newRoute {
		return
	}
	if m.CanonicalMap == nil {
		m.CanonicalMap = make(map[string]string)
	}
	for from, to := range m.CanonicalMap {
		if to == oldRoute {
			if from == newRoute {
				delete(m.CanonicalMap, from)
			} else {
				m.CanonicalMap[from] = newRoute
			}
		}
	}
	m.CanonicalMap[oldRoute] = newRoute
	delete(m.CanonicalMap, newRoute)
}

// mergeAssets upserts by logical path.
func mergeAssets(m *models.Manifest, newAssets []models.AssetRecord) {
	byPath := make(map[string]int, len(m.Assets))
	for i, a := range m.Assets {
		byPath[a.Path] = i
	}
	for _, a := range newAssets {
		if i, ok := byPath[a.Path]; ok {
			m.Assets[i] = a
			continue
		}
		m.Assets = append(m.Assets, a)
		byPath[a.Path] = len(m.Assets) - 1
	}
}
