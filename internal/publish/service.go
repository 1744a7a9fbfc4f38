// Package publish orchestrates publishing sessions: batched note and asset
// uploads, hash-based asset deduplication, and manifest reconciliation.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/starford/othala/internal/batch"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/manifest"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/render"
	"github.com/starford/othala/internal/sessionstore"
	"github.com/starford/othala/internal/storage"
)

// Service coordinates session, storage, rendering, and manifest operations.
type Service struct {
	sessions    sessionstore.Repository
	manifests   manifest.Store
	reconciler  *manifest.Reconciler
	content     storage.ContentStore
	assets      storage.AssetStore
	renderer    render.Renderer
	hasher      checksum.Hasher
	concurrency int
	now         func() time.Time
}

// NewService creates the publishing service. concurrency bounds how many
// items of one batch are processed at once; non-positive values use the
// executor default.
func NewService(
	sessions sessionstore.Repository,
	manifests manifest.Store,
	content storage.ContentStore,
	assets storage.AssetStore,
	renderer render.Renderer,
	hasher checksum.Hasher,
	concurrency int,
) *Service {
	return &Service{
		sessions:    sessions,
		manifests:   manifests,
		reconciler:  manifest.NewReconciler(manifests),
		content:     content,
		assets:      assets,
		renderer:    renderer,
		hasher:      hasher,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// UploadNotes renders and stores a batch of documents, then reconciles the
// successful ones into the manifest. Per-document failures (slug validation,
// rendering, storage) are isolated in the result; a manifest load/save
// failure fails the whole call.
func (s *Service) UploadNotes(ctx context.Context, sessionID string, docs []models.Document, folderDisplayNames map[string]string, opts render.Options) (*models.UploadBatchResult, error) {
	session, err := s.uploadable(sessionID)
	if err != nil {
		return nil, err
	}

	results := batch.Run(ctx, s.concurrency, docs, func(ctx context.Context, doc models.Document) (models.ManifestPage, error) {
		return s.publishNote(ctx, doc, opts)
	})

	out := &models.UploadBatchResult{Errors: []models.ItemError{}}
	pages := make([]models.ManifestPage, 0, len(docs))
	for i, r := range results {
		if r.Err != nil {
			out.Errors = append(out.Errors, models.ItemError{ItemID: docs[i].ID, Message: r.Err.Error()})
			continue
		}
		pages = append(pages, r.Value)
	}
	out.Published = len(pages)

	if len(pages) > 0 {
		if _, err := s.reconciler.Reconcile(sessionID, pages, nil, folderDisplayNames); err != nil {
			return nil, err
		}
	}

	session.NotesProcessed += out.Published
	if err := s.touch(session); err != nil {
		return nil, err
	}

	slog.Info("notes uploaded",
		slog.String("session_id", sessionID),
		slog.Int("published", out.Published),
		slog.Int("failed", len(out.Errors)))
	return out, nil
}

// publishNote renders one document, stores the full page under its derived
// route, and returns its manifest entry.
func (s *Service) publishNote(ctx context.Context, doc models.Document, opts render.Options) (models.ManifestPage, error) {
	if err := manifest.ValidateSlug(doc.Slug); err != nil {
		return models.ManifestPage{}, err
	}
	route := manifest.RouteFor(doc.Folders, doc.Slug, doc.IsIndex)

	fragment, err := s.renderer.Render(ctx, doc, opts)
	if err != nil {
		return models.ManifestPage{}, err
	}
	if err := s.content.Save(route, render.Page(doc.Title, fragment), doc.Slug); err != nil {
		return models.ManifestPage{}, fmt.Errorf("store %s: %w", route, err)
	}

	publishedAt := doc.CreatedAt
	if publishedAt.IsZero() {
		publishedAt = s.now()
	}
	source := []byte(doc.Markdown)
	return models.ManifestPage{
		ID:                 doc.ID,
		Title:              doc.Title,
		Route:              route,
		Slug:               doc.Slug,
		Tags:               doc.Tags,
		PublishedAt:        publishedAt,
		VaultPath:          doc.VaultPath,
		SourceHash:         s.hasher.Sum(source),
		SourceSize:         int64(len(source)),
		IsIndex:            doc.IsIndex,
		FolderDisplayHints: doc.FolderDisplayNames,
	}, nil
}

// UploadAssets deduplicates a batch of binaries against the manifest by
// content hash, stores only unseen content, and reconciles the new records.
// Byte-identical content under a renamed or relocated path is skipped, not
// re-written; the existing record stays in the manifest untouched.
func (s *Service) UploadAssets(ctx context.Context, sessionID string, uploads []models.AssetUpload) (*models.UploadBatchResult, error) {
	session, err := s.uploadable(sessionID)
	if err != nil {
		return nil, err
	}

	current, err := s.manifests.Load()
	if err != nil {
		return nil, fmt.Errorf("manifest: load: %w", err)
	}

	// Known digests: the current lineage's records plus hashes claimed by
	// earlier items of this batch. A manifest owned by another session is a
	// dead lineage and does not shield its content from re-publishing.
	known := make(map[string]bool)
	if current != nil && current.SessionID == sessionID {
		for _, a := range current.Assets {
			known[a.Hash] = true
		}
	}
	var knownMu sync.Mutex

	type assetOutcome struct {
		record  *models.AssetRecord
		skipped bool
		hash    string
	}

	results := batch.Run(ctx, s.concurrency, uploads, func(_ context.Context, up models.AssetUpload) (assetOutcome, error) {
		hash := s.hasher.Sum(up.Content)

		knownMu.Lock()
		dup := known[hash]
		if !dup {
			known[hash] = true
		}
		knownMu.Unlock()

		if dup {
			slog.Debug("asset skipped as duplicate",
				slog.String("path", up.Path),
				slog.String("hash", checksum.Short(hash)))
			return assetOutcome{skipped: true, hash: hash}, nil
		}

		record, err := s.storeAsset(up, hash)
		if err != nil {
			knownMu.Lock()
			delete(known, hash)
			knownMu.Unlock()
			return assetOutcome{}, err
		}
		return assetOutcome{record: record}, nil
	})

	// Hashes with a durable copy behind them: the current lineage's records
	// plus everything this batch stored successfully.
	committed := make(map[string]bool)
	if current != nil && current.SessionID == sessionID {
		for _, a := range current.Assets {
			committed[a.Hash] = true
		}
	}
	for _, r := range results {
		if r.Err == nil && r.Value.record != nil {
			committed[r.Value.record.Hash] = true
		}
	}

	out := &models.UploadBatchResult{Errors: []models.ItemError{}}
	records := make([]models.AssetRecord, 0, len(uploads))
	for i, r := range results {
		switch {
		case r.Err != nil:
			out.Errors = append(out.Errors, models.ItemError{ItemID: uploads[i].Path, Message: r.Err.Error()})
		case r.Value.skipped:
			if !committed[r.Value.hash] {
				// The item this one deduplicated against failed to store, so
				// no durable copy exists. This item carries the same bytes;
				// store them now instead of mispresenting them as skipped.
				record, err := s.storeAsset(uploads[i], r.Value.hash)
				if err != nil {
					out.Errors = append(out.Errors, models.ItemError{ItemID: uploads[i].Path, Message: err.Error()})
					continue
				}
				committed[r.Value.hash] = true
				records = append(records, *record)
				continue
			}
			out.Skipped++
			out.SkippedAssets = append(out.SkippedAssets, uploads[i].Path)
		default:
			records = append(records, *r.Value.record)
		}
	}
	out.Published = len(records)

	if len(records) > 0 {
		if _, err := s.reconciler.Reconcile(sessionID, nil, records, nil); err != nil {
			return nil, err
		}
	}

	session.AssetsProcessed += out.Published + out.Skipped
	if err := s.touch(session); err != nil {
		return nil, err
	}

	slog.Info("assets uploaded",
		slog.String("session_id", sessionID),
		slog.Int("published", out.Published),
		slog.Int("skipped", out.Skipped),
		slog.Int("failed", len(out.Errors)))
	return out, nil
}

// storeAsset persists one binary and builds its manifest record.
func (s *Service) storeAsset(up models.AssetUpload, hash string) (*models.AssetRecord, error) {
	if err := s.assets.Save([]storage.AssetItem{{Path: up.Path, Content: up.Content}}); err != nil {
		return nil, fmt.Errorf("store %s: %w", up.Path, err)
	}
	mime := up.MimeType
	if mime == "" {
		mime = http.DetectContentType(up.Content)
	}
	return &models.AssetRecord{
		Path:       up.Path,
		Hash:       hash,
		Size:       int64(len(up.Content)),
		MimeType:   mime,
		UploadedAt: s.now(),
	}, nil
}

// Manifest returns the current stored manifest, or nil when none exists.
func (s *Service) Manifest(_ context.Context) (*models.Manifest, error) {
	return s.manifests.Load()
}
