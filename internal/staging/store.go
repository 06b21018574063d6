// Package staging owns the mutable state of one property-edit session: the
// ordered image gallery and the document set. Every mutation goes through a
// Session method under its lock; consumers only ever see snapshots.
package staging

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nestdesk/stager/internal/domain"
	"github.com/nestdesk/stager/internal/handles"
	"github.com/nestdesk/stager/internal/logger"
	"github.com/nestdesk/stager/internal/validation"
)

// File is one candidate upload as received from the editor.
type File struct {
	Name string
	Data []byte
}

// RejectedFile reports a file that failed validation. Rejections are
// per-file; one bad file never blocks the rest of the batch.
type RejectedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Renderer produces a downscaled preview from image bytes.
type Renderer interface {
	Render(data []byte) ([]byte, error)
}

// PersistedImage carries an already durable gallery image into a new session.
type PersistedImage struct {
	URL     string `json:"url" validate:"required"`
	AltText string `json:"altText"`
	Title   string `json:"title"`
	Main    bool   `json:"main"`
}

// PersistedDocument carries an already durable document into a new session.
type PersistedDocument struct {
	TypeCode    string     `json:"typeCode"`
	DisplayName string     `json:"displayName"`
	URL         string     `json:"url" validate:"required"`
	CommittedAt *time.Time `json:"committedAt,omitempty"`
}

// Session is the single source of truth for one edit session. It is the
// sole writer of its gallery and document set; the save orchestrator writes
// through Commit and nothing else holds a parallel copy.
type Session struct {
	ID        string
	Tenant    string
	IsProject bool

	mu         sync.Mutex
	gallery    []*domain.StagedAsset
	documents  []*domain.StagedAsset
	blobs      *handles.Table
	required   map[string]bool
	saving     bool
	closed     bool
	lastActive time.Time

	imagePolicy    validation.Policy
	documentPolicy validation.Policy
	renderer       Renderer
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

// AddImages validates and stages each file. Valid files become staged
// assets immediately; thumbnails render in the background and attach when
// done. Invalid files come back in rejected without affecting the rest.
func (s *Session) AddImages(files []File) (added []domain.StagedAsset, rejected []RejectedFile, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	if s.saving {
		return nil, nil, ErrSaveInFlight
	}
	s.touch()

	wasEmpty := len(s.gallery) == 0

	for _, f := range files {
		if vErr := validation.ValidateFile(f.Name, int64(len(f.Data)), s.imagePolicy); vErr != nil {
			rejected = append(rejected, RejectedFile{Name: f.Name, Reason: vErr.Error()})
			filesRejected.Inc()
			continue
		}

		asset := &domain.StagedAsset{
			ID:            uuid.NewString(),
			Kind:          domain.KindImage,
			Filename:      f.Name,
			Size:          int64(len(f.Data)),
			SourceHandle:  s.blobs.Acquire(f.Data),
			PreviewHandle: s.blobs.Acquire(f.Data),
			State:         domain.StateStaged,
		}
		if wasEmpty && len(added) == 0 {
			asset.Main = true
		}
		s.gallery = append(s.gallery, asset)
		added = append(added, *asset)
		assetsStaged.WithLabelValues(string(domain.KindImage)).Inc()

		go s.renderThumbnail(asset.ID, f.Data)
	}

	if len(added) == 0 && len(rejected) > 0 {
		return nil, rejected, fmt.Errorf("%w: %s", ErrNoFilesAccepted, rejectedNames(rejected))
	}
	return added, rejected, nil
}

func rejectedNames(rejected []RejectedFile) string {
	names := make([]string, len(rejected))
	for i, r := range rejected {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}

// renderThumbnail runs outside the session lock. Completion is routed back
// to the asset by id; if the asset is gone by then the rendition is
// released immediately. Render failure is non-fatal, the full-size preview
// serves as fallback.
func (s *Session) renderThumbnail(assetID string, data []byte) {
	thumb, err := s.renderer.Render(data)
	if err != nil {
		logger.Log.Warn("thumbnail render failed, keeping full-size preview",
			"session", s.ID, "asset", assetID, "error", err)
		return
	}
	handleID := s.blobs.Acquire(thumb)

	s.mu.Lock()
	defer s.mu.Unlock()
	asset := s.findImage(assetID)
	if asset == nil || asset.State != domain.StateStaged || s.closed {
		// Removed, committed or torn down while rendering. Teardown's
		// ReleaseAll may already have swept the handle we just acquired.
		if err := s.blobs.Release(handleID); err != nil && !errors.Is(err, handles.ErrReleased) {
			logger.Log.Error("failed to release orphaned thumbnail", "handle", handleID, "error", err)
		}
		return
	}
	asset.ThumbnailHandle = handleID
}

func (s *Session) findImage(id string) *domain.StagedAsset {
	for _, a := range s.gallery {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Session) imageIndex(id string) int {
	for i, a := range s.gallery {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Reorder moves the asset to newIndex as a stable splice: every other
// asset keeps its relative position. newIndex is clamped to the gallery.
func (s *Session) Reorder(id string, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.saving {
		return ErrSaveInFlight
	}
	s.touch()

	from := s.imageIndex(id)
	if from == -1 {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	asset := s.gallery[from]
	s.gallery = append(s.gallery[:from], s.gallery[from+1:]...)

	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(s.gallery) {
		newIndex = len(s.gallery)
	}
	s.gallery = append(s.gallery[:newIndex], append([]*domain.StagedAsset{asset}, s.gallery[newIndex:]...)...)
	return nil
}

// SetMain designates the target as the gallery's main image. Unknown ids
// are a no-op; the current main is kept rather than cleared.
func (s *Session) SetMain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.saving {
		return ErrSaveInFlight
	}
	s.touch()

	target := s.findImage(id)
	if target == nil {
		return nil
	}
	for _, a := range s.gallery {
		a.Main = false
	}
	target.Main = true
	return nil
}

// Remove deletes the asset. Ephemeral handles are released only for staged
// assets; committed bytes are not session-owned. Removing the main image
// promotes the new first element.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.saving {
		return ErrSaveInFlight
	}
	s.touch()

	idx := s.imageIndex(id)
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	asset := s.gallery[idx]
	s.gallery = append(s.gallery[:idx], s.gallery[idx+1:]...)
	s.releaseAssetHandles(asset)

	if asset.Main && len(s.gallery) > 0 {
		s.gallery[0].Main = true
	}
	return nil
}

// AddDocument validates and stages a document. Required-slot documents are
// keyed by type code and replace any existing entry for that slot in place;
// existingID forces an in-place replacement of a specific entry (same id,
// new file, state reset to staged); anything else becomes a new entry.
func (s *Session) AddDocument(typeCode, displayName string, f File, existingID string) (domain.StagedAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.StagedAsset{}, ErrSessionClosed
	}
	if s.saving {
		return domain.StagedAsset{}, ErrSaveInFlight
	}
	s.touch()

	if err := validation.ValidateFile(f.Name, int64(len(f.Data)), s.documentPolicy); err != nil {
		filesRejected.Inc()
		return domain.StagedAsset{}, err
	}

	var target *domain.StagedAsset
	if existingID != "" {
		target = s.findDocument(existingID)
		if target == nil {
			return domain.StagedAsset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, existingID)
		}
	} else if s.required[typeCode] {
		target = s.findDocumentByType(typeCode)
	}

	if target != nil {
		s.releaseAssetHandles(target)
		target.Filename = f.Name
		target.Size = int64(len(f.Data))
		target.SourceHandle = s.blobs.Acquire(f.Data)
		target.Document = domain.DocumentMeta{TypeCode: typeCode, DisplayName: displayName}
		target.State = domain.StateStaged
		target.RemoteLocator = ""
		target.CommittedAt = nil
		assetsStaged.WithLabelValues(string(domain.KindDocument)).Inc()
		return *target, nil
	}

	asset := &domain.StagedAsset{
		ID:           uuid.NewString(),
		Kind:         domain.KindDocument,
		Filename:     f.Name,
		Size:         int64(len(f.Data)),
		SourceHandle: s.blobs.Acquire(f.Data),
		Document:     domain.DocumentMeta{TypeCode: typeCode, DisplayName: displayName},
		State:        domain.StateStaged,
	}
	s.documents = append(s.documents, asset)
	assetsStaged.WithLabelValues(string(domain.KindDocument)).Inc()
	return *asset, nil
}

func (s *Session) findDocument(id string) *domain.StagedAsset {
	for _, d := range s.documents {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (s *Session) findDocumentByType(typeCode string) *domain.StagedAsset {
	for _, d := range s.documents {
		if d.Document.TypeCode == typeCode {
			return d
		}
	}
	return nil
}

// RemoveDocument deletes the entry matching id, falling back to a required
// slot's type code.
func (s *Session) RemoveDocument(idOrTypeCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.saving {
		return ErrSaveInFlight
	}
	s.touch()

	for i, d := range s.documents {
		if d.ID == idOrTypeCode || d.Document.TypeCode == idOrTypeCode {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			s.releaseAssetHandles(d)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAssetNotFound, idOrTypeCode)
}

// SetImageMeta updates alt text and title of a gallery image.
func (s *Session) SetImageMeta(id string, meta domain.ImageMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.saving {
		return ErrSaveInFlight
	}
	s.touch()

	asset := s.findImage(id)
	if asset == nil {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	asset.Image = meta
	return nil
}

// Snapshot returns an immutable copy of the current state. It always
// reflects the most recent completed mutation.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Gallery:   make([]domain.StagedAsset, len(s.gallery)),
		Documents: make([]domain.StagedAsset, len(s.documents)),
	}
	for i, a := range s.gallery {
		snap.Gallery[i] = *a
	}
	for i, d := range s.documents {
		snap.Documents[i] = *d
	}
	return snap
}

// Blob reads a rendition's bytes by handle id, for previews and uploads.
func (s *Session) Blob(handleID string) ([]byte, error) {
	return s.blobs.Bytes(handleID)
}

// BeginSave locks out staging mutations for the duration of a save and
// returns the snapshot the save must work from. The caller owes a matching
// EndSave.
func (s *Session) BeginSave() (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Snapshot{}, ErrSessionClosed
	}
	if s.saving {
		return domain.Snapshot{}, ErrSaveInFlight
	}
	s.saving = true
	s.touch()
	return s.snapshotLocked(), nil
}

// EndSave lifts the staging lockout.
func (s *Session) EndSave() {
	s.mu.Lock()
	s.saving = false
	s.touch()
	s.mu.Unlock()
}

// Commit transitions the listed assets to committed with their durable
// locators and releases their ephemeral handles. It is called only after
// an entire batch succeeded; a failed batch commits nothing.
func (s *Session) Commit(commits []domain.AssetCommit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range commits {
		asset := s.findImage(c.AssetID)
		if asset == nil {
			asset = s.findDocument(c.AssetID)
		}
		if asset == nil {
			logger.Log.Error("commit for unknown asset", "session", s.ID, "asset", c.AssetID)
			continue
		}
		s.releaseAssetHandles(asset)
		now := time.Now().UTC()
		asset.State = domain.StateCommitted
		asset.RemoteLocator = c.Locator
		asset.CommittedAt = &now
	}
}

// releaseAssetHandles releases every live rendition of a staged asset and
// clears the handle fields. Committed assets hold no session-owned bytes.
func (s *Session) releaseAssetHandles(asset *domain.StagedAsset) {
	if asset.State != domain.StateStaged {
		return
	}
	for _, h := range []string{asset.SourceHandle, asset.ThumbnailHandle, asset.PreviewHandle} {
		if h == "" {
			continue
		}
		if err := s.blobs.Release(h); err != nil {
			logger.Log.Error("failed to release handle", "session", s.ID, "asset", asset.ID, "handle", h, "error", err)
		}
	}
	asset.SourceHandle = ""
	asset.PreviewHandle = ""
	asset.ThumbnailHandle = ""
}

// close tears the session down and releases every remaining blob.
// Committed locators are simply dropped; nothing needs uploading to undo.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.blobs.ReleaseAll()
	s.gallery = nil
	s.documents = nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
