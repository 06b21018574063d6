// Package reconcile merges the three asset populations of a save — already
// persisted images, newly staged images and documents — into ordered lists
// of durable locators. Correlation between submitted files and returned
// locators is purely positional, which is why staging is locked while a
// reconciliation is in flight.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestdesk/stager/internal/apiclient"
	"github.com/nestdesk/stager/internal/domain"
	"github.com/nestdesk/stager/internal/logger"
)

var (
	// ErrUpload is a network or server failure during the batched upload.
	// Fatal to the save attempt; nothing transitions to committed.
	ErrUpload = errors.New("batch upload failed")
	// ErrMismatch means the boundary's response deviates from the
	// positional contract (wrong count or malformed shape). Handled like
	// an upload failure but logged distinctly, it indicates a protocol
	// defect rather than a flaky network.
	ErrMismatch = errors.New("upload response does not match submitted batch")
)

const (
	populationImages    = "images"
	populationDocuments = "documents"
)

// Uploader issues one batched upload per population.
type Uploader interface {
	UploadBatch(ctx context.Context, tenant, population string, files []apiclient.UploadFile, token string) ([]apiclient.UploadedFile, error)
}

// BlobSource reads staged bytes by handle id.
type BlobSource interface {
	Blob(handleID string) ([]byte, error)
}

// ImageResult is the merged outcome of an image reconciliation.
type ImageResult struct {
	MainLocator string
	Locators    []string
	Commits     []domain.AssetCommit
}

// DocumentResult is the merged outcome of a document reconciliation.
type DocumentResult struct {
	Records []domain.DocumentRecord
	Commits []domain.AssetCommit
}

type Reconciler struct {
	uploader Uploader
}

func New(uploader Uploader) *Reconciler {
	return &Reconciler{uploader: uploader}
}

// Images partitions the gallery into already committed and needs-upload,
// uploads the latter as one ordered batch, and merges the locators back in
// gallery order. On any failure no commit is produced.
func (r *Reconciler) Images(ctx context.Context, tenant string, gallery []domain.StagedAsset, blobs BlobSource, token string) (ImageResult, error) {
	pending, err := collectPending(gallery, blobs)
	if err != nil {
		return ImageResult{}, err
	}

	uploaded, err := r.upload(ctx, tenant, populationImages, pending, token)
	if err != nil {
		return ImageResult{}, err
	}

	// Merge: walk the gallery in order, resolving each asset to either its
	// existing locator or the next uploaded one. Relative order of both
	// partitions is preserved by construction.
	result := ImageResult{}
	next := 0
	locatorByID := make(map[string]string, len(gallery))
	for _, asset := range gallery {
		var locator string
		switch {
		case asset.State == domain.StateCommitted:
			locator = asset.RemoteLocator
		default:
			locator = uploaded[next].URL
			result.Commits = append(result.Commits, domain.AssetCommit{AssetID: asset.ID, Locator: locator})
			next++
		}
		result.Locators = append(result.Locators, locator)
		locatorByID[asset.ID] = locator
	}

	for _, asset := range gallery {
		if asset.Main {
			result.MainLocator = locatorByID[asset.ID]
			break
		}
	}
	if result.MainLocator == "" && len(result.Locators) > 0 {
		// The store guarantees exactly one main; fall back to the first
		// locator rather than failing the save.
		result.MainLocator = result.Locators[0]
	}

	return result, nil
}

// Documents reconciles the document set the same way, without a main
// concept; slot type codes travel with each record through the merge.
func (r *Reconciler) Documents(ctx context.Context, tenant string, documents []domain.StagedAsset, blobs BlobSource, token string) (DocumentResult, error) {
	pending, err := collectPending(documents, blobs)
	if err != nil {
		return DocumentResult{}, err
	}

	uploaded, err := r.upload(ctx, tenant, populationDocuments, pending, token)
	if err != nil {
		return DocumentResult{}, err
	}

	result := DocumentResult{}
	now := time.Now().UTC()
	next := 0
	for _, asset := range documents {
		record := domain.DocumentRecord{
			ID:          asset.ID,
			TypeCode:    asset.Document.TypeCode,
			DisplayName: asset.Document.DisplayName,
		}
		switch {
		case asset.State == domain.StateCommitted:
			record.URL = asset.RemoteLocator
			if asset.CommittedAt != nil {
				record.CommittedAt = *asset.CommittedAt
			} else {
				record.CommittedAt = now
			}
		default:
			record.URL = uploaded[next].URL
			record.CommittedAt = now
			result.Commits = append(result.Commits, domain.AssetCommit{AssetID: asset.ID, Locator: record.URL})
			next++
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}

type pendingFile struct {
	assetID string
	file    apiclient.UploadFile
}

// collectPending extracts the staged assets' bytes in population order. A
// staged asset whose bytes cannot be read means session state is corrupt;
// the save fails rather than silently dropping the asset.
func collectPending(assets []domain.StagedAsset, blobs BlobSource) ([]pendingFile, error) {
	var pending []pendingFile
	for _, asset := range assets {
		if !asset.Staged() {
			continue
		}
		data, err := blobs.Blob(asset.SourceHandle)
		if err != nil {
			return nil, fmt.Errorf("%w: staged asset %s has no readable source: %v", ErrUpload, asset.ID, err)
		}
		pending = append(pending, pendingFile{
			assetID: asset.ID,
			file:    apiclient.UploadFile{Filename: asset.Filename, Data: data},
		})
	}
	return pending, nil
}

// upload issues exactly one batch call for the pending files and enforces
// the positional contract: one record per submitted file, same order.
func (r *Reconciler) upload(ctx context.Context, tenant, population string, pending []pendingFile, token string) ([]apiclient.UploadedFile, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	files := make([]apiclient.UploadFile, len(pending))
	for i, p := range pending {
		files[i] = p.file
	}

	uploaded, err := r.uploader.UploadBatch(ctx, tenant, population, files, token)
	if err != nil {
		if errors.Is(err, apiclient.ErrBadResponse) {
			logger.Log.Error("upload response shape violates contract", "population", population, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if len(uploaded) != len(files) {
		logger.Log.Error("upload response count mismatch",
			"population", population, "submitted", len(files), "returned", len(uploaded))
		return nil, fmt.Errorf("%w: submitted %d files, got %d records", ErrMismatch, len(files), len(uploaded))
	}
	return uploaded, nil
}
