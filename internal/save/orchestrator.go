// Package save drives one full property save: snapshot, image
// reconciliation, document reconciliation, payload assembly, persistence.
package save

import (
	"context"
	"errors"
	"fmt"

	"github.com/nestdesk/stager/internal/clean"
	"github.com/nestdesk/stager/internal/domain"
	"github.com/nestdesk/stager/internal/logger"
	"github.com/nestdesk/stager/internal/reconcile"
	"github.com/nestdesk/stager/internal/staging"
)

// ErrPersist means reconciliation succeeded but the final create/update
// call failed. Uploaded assets stay committed in the session, so the next
// save attempt re-uploads nothing.
var ErrPersist = errors.New("property persistence failed")

// Persister is the external create/update property boundary.
type Persister interface {
	SaveProperty(ctx context.Context, tenant string, payload domain.PropertyPayload, token string) error
}

type Orchestrator struct {
	sessions   *staging.Manager
	reconciler *reconcile.Reconciler
	persister  Persister
	cleaner    *clean.Cleaner
}

func New(sessions *staging.Manager, reconciler *reconcile.Reconciler, persister Persister, cleaner *clean.Cleaner) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		reconciler: reconciler,
		persister:  persister,
		cleaner:    cleaner,
	}
}

// Save runs one save attempt for the session. There is no structured retry:
// any failure leaves the session state untouched (apart from assets already
// committed by a fully successful batch), so calling Save again naturally
// retries only what is still pending.
//
// The snapshot comes from the live session under its save lockout; no other
// copy of the staged state exists to diverge from.
func (o *Orchestrator) Save(ctx context.Context, tenant, sessionID, token string, form domain.PropertyForm) (domain.PropertyPayload, error) {
	sess, err := o.sessions.Get(tenant, sessionID)
	if err != nil {
		return domain.PropertyPayload{}, err
	}

	snapshot, err := sess.BeginSave()
	if err != nil {
		return domain.PropertyPayload{}, err
	}

	// Images first, then documents, sequentially: error reports stay
	// unambiguous about which population failed.
	images, err := o.reconciler.Images(ctx, tenant, snapshot.Gallery, sess, token)
	if err != nil {
		sess.EndSave()
		return domain.PropertyPayload{}, fmt.Errorf("image reconciliation: %w", err)
	}
	sess.Commit(images.Commits)

	documents, err := o.reconciler.Documents(ctx, tenant, snapshot.Documents, sess, token)
	if err != nil {
		sess.EndSave()
		return domain.PropertyPayload{}, fmt.Errorf("document reconciliation: %w", err)
	}
	sess.Commit(documents.Commits)

	payload, err := o.assemblePayload(form, images, documents)
	if err != nil {
		sess.EndSave()
		return domain.PropertyPayload{}, err
	}

	if err := o.persister.SaveProperty(ctx, tenant, payload, token); err != nil {
		// Session is retained: the committed locators survive for retry.
		sess.EndSave()
		logger.Log.Error("property save failed after successful reconciliation",
			"tenant", tenant, "session", sessionID, "error", err)
		return domain.PropertyPayload{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	// Save complete; the session and its remaining state are discarded.
	if err := o.sessions.Close(tenant, sessionID); err != nil {
		logger.Log.Error("failed to close session after save", "session", sessionID, "error", err)
	}

	logger.Log.Info("property saved",
		"tenant", tenant, "session", sessionID,
		"images", len(payload.Images), "documents", len(payload.Documents))
	return payload, nil
}

func (o *Orchestrator) assemblePayload(form domain.PropertyForm, images reconcile.ImageResult, documents reconcile.DocumentResult) (domain.PropertyPayload, error) {
	descriptionHTML, err := o.cleaner.DescriptionHTML(form.Description)
	if err != nil {
		return domain.PropertyPayload{}, fmt.Errorf("failed to render description: %w", err)
	}

	records := make([]domain.DocumentRecord, len(documents.Records))
	for i, r := range documents.Records {
		r.DisplayName = o.cleaner.Text(r.DisplayName)
		records[i] = r
	}

	locators := images.Locators
	if locators == nil {
		locators = []string{}
	}

	return domain.PropertyPayload{
		PropertyID:      form.PropertyID,
		Title:           o.cleaner.Text(form.Title),
		Description:     form.Description,
		DescriptionHTML: descriptionHTML,
		IsProject:       form.IsProject,
		Fields:          form.Fields,
		MainImage:       images.MainLocator,
		Images:          locators,
		Documents:       records,
	}, nil
}
