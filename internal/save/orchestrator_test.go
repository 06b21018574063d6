package save

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestdesk/stager/internal/apiclient"
	"github.com/nestdesk/stager/internal/clean"
	"github.com/nestdesk/stager/internal/domain"
	"github.com/nestdesk/stager/internal/reconcile"
	"github.com/nestdesk/stager/internal/staging"
	"github.com/nestdesk/stager/internal/validation"
)

type MockUploader struct {
	UploadBatchFunc func(ctx context.Context, tenant, population string, files []apiclient.UploadFile, token string) ([]apiclient.UploadedFile, error)

	mu    sync.Mutex
	calls []string // population per call
}

func (m *MockUploader) UploadBatch(ctx context.Context, tenant, population string, files []apiclient.UploadFile, token string) ([]apiclient.UploadedFile, error) {
	m.mu.Lock()
	m.calls = append(m.calls, population)
	m.mu.Unlock()

	if m.UploadBatchFunc != nil {
		return m.UploadBatchFunc(ctx, tenant, population, files, token)
	}
	uploaded := make([]apiclient.UploadedFile, len(files))
	for i, f := range files {
		uploaded[i] = apiclient.UploadedFile{URL: "https://cdn/" + f.Filename}
	}
	return uploaded, nil
}

func (m *MockUploader) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type MockPersister struct {
	SavePropertyFunc func(ctx context.Context, tenant string, payload domain.PropertyPayload, token string) error

	mu       sync.Mutex
	payloads []domain.PropertyPayload
}

func (m *MockPersister) SaveProperty(ctx context.Context, tenant string, payload domain.PropertyPayload, token string) error {
	m.mu.Lock()
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()

	if m.SavePropertyFunc != nil {
		return m.SavePropertyFunc(ctx, tenant, payload, token)
	}
	return nil
}

type nopRenderer struct{}

func (nopRenderer) Render(data []byte) ([]byte, error) { return []byte("thumb"), nil }

func newFixture(uploader *MockUploader, persister *MockPersister) (*Orchestrator, *staging.Manager) {
	manager := staging.NewManager(staging.Options{
		ImagePolicy:    validation.NewPolicy([]string{".jpg", ".png"}, 10<<20),
		DocumentPolicy: validation.NewPolicy([]string{".pdf"}, 10<<20),
		RequiredTypes:  []string{"expose"},
		Renderer:       nopRenderer{},
	})
	orch := New(manager, reconcile.New(uploader), persister, clean.New())
	return orch, manager
}

func TestSaveHappyPath(t *testing.T) {
	uploader := &MockUploader{}
	persister := &MockPersister{}
	orch, manager := newFixture(uploader, persister)

	sess := manager.Open("acme", false,
		[]staging.PersistedImage{{URL: "https://cdn/u1", Main: true}}, nil)
	_, _, err := sess.AddImages([]staging.File{
		{Name: "f2.jpg", Data: []byte("two")},
		{Name: "f3.png", Data: []byte("three")},
	})
	require.NoError(t, err)
	_, err = sess.AddDocument("expose", "Expose <b>2026</b>", staging.File{Name: "e.pdf", Data: []byte("pdf")}, "")
	require.NoError(t, err)

	form := domain.PropertyForm{
		Title:       "Sunny <i>flat</i>",
		Description: "A **bright** flat.",
		Fields:      map[string]any{"rooms": 3},
	}

	payload, err := orch.Save(context.Background(), "acme", sess.ID, "tok", form)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn/u1", payload.MainImage)
	assert.Equal(t, []string{"https://cdn/u1", "https://cdn/f2.jpg", "https://cdn/f3.png"}, payload.Images)
	require.Len(t, payload.Documents, 1)
	assert.Equal(t, "expose", payload.Documents[0].TypeCode)
	assert.Equal(t, "Expose 2026", payload.Documents[0].DisplayName)
	assert.Equal(t, "https://cdn/e.pdf", payload.Documents[0].URL)
	assert.False(t, payload.Documents[0].CommittedAt.IsZero())

	assert.Equal(t, "Sunny flat", payload.Title)
	assert.Contains(t, payload.DescriptionHTML, "<strong>bright</strong>")

	// Images then documents, one batch each.
	assert.Equal(t, []string{"images", "documents"}, uploader.Calls())

	// Session is discarded after a successful save.
	_, err = manager.Get("acme", sess.ID)
	assert.ErrorIs(t, err, staging.ErrSessionNotFound)
}

func TestSaveUploadFailureAbortsBeforePersist(t *testing.T) {
	uploader := &MockUploader{
		UploadBatchFunc: func(context.Context, string, string, []apiclient.UploadFile, string) ([]apiclient.UploadedFile, error) {
			return nil, fmt.Errorf("%w: status 502", apiclient.ErrRequestFailed)
		},
	}
	persister := &MockPersister{}
	orch, manager := newFixture(uploader, persister)

	sess := manager.Open("acme", false, nil, nil)
	added, _, err := sess.AddImages([]staging.File{{Name: "a.jpg", Data: []byte("a")}})
	require.NoError(t, err)

	_, err = orch.Save(context.Background(), "acme", sess.ID, "", domain.PropertyForm{Title: "T"})
	assert.ErrorIs(t, err, reconcile.ErrUpload)
	assert.Empty(t, persister.payloads, "persistence must not be touched")

	// Zero of the staged assets transitioned to committed.
	snap := sess.Snapshot()
	assert.Equal(t, domain.StateStaged, snap.Gallery[0].State)
	assert.Empty(t, snap.Gallery[0].RemoteLocator)

	// The session is retained and unlocked for retry.
	require.NoError(t, sess.SetMain(added[0].ID))
	_, err = manager.Get("acme", sess.ID)
	assert.NoError(t, err)
}

func TestSaveDocumentFailureAfterImagesCommitted(t *testing.T) {
	uploader := &MockUploader{
		UploadBatchFunc: func(_ context.Context, _, population string, files []apiclient.UploadFile, _ string) ([]apiclient.UploadedFile, error) {
			if population == "documents" {
				return nil, fmt.Errorf("%w: status 500", apiclient.ErrRequestFailed)
			}
			uploaded := make([]apiclient.UploadedFile, len(files))
			for i, f := range files {
				uploaded[i] = apiclient.UploadedFile{URL: "https://cdn/" + f.Filename}
			}
			return uploaded, nil
		},
	}
	persister := &MockPersister{}
	orch, manager := newFixture(uploader, persister)

	sess := manager.Open("acme", false, nil, nil)
	_, _, err := sess.AddImages([]staging.File{{Name: "a.jpg", Data: []byte("a")}})
	require.NoError(t, err)
	_, err = sess.AddDocument("expose", "E", staging.File{Name: "e.pdf", Data: []byte("e")}, "")
	require.NoError(t, err)

	_, err = orch.Save(context.Background(), "acme", sess.ID, "", domain.PropertyForm{})
	assert.ErrorIs(t, err, reconcile.ErrUpload)
	assert.ErrorContains(t, err, "document reconciliation")
	assert.Empty(t, persister.payloads)

	// The fully successful image batch stays committed; the retry only
	// re-uploads the document.
	snap := sess.Snapshot()
	assert.Equal(t, domain.StateCommitted, snap.Gallery[0].State)
	assert.Equal(t, domain.StateStaged, snap.Documents[0].State)

	_, err = orch.Save(context.Background(), "acme", sess.ID, "", domain.PropertyForm{})
	assert.Error(t, err)
	calls := uploader.Calls()
	assert.Equal(t, []string{"images", "documents", "documents"}, calls)
}

func TestSavePersistFailureKeepsCommittedState(t *testing.T) {
	uploader := &MockUploader{}
	persister := &MockPersister{
		SavePropertyFunc: func(context.Context, string, domain.PropertyPayload, string) error {
			return errors.New("backend down")
		},
	}
	orch, manager := newFixture(uploader, persister)

	sess := manager.Open("acme", false, nil, nil)
	_, _, err := sess.AddImages([]staging.File{{Name: "a.jpg", Data: []byte("a")}})
	require.NoError(t, err)

	_, err = orch.Save(context.Background(), "acme", sess.ID, "", domain.PropertyForm{})
	assert.ErrorIs(t, err, ErrPersist)

	// Assets stay committed with valid locators; session survives.
	snap := sess.Snapshot()
	assert.Equal(t, domain.StateCommitted, snap.Gallery[0].State)
	assert.Equal(t, "https://cdn/a.jpg", snap.Gallery[0].RemoteLocator)

	// Retry persists without any new upload.
	persister.SavePropertyFunc = nil
	payload, err := orch.Save(context.Background(), "acme", sess.ID, "", domain.PropertyForm{})
	require.NoError(t, err)
	assert.Equal(t, []string{"images"}, uploader.Calls(), "no re-upload on retry")
	assert.Equal(t, []string{"https://cdn/a.jpg"}, payload.Images)
}

func TestSaveUnknownSession(t *testing.T) {
	orch, _ := newFixture(&MockUploader{}, &MockPersister{})

	_, err := orch.Save(context.Background(), "acme", "nope", "", domain.PropertyForm{})
	assert.ErrorIs(t, err, staging.ErrSessionNotFound)
}

func TestSaveEmptySession(t *testing.T) {
	uploader := &MockUploader{}
	persister := &MockPersister{}
	orch, manager := newFixture(uploader, persister)

	sess := manager.Open("acme", false, nil, nil)

	payload, err := orch.Save(context.Background(), "acme", sess.ID, "", domain.PropertyForm{Title: "Bare"})
	require.NoError(t, err)

	assert.Empty(t, uploader.Calls(), "nothing to upload")
	assert.Empty(t, payload.MainImage)
	assert.Equal(t, []string{}, payload.Images)
	assert.Empty(t, payload.Documents)
}
