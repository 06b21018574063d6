package staging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nestdesk/stager/internal/domain"
	"github.com/nestdesk/stager/internal/handles"
	"github.com/nestdesk/stager/internal/logger"
	"github.com/nestdesk/stager/internal/validation"
)

// Options configures new sessions.
type Options struct {
	ImagePolicy          validation.Policy
	DocumentPolicy       validation.Policy
	RequiredTypes        []string
	RequiredProjectTypes []string
	Renderer             Renderer
}

// Manager owns all live edit sessions. Each session belongs to exactly one
// editor; the manager only hands out pointers and tears sessions down.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     Options
}

func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Open creates a session, pre-populated with the property's already
// persisted assets. Persisted entries enter as committed with fresh session
// ids and no handles; their bytes are not session-owned.
func (m *Manager) Open(tenant string, isProject bool, images []PersistedImage, documents []PersistedDocument) *Session {
	required := make(map[string]bool, len(m.opts.RequiredTypes)+len(m.opts.RequiredProjectTypes))
	for _, t := range m.opts.RequiredTypes {
		required[t] = true
	}
	if isProject {
		for _, t := range m.opts.RequiredProjectTypes {
			required[t] = true
		}
	}

	s := &Session{
		ID:             uuid.NewString(),
		Tenant:         tenant,
		IsProject:      isProject,
		blobs:          handles.NewTable(),
		required:       required,
		lastActive:     time.Now(),
		imagePolicy:    m.opts.ImagePolicy,
		documentPolicy: m.opts.DocumentPolicy,
		renderer:       m.opts.Renderer,
	}

	mainSeen := false
	for _, img := range images {
		asset := &domain.StagedAsset{
			ID:            uuid.NewString(),
			Kind:          domain.KindImage,
			Image:         domain.ImageMeta{AltText: img.AltText, Title: img.Title},
			State:         domain.StateCommitted,
			RemoteLocator: img.URL,
		}
		if img.Main && !mainSeen {
			asset.Main = true
			mainSeen = true
		}
		s.gallery = append(s.gallery, asset)
	}
	if !mainSeen && len(s.gallery) > 0 {
		s.gallery[0].Main = true
	}

	for _, doc := range documents {
		s.documents = append(s.documents, &domain.StagedAsset{
			ID:            uuid.NewString(),
			Kind:          domain.KindDocument,
			Document:      domain.DocumentMeta{TypeCode: doc.TypeCode, DisplayName: doc.DisplayName},
			State:         domain.StateCommitted,
			RemoteLocator: doc.URL,
			CommittedAt:   doc.CommittedAt,
		})
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	sessionsActive.Inc()

	return s
}

// Get looks up a live session scoped to the tenant.
func (m *Manager) Get(tenant, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Tenant != tenant {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close tears down the session and releases all its ephemeral handles.
func (m *Manager) Close(tenant, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && s.Tenant == tenant {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok || s.Tenant != tenant {
		return ErrSessionNotFound
	}
	s.close()
	sessionsActive.Dec()
	return nil
}

// StartJanitor launches the background loop that removes sessions idle
// longer than ttl. Abandoned sessions would otherwise leak their staged
// bytes for the life of the process.
func (m *Manager) StartJanitor(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("session janitor started", "ttl", ttl, "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.expireIdle(ttl)
			case <-ctx.Done():
				logger.Log.Info("session janitor stopped")
				return
			}
		}
	}()
}

func (m *Manager) expireIdle(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		sessionsActive.Dec()
		sessionsExpired.Inc()
		logger.Log.Info("expired idle session", "session", s.ID, "tenant", s.Tenant)
	}
}
