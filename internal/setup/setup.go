package setup

import (
	"context"

	"github.com/nestdesk/stager/internal/apiclient"
	"github.com/nestdesk/stager/internal/clean"
	"github.com/nestdesk/stager/internal/config"
	"github.com/nestdesk/stager/internal/handler"
	"github.com/nestdesk/stager/internal/middleware"
	"github.com/nestdesk/stager/internal/reconcile"
	"github.com/nestdesk/stager/internal/save"
	"github.com/nestdesk/stager/internal/staging"
	"github.com/nestdesk/stager/internal/thumbnail"
	"github.com/nestdesk/stager/internal/validation"
)

type Dependencies struct {
	Config        *config.Config
	Handler       *handler.Handler
	Sessions      *staging.Manager
	UploadLimiter *middleware.RateLimiter
	CancelFunc    context.CancelFunc
}

// SetupDependencies wires the whole service from config: file policies,
// the thumbnail renderer, the session manager with its janitor, the api
// clients for the media and property boundaries, and the save orchestrator.
func SetupDependencies(cfg *config.Config) *Dependencies {
	ctx, cancel := context.WithCancel(context.Background())

	sessions := staging.NewManager(staging.Options{
		ImagePolicy:          validation.NewPolicy(cfg.Public.AllowedImageExtensions, cfg.Public.MaxFileSizeBytes),
		DocumentPolicy:       validation.NewPolicy(cfg.Public.AllowedDocumentExtensions, cfg.Public.MaxFileSizeBytes),
		RequiredTypes:        cfg.Public.RequiredDocumentTypes,
		RequiredProjectTypes: cfg.Public.RequiredProjectDocumentTypes,
		Renderer:             thumbnail.New(cfg.Public.ThumbnailMaxDimension, cfg.Public.ThumbnailQuality),
	})
	sessions.StartJanitor(ctx, cfg.Public.SessionTTL, cfg.Public.JanitorInterval)

	mediaClient := apiclient.New(cfg.Public.MediaAPIBaseURL, cfg.ServiceToken())
	propertyClient := apiclient.New(cfg.Public.PropertyAPIBaseURL, cfg.ServiceToken())

	saver := save.New(sessions, reconcile.New(mediaClient), propertyClient, clean.New())

	return &Dependencies{
		Config:        cfg,
		Handler:       handler.New(sessions, saver, cfg.Public.MaxFileSizeBytes),
		Sessions:      sessions,
		UploadLimiter: middleware.NewRateLimiter(ctx, cfg.Public.UploadRateLimitPerSecond, cfg.Public.UploadRateLimitBurst),
		CancelFunc:    cancel,
	}
}
