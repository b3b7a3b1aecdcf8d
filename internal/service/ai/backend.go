package ai

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/config"
)

// NewBackend builds the backend selected by cfg. It returns ErrNotConfigured
// when no provider has credentials.
func NewBackend(ctx context.Context, cfg config.AIConfig) (Backend, error) {
	switch cfg.ResolvedProvider() {
	case config.ProviderArk:
		backend, err := newArkBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Infof("[ai] using ark backend, model=%s", cfg.Model)
		return backend, nil
	case config.ProviderGemini:
		backend, err := newGeminiBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Infof("[ai] using gemini backend, model=%s", cfg.GeminiModel)
		return backend, nil
	default:
		return nil, ErrNotConfigured
	}
}
