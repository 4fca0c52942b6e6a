package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/clipforge/api/internal/client"
	"github.com/clipforge/api/internal/model"
)

// TemplateCatalog exposes the render engine's composition templates. Bundling
// is expensive, so the catalog bundles lazily on first access and caches the
// result for the process lifetime; concurrent first-time callers share a
// single in-flight bundle. A failed bundle is never cached.
type TemplateCatalog struct {
	engine client.RenderEngine
	logger *zap.Logger

	group singleflight.Group

	mu        sync.RWMutex
	templates []model.Template
	byID      map[string]model.Template
}

func NewTemplateCatalog(engine client.RenderEngine, logger *zap.Logger) *TemplateCatalog {
	return &TemplateCatalog{
		engine: engine,
		logger: logger,
	}
}

// Templates returns the catalog, bundling on first access. The returned slice
// is stable across calls once the first successful bundle completes.
func (c *TemplateCatalog) Templates(ctx context.Context) ([]model.Template, error) {
	c.mu.RLock()
	cached := c.templates
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do("bundle", func() (interface{}, error) {
		// A caller that queued behind a completed flight finds the cache set.
		c.mu.RLock()
		cached := c.templates
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		templates, err := c.bundle(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBundle, err)
		}

		byID := make(map[string]model.Template, len(templates))
		for _, t := range templates {
			byID[t.ID] = t
		}

		c.mu.Lock()
		c.templates = templates
		c.byID = byID
		c.mu.Unlock()

		c.logger.Info("template catalog bundled", zap.Int("templates", len(templates)))
		return templates, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Template), nil
}

func (c *TemplateCatalog) bundle(ctx context.Context) ([]model.Template, error) {
	if c.engine == nil || !c.engine.IsConfigured() {
		return builtinTemplates(), nil
	}
	return c.engine.Bundle(ctx)
}

// Lookup resolves a template id against the catalog, bundling first if
// needed.
func (c *TemplateCatalog) Lookup(ctx context.Context, templateID string) (model.Template, error) {
	if _, err := c.Templates(ctx); err != nil {
		return model.Template{}, err
	}
	c.mu.RLock()
	t, ok := c.byID[templateID]
	c.mu.RUnlock()
	if !ok {
		return model.Template{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
	}
	return t, nil
}

// Invalidate drops the cached bundle; the next access re-bundles.
func (c *TemplateCatalog) Invalidate() {
	c.mu.Lock()
	c.templates = nil
	c.byID = nil
	c.mu.Unlock()
}

// builtinTemplates is the development fallback when no render engine is
// configured, mirroring the shapes a real bundle produces.
func builtinTemplates() []model.Template {
	return []model.Template{
		{
			ID:               "caption-basic",
			DurationInFrames: 900,
			FPS:              30,
			Width:            1080,
			Height:           1920,
			DefaultProps: map[string]interface{}{
				"title":           "Untitled",
				"backgroundColor": "#000000",
				"captionColor":    "#ffffff",
			},
		},
		{
			ID:               "highlight-reel",
			DurationInFrames: 1800,
			FPS:              30,
			Width:            1920,
			Height:           1080,
			DefaultProps: map[string]interface{}{
				"title":     "Highlights",
				"showLogo":  true,
				"musicBed":  "",
				"maxScenes": 6,
			},
		},
	}
}
