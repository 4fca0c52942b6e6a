package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/clipforge/api/internal/model"
)

func TestCatalogFallsBackWhenUnconfigured(t *testing.T) {
	catalog := NewTemplateCatalog(&stubEngine{configured: false}, testLogger())

	templates, err := catalog.Templates(context.Background())
	if err != nil {
		t.Fatalf("Templates: %v", err)
	}
	if len(templates) == 0 {
		t.Fatal("expected builtin templates when engine is unconfigured")
	}
	if _, err := catalog.Lookup(context.Background(), "caption-basic"); err != nil {
		t.Errorf("builtin template should resolve: %v", err)
	}
}

func TestCatalogBundlesOnce(t *testing.T) {
	engine := &stubEngine{
		configured: true,
		bundleFn: func(ctx context.Context) ([]model.Template, error) {
			return []model.Template{{ID: "t1", DurationInFrames: 300, FPS: 30, Width: 1080, Height: 1920}}, nil
		},
	}
	catalog := NewTemplateCatalog(engine, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := catalog.Templates(context.Background()); err != nil {
				t.Errorf("Templates: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&engine.bundleCalls); calls != 1 {
		t.Errorf("bundle called %d times, want 1", calls)
	}
}

func TestCatalogBundleFailureNotCached(t *testing.T) {
	var calls int32
	engine := &stubEngine{
		configured: true,
		bundleFn: func(ctx context.Context) ([]model.Template, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, fmt.Errorf("engine offline")
			}
			return []model.Template{{ID: "t1"}}, nil
		},
	}
	catalog := NewTemplateCatalog(engine, testLogger())

	if _, err := catalog.Templates(context.Background()); !errors.Is(err, ErrBundle) {
		t.Fatalf("first call should fail with ErrBundle, got %v", err)
	}
	templates, err := catalog.Templates(context.Background())
	if err != nil {
		t.Fatalf("second call should retry and succeed: %v", err)
	}
	if len(templates) != 1 || templates[0].ID != "t1" {
		t.Errorf("templates = %+v", templates)
	}
}

func TestCatalogLookupUnknown(t *testing.T) {
	catalog := NewTemplateCatalog(&stubEngine{configured: false}, testLogger())
	_, err := catalog.Lookup(context.Background(), "no-such-template")
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestCatalogInvalidate(t *testing.T) {
	engine := &stubEngine{
		configured: true,
		bundleFn: func(ctx context.Context) ([]model.Template, error) {
			return []model.Template{{ID: "t1"}}, nil
		},
	}
	catalog := NewTemplateCatalog(engine, testLogger())

	if _, err := catalog.Templates(context.Background()); err != nil {
		t.Fatalf("Templates: %v", err)
	}
	catalog.Invalidate()
	if _, err := catalog.Templates(context.Background()); err != nil {
		t.Fatalf("Templates after invalidate: %v", err)
	}
	if calls := atomic.LoadInt32(&engine.bundleCalls); calls != 2 {
		t.Errorf("bundle called %d times, want 2 after invalidate", calls)
	}
}
