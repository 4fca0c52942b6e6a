package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/clipforge/api/internal/client"
	"github.com/clipforge/api/internal/model"
)

// stubEngine is a controllable RenderEngine for service tests.
type stubEngine struct {
	configured  bool
	bundleCalls int32
	bundleFn    func(ctx context.Context) ([]model.Template, error)
	renderFn    func(ctx context.Context, req *client.RenderRequest) (*client.RenderOutput, error)
}

func (e *stubEngine) Bundle(ctx context.Context) ([]model.Template, error) {
	atomic.AddInt32(&e.bundleCalls, 1)
	return e.bundleFn(ctx)
}

func (e *stubEngine) Render(ctx context.Context, req *client.RenderRequest) (*client.RenderOutput, error) {
	return e.renderFn(ctx, req)
}

func (e *stubEngine) IsConfigured() bool { return e.configured }

// stubContentGen is a controllable ContentGenerator for service tests.
type stubContentGen struct {
	configured bool
	response   string
	err        error
}

func (g *stubContentGen) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	return g.response, g.err
}

func (g *stubContentGen) IsConfigured() bool { return g.configured }

func testLogger() *zap.Logger { return zap.NewNop() }
