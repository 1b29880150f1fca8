// Package registry resolves platform names to shared adapter instances.
package registry

import (
	"context"
	"maps"
	"sync"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/linkedin"
	"github.com/codeGROOVE-dev/prospector/pkg/medium"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/quora"
	"github.com/codeGROOVE-dev/prospector/pkg/reddit"
	"github.com/codeGROOVE-dev/prospector/pkg/twitter"
	"github.com/codeGROOVE-dev/prospector/pkg/web"
	"github.com/codeGROOVE-dev/prospector/pkg/youtube"
)

// Constructor builds the adapter for one platform.
type Constructor func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error)

// constructors covers every profile.Platform.
var constructors = map[profile.Platform]Constructor{
	profile.LinkedIn: func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error) {
		return linkedin.New(ctx, opts...)
	},
	profile.X: func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error) {
		return twitter.New(ctx, opts...)
	},
	profile.YouTube: func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error) {
		return youtube.New(ctx, opts...)
	},
	profile.Reddit: func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error) {
		return reddit.New(ctx, opts...)
	},
	profile.Medium: func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error) {
		return medium.New(ctx, opts...)
	},
	profile.Quora: func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error) {
		return quora.New(ctx, opts...)
	},
	profile.Web: func(ctx context.Context, opts ...adapter.Option) (adapter.Adapter, error) {
		return web.New(ctx, opts...)
	},
}

// Registry lazily constructs one adapter per platform and hands the same instance to
// every caller, so each platform's rate limiter is shared across a run.
type Registry struct {
	instances map[profile.Platform]adapter.Adapter
	ctors     map[profile.Platform]Constructor
	opts      []adapter.Option
	mu        sync.Mutex
}

// New creates a registry whose adapters are built with opts.
func New(opts ...adapter.Option) *Registry {
	return &Registry{
		instances: map[profile.Platform]adapter.Adapter{},
		ctors:     maps.Clone(constructors),
		opts:      opts,
	}
}

// SetConstructor replaces the constructor for a platform and drops any cached instance.
func (r *Registry) SetConstructor(p profile.Platform, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[p] = c
	delete(r.instances, p)
}

// Get returns the adapter for a case-insensitive platform name. Unknown names yield
// *profile.UnsupportedPlatformError; constructor failures yield *profile.AdapterLoadError
// and are not cached.
func (r *Registry) Get(ctx context.Context, name string) (adapter.Adapter, error) {
	p, err := profile.ParsePlatform(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.instances[p]; ok {
		return a, nil
	}
	ctor, ok := r.ctors[p]
	if !ok {
		return nil, &profile.UnsupportedPlatformError{Name: name}
	}
	a, err := ctor(ctx, r.opts...)
	if err != nil {
		return nil, &profile.AdapterLoadError{Platform: p, Err: err}
	}
	r.instances[p] = a
	return a, nil
}

// Supported reports whether name resolves to a platform.
func Supported(name string) bool {
	_, err := profile.ParsePlatform(name)
	return err == nil
}
