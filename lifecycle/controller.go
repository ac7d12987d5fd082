// Package lifecycle loads, unloads and reloads extensions while the bot runs
package lifecycle

import (
	"context"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flifloo/administrator"
)

// Extension is a unit of functionality that can be loaded at runtime
type Extension interface {
	// Setup registers the commands, handlers and loops of the extension on scope
	Setup(ctx context.Context, scope *Scope) error
	// Teardown is called before the scope of the extension is released
	Teardown(ctx context.Context) error
}

// Describer extensions have a description listed by the extension commands
type Describer interface {
	Description() string
}

// Factory creates a fresh instance of an extension for every load
type Factory func() Extension

type loadedExtension struct {
	ext   Extension
	scope *Scope
}

// Controller owns the set of loaded extensions
type Controller struct {
	root   *administrator.Container
	events EventSource
	log    zerolog.Logger

	// opMu serializes load, unload and reload
	opMu sync.Mutex

	mu        sync.RWMutex
	factories map[string]Factory
	loaded    map[string]*loadedExtension
}

func NewController(root *administrator.Container, events EventSource) *Controller {
	return &Controller{
		root:      root,
		events:    events,
		log:       log.With().Str("component", "lifecycle").Logger(),
		factories: make(map[string]Factory),
		loaded:    make(map[string]*loadedExtension),
	}
}

// Register makes an extension available for loading under name
func (c *Controller) Register(name string, factory Factory) {
	c.mu.Lock()
	c.factories[name] = factory
	c.mu.Unlock()
}

// Available returns the names of every registered extension, sorted
func (c *Controller) Available() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return sortedKeys(c.factories)
}

// ListLoaded returns the names of the loaded extensions, sorted
func (c *Controller) ListLoaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return sortedKeys(c.loaded)
}

func (c *Controller) IsLoaded(name string) bool {
	c.mu.RLock()
	_, ok := c.loaded[name]
	c.mu.RUnlock()
	return ok
}

// Describe returns the description of a loaded extension
func (c *Controller) Describe(name string) string {
	c.mu.RLock()
	l, ok := c.loaded[name]
	c.mu.RUnlock()

	if !ok {
		return ""
	}
	if d, ok := l.ext.(Describer); ok {
		return d.Description()
	}
	return ""
}

// Load creates and sets up the extension. On failure everything it registered is released
// and the set of loaded extensions is unchanged.
func (c *Controller) Load(ctx context.Context, name string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.load(ctx, name)
}

func (c *Controller) load(ctx context.Context, name string) error {
	logger := c.log.With().Str("extension", name).Logger()
	logger.Info().Msg("loading")

	c.mu.RLock()
	factory, known := c.factories[name]
	_, loaded := c.loaded[name]
	c.mu.RUnlock()

	if !known {
		return &LoadError{Extension: name, Err: errors.WithStack(ErrUnknownExtension)}
	}
	if loaded {
		return &LoadError{Extension: name, Err: errors.WithStack(ErrAlreadyLoaded)}
	}

	scope := newScope(name, c.root, c.events, log.With().Str("extension", name).Logger())

	var ext Extension
	err := protect(func() error {
		ext = factory()
		if ext == nil {
			return errors.New("factory returned no extension")
		}
		return ext.Setup(ctx, scope)
	})
	if err != nil {
		scope.release()
		logger.Error().Err(err).Msg("load failed")
		return &LoadError{Extension: name, Err: err}
	}

	c.mu.Lock()
	c.loaded[name] = &loadedExtension{ext: ext, scope: scope}
	c.mu.Unlock()

	logger.Info().Msg("load successful")
	return nil
}

// Unload tears the extension down and releases its scope, waiting for its loops to stop.
// A failing teardown is reported but the extension is unloaded regardless.
func (c *Controller) Unload(ctx context.Context, name string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.unload(ctx, name)
}

func (c *Controller) unload(ctx context.Context, name string) error {
	logger := c.log.With().Str("extension", name).Logger()
	logger.Info().Msg("unloading")

	c.mu.RLock()
	l, ok := c.loaded[name]
	c.mu.RUnlock()
	if !ok {
		return &UnloadError{Extension: name, Err: errors.WithStack(ErrNotLoaded)}
	}

	err := protect(func() error {
		return l.ext.Teardown(ctx)
	})

	l.scope.release()

	c.mu.Lock()
	delete(c.loaded, name)
	c.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Msg("teardown failed")
		return &UnloadError{Extension: name, Err: err}
	}

	logger.Info().Msg("unload successful")
	return nil
}

// Reload unloads then loads the extension. If either phase fails the extension stays
// unloaded, the previous instance is not restored.
func (c *Controller) Reload(ctx context.Context, name string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.unload(ctx, name); err != nil {
		return &ReloadError{Extension: name, Phase: PhaseUnload, Err: err.(*UnloadError).Err}
	}

	if err := c.load(ctx, name); err != nil {
		return &ReloadError{Extension: name, Phase: PhaseLoad, Err: err.(*LoadError).Err}
	}

	return nil
}

// UnloadAll unloads every extension, in reverse name order, returning the first failure
func (c *Controller) UnloadAll(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	names := c.ListLoaded()

	var first error
	for i := len(names) - 1; i >= 0; i-- {
		if err := c.unload(ctx, names[i]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// protect runs fn, turning a panic into a PanicError
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return fn()
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
