package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flifloo/administrator"
)

type fakeEvents struct {
	mu       sync.Mutex
	handlers map[int]interface{}
	next     int
}

func (f *fakeEvents) AddHandler(handler interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handlers == nil {
		f.handlers = make(map[int]interface{})
	}
	id := f.next
	f.next++
	f.handlers[id] = handler

	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

func (f *fakeEvents) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

type pingCommand struct{}

func (p *pingCommand) Run(data *administrator.Data) (interface{}, error) { return "pong", nil }

// testExtension registers a command, a handler and a loop
type testExtension struct {
	setupErr    error
	setupPanic  bool
	teardownErr error

	loopStopped *int32
}

func (t *testExtension) Description() string { return "Test extension" }

func (t *testExtension) Setup(ctx context.Context, scope *Scope) error {
	group := scope.Group("test")
	group.AddCommand(&pingCommand{}, administrator.NewTrigger("ping"))
	scope.AddHandler(func(s interface{}, m interface{}) {})

	stopped := t.loopStopped
	scope.Go(func(ctx context.Context) {
		<-ctx.Done()
		// Simulate a slow shutdown, unloading has to wait for it
		time.Sleep(20 * time.Millisecond)
		if stopped != nil {
			atomic.StoreInt32(stopped, 1)
		}
	})

	if t.setupPanic {
		panic("setup exploded")
	}
	return t.setupErr
}

func (t *testExtension) Teardown(ctx context.Context) error {
	return t.teardownErr
}

func newTestController() (*Controller, *administrator.Container, *fakeEvents) {
	root := &administrator.Container{}
	events := &fakeEvents{}
	return NewController(root, events), root, events
}

func run(root *administrator.Container, input string) (interface{}, error) {
	return root.Run(&administrator.Data{MsgStrippedPrefix: input, Source: administrator.PrefixSource, GuildID: "1"})
}

func TestLoadUnload(t *testing.T) {
	c, root, events := newTestController()
	var stopped int32
	c.Register("test", func() Extension { return &testExtension{loopStopped: &stopped} })

	require.NoError(t, c.Load(context.Background(), "test"))
	assert.Equal(t, []string{"test"}, c.ListLoaded())
	assert.True(t, c.IsLoaded("test"))
	assert.Equal(t, "Test extension", c.Describe("test"))
	assert.Equal(t, 1, events.count())

	resp, err := run(root, "test ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", resp)
	assert.Equal(t, "test", root.Commands()[0].Extension)

	require.NoError(t, c.Unload(context.Background(), "test"))
	assert.Empty(t, c.ListLoaded())
	assert.Equal(t, int32(1), atomic.LoadInt32(&stopped), "Unload should wait for the loop")
	assert.Equal(t, 0, events.count())
	assert.Empty(t, root.Commands())

	_, err = run(root, "test ping")
	assert.IsType(t, &administrator.CommandNotFoundError{}, err)
}

func TestLoadErrors(t *testing.T) {
	c, root, events := newTestController()
	c.Register("test", func() Extension { return &testExtension{} })
	c.Register("broken", func() Extension { return &testExtension{setupErr: errors.New("missing table")} })
	c.Register("panics", func() Extension { return &testExtension{setupPanic: true} })

	err := c.Load(context.Background(), "nope")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "nope", loadErr.Extension)
	assert.Equal(t, ErrUnknownExtension, errors.Cause(err))

	err = c.Load(context.Background(), "broken")
	assert.EqualError(t, err, "load broken: missing table")

	err = c.Load(context.Background(), "panics")
	require.IsType(t, &LoadError{}, err)
	assert.IsType(t, &PanicError{}, errors.Cause(err))

	// Nothing of the failed loads stays around
	assert.Empty(t, c.ListLoaded())
	assert.Empty(t, root.Commands())
	assert.Equal(t, 0, events.count())

	require.NoError(t, c.Load(context.Background(), "test"))
	err = c.Load(context.Background(), "test")
	assert.Equal(t, ErrAlreadyLoaded, errors.Cause(err))
	assert.Len(t, root.Commands(), 1)
}

func TestUnloadErrors(t *testing.T) {
	c, root, _ := newTestController()
	c.Register("test", func() Extension { return &testExtension{teardownErr: errors.New("flush failed")} })

	err := c.Unload(context.Background(), "test")
	assert.IsType(t, &UnloadError{}, err)
	assert.Equal(t, ErrNotLoaded, errors.Cause(err))

	require.NoError(t, c.Load(context.Background(), "test"))
	err = c.Unload(context.Background(), "test")
	assert.EqualError(t, err, "unload test: flush failed")

	// Unloaded regardless of the teardown failure
	assert.False(t, c.IsLoaded("test"))
	assert.Empty(t, root.Commands())
}

func TestReloadLeavesUnloadedOnLoadFailure(t *testing.T) {
	c, root, _ := newTestController()

	var fail atomic.Bool
	c.Register("X", func() Extension {
		if fail.Load() {
			return &testExtension{setupErr: errors.New("injected fault")}
		}
		return &testExtension{}
	})

	require.NoError(t, c.Load(context.Background(), "X"))
	require.NoError(t, c.Reload(context.Background(), "X"))
	assert.Equal(t, []string{"X"}, c.ListLoaded())

	fail.Store(true)
	err := c.Reload(context.Background(), "X")
	var reloadErr *ReloadError
	require.True(t, errors.As(err, &reloadErr))
	assert.Equal(t, PhaseLoad, reloadErr.Phase)
	assert.EqualError(t, err, "reload X (load phase): injected fault")

	assert.NotContains(t, c.ListLoaded(), "X")
	assert.Empty(t, root.Commands())
}

func TestReloadFailingTeardownLeavesUnloaded(t *testing.T) {
	c, root, events := newTestController()
	c.Register("X", func() Extension { return &testExtension{teardownErr: errors.New("close failed")} })
	require.NoError(t, c.Load(context.Background(), "X"))

	err := c.Reload(context.Background(), "X")
	var reloadErr *ReloadError
	require.True(t, errors.As(err, &reloadErr))
	assert.Equal(t, PhaseUnload, reloadErr.Phase)
	assert.EqualError(t, err, "reload X (unload phase): close failed")

	assert.Empty(t, c.ListLoaded())
	assert.Empty(t, root.Commands())
	assert.Equal(t, 0, events.count())
}

func TestReloadNotLoaded(t *testing.T) {
	c, _, _ := newTestController()
	c.Register("X", func() Extension { return &testExtension{} })

	err := c.Reload(context.Background(), "X")
	var reloadErr *ReloadError
	require.True(t, errors.As(err, &reloadErr))
	assert.Equal(t, PhaseUnload, reloadErr.Phase)
	assert.Equal(t, ErrNotLoaded, errors.Cause(err))
	assert.Empty(t, c.ListLoaded(), "Load is not attempted")
}

func TestUnloadAll(t *testing.T) {
	c, root, _ := newTestController()
	for _, name := range []string{"a", "b", "c"} {
		name := name
		c.Register(name, func() Extension { return &namedExtension{name: name} })
		require.NoError(t, c.Load(context.Background(), name))
	}
	assert.Equal(t, []string{"a", "b", "c"}, c.Available())

	require.NoError(t, c.UnloadAll(context.Background()))
	assert.Empty(t, c.ListLoaded())
	assert.Empty(t, root.Commands())
}

type namedExtension struct {
	name string
}

func (n *namedExtension) Setup(ctx context.Context, scope *Scope) error {
	scope.AddCommand(&pingCommand{}, administrator.NewTrigger(n.name))
	return nil
}

func (n *namedExtension) Teardown(ctx context.Context) error { return nil }

func TestLoopPanicIsContained(t *testing.T) {
	scope := newScope("test", &administrator.Container{}, nil, zerolog.Nop())
	scope.Go(func(ctx context.Context) {
		panic("loop exploded")
	})
	scope.release()

	// A second release is a no-op
	scope.release()
	assert.Error(t, scope.Context().Err())
}

func TestDiagnostic(t *testing.T) {
	err := protect(func() error { panic("boom") })
	msg := Diagnostic(&LoadError{Extension: "x", Err: err})
	assert.True(t, strings.HasPrefix(msg, "*lifecycle.PanicError: load x: panic: boom"), msg)
	assert.Contains(t, msg, "```")

	msg = Diagnostic(&LoadError{Extension: "x", Err: errors.New("missing table")})
	assert.True(t, strings.HasPrefix(msg, "*errors.fundamental: load x: missing table"), msg)
	assert.Contains(t, msg, "TestDiagnostic")

	assert.Equal(t, "panic: boom", fmt.Sprintf("%v", err))
	assert.Contains(t, fmt.Sprintf("%+v", err), "goroutine")
}
