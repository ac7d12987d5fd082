package lifecycle

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flifloo/administrator"
)

// EventSource registers gateway event handlers, *discordgo.Session implements it
type EventSource interface {
	AddHandler(handler interface{}) func()
}

// Scope owns everything an extension registers while it is loaded, releasing the scope
// removes its commands and handlers and stops its loops
type Scope struct {
	name   string
	root   *administrator.Container
	events EventSource
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	commands []*administrator.RegisteredCommand
	removers []func()
	released bool
}

func newScope(name string, root *administrator.Container, events EventSource, log zerolog.Logger) *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scope{
		name:   name,
		root:   root,
		events: events,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name of the extension owning the scope
func (s *Scope) Name() string { return s.name }

// Logger is tagged with the extension name
func (s *Scope) Logger() *zerolog.Logger { return &s.log }

// Context is cancelled when the extension is unloaded
func (s *Scope) Context() context.Context { return s.ctx }

// Group creates the command group of the extension on the root container
func (s *Scope) Group(name string, aliases ...string) *administrator.Container {
	group := &administrator.Container{
		Extension:      s.name,
		IgnoreBots:     s.root.IgnoreBots,
		RunInDM:        s.root.RunInDM,
		HelpColor:      s.root.HelpColor,
		HelpTitleEmoji: s.root.HelpTitleEmoji,
		Names:          append([]string{name}, aliases...),
		Parent:         s.root,
	}

	s.AddCommand(group, administrator.NewTrigger(name, aliases...))
	return group
}

// AddCommand adds a top level command owned by the extension
func (s *Scope) AddCommand(cmd administrator.Cmd, trigger *administrator.Trigger) *administrator.RegisteredCommand {
	rc := s.root.AddExtensionCommand(s.name, cmd, trigger)

	s.mu.Lock()
	s.commands = append(s.commands, rc)
	s.mu.Unlock()
	return rc
}

// AddHandler registers a gateway event handler for as long as the extension is loaded
func (s *Scope) AddHandler(handler interface{}) {
	if s.events == nil {
		return
	}

	remove := s.events.AddHandler(handler)

	s.mu.Lock()
	s.removers = append(s.removers, remove)
	s.mu.Unlock()
}

// Go runs fn in a goroutine, fn must return once ctx is done. Unloading waits for it.
func (s *Scope) Go(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("background loop crashed")
			}
		}()

		fn(s.ctx)
	}()
}

// release undoes everything registered through the scope and waits for its loops
func (s *Scope) release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	commands, removers := s.commands, s.removers
	s.commands, s.removers = nil, nil
	s.mu.Unlock()

	for _, rc := range commands {
		s.root.RemoveCommand(rc)
	}
	for _, remove := range removers {
		remove()
	}

	s.cancel()
	s.wg.Wait()
}
