package lifecycle

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnknownExtension = errors.New("no such extension")
	ErrAlreadyLoaded    = errors.New("extension already loaded")
	ErrNotLoaded        = errors.New("extension not loaded")
)

// LoadError is returned when an extension could not be loaded, nothing of it stays active
type LoadError struct {
	Extension string
	Err       error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %s", e.Extension, e.Err) }
func (e *LoadError) Cause() error  { return e.Err }
func (e *LoadError) Unwrap() error { return e.Err }

// UnloadError is returned when an extension was not loaded or its teardown failed, in the
// later case the extension is unloaded anyway
type UnloadError struct {
	Extension string
	Err       error
}

func (e *UnloadError) Error() string { return fmt.Sprintf("unload %s: %s", e.Extension, e.Err) }
func (e *UnloadError) Cause() error  { return e.Err }
func (e *UnloadError) Unwrap() error { return e.Err }

type ReloadPhase string

const (
	PhaseUnload ReloadPhase = "unload"
	PhaseLoad   ReloadPhase = "load"
)

// ReloadError tells which phase of a reload failed. The extension is unloaded after either
// phase fails: a failing teardown still releases the previous instance and the load phase
// is not attempted.
type ReloadError struct {
	Extension string
	Phase     ReloadPhase
	Err       error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload %s (%s phase): %s", e.Extension, e.Phase, e.Err)
}
func (e *ReloadError) Cause() error  { return e.Err }
func (e *ReloadError) Unwrap() error { return e.Err }

// PanicError is a panic recovered from extension code
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic: %v", p.Value) }

func (p *PanicError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, p.Error()+"\n"+string(p.Stack))
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, p.Error())
	case 'q':
		fmt.Fprintf(s, "%q", p.Error())
	}
}

// Traces are cut to fit a single message
const maxTrace = 1500

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Diagnostic renders err for the owner who ran a lifecycle command: the failing extension,
// the type of the underlying fault and its trace when one is available
func Diagnostic(err error) string {
	cause := errors.Cause(err)

	var b strings.Builder
	fmt.Fprintf(&b, "%T: %s", cause, err)

	var trace string
	switch t := cause.(type) {
	case *PanicError:
		trace = string(t.Stack)
	default:
		if st, ok := deepestStack(err); ok {
			trace = strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
		}
	}

	if len(trace) > maxTrace {
		trace = trace[:maxTrace] + "\n..."
	}
	if trace != "" {
		fmt.Fprintf(&b, "\n```%s```", trace)
	}
	return b.String()
}

// deepestStack finds the innermost error carrying a stack trace
func deepestStack(err error) (stackTracer, bool) {
	var found stackTracer
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			found = st
		}

		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return found, found != nil
}
