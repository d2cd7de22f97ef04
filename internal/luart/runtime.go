package luart

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// ErrRuntimeReleased is returned by Enter when no live acquisition holds
// the runtime.
var ErrRuntimeReleased = errors.New("luart: runtime not acquired")

// Runtime owns the embedded Lua interpreter for the whole process. The
// interpreter is created on the first Acquire and closed when the last
// holder calls Release; every interaction with it happens through a
// Session, which serializes callers on a single global execution lock.
type Runtime struct {
	mu    sync.Mutex // guards refs, state and paths
	refs  int
	state *lua.LState
	paths map[string]bool

	gil sync.Mutex // the global execution lock
}

var shared = New()

// Shared returns the process-wide runtime. Stages receive it by injection
// so tests can substitute an isolated instance from New.
func Shared() *Runtime { return shared }

// New builds an independent runtime with its own interpreter lifecycle.
func New() *Runtime {
	return &Runtime{paths: make(map[string]bool)}
}

// Acquire registers a new holder, initializing the interpreter if this is
// the first one. A second caller observes the already-initialized runtime
// and does not re-initialize.
func (r *Runtime) Acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == 0 {
		state, err := newState()
		if err != nil {
			return err
		}
		r.state = state
	}
	r.refs++
	return nil
}

// Release drops one holder. The interpreter is finalized only when the
// count returns to zero. Callers must not hold a Session when releasing.
func (r *Runtime) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == 0 {
		return
	}
	r.refs--
	if r.refs == 0 {
		r.state.Close()
		r.state = nil
		r.paths = make(map[string]bool)
	}
}

// Refs reports the current number of holders.
func (r *Runtime) Refs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

// Enter blocks for exclusive access to the interpreter and returns the
// Session through which all interpreter state must be touched.
func (r *Runtime) Enter() (*Session, error) {
	r.gil.Lock()
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()
	if state == nil {
		r.gil.Unlock()
		return nil, ErrRuntimeReleased
	}
	return &Session{rt: r, L: state}, nil
}

func newState() (state *lua.LState, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua runtime init: %v", p)
		}
	}()
	return lua.NewState(), nil
}

// Session is a scoped acquisition of the global execution lock. Values
// created through its interpreter are transient to the acquisition and
// must not escape it.
type Session struct {
	rt       *Runtime
	L        *lua.LState
	released bool
}

// Exit releases the execution lock. It is idempotent so error paths can
// defer it unconditionally.
func (s *Session) Exit() {
	if s == nil || s.released {
		return
	}
	s.released = true
	s.L = nil
	s.rt.gil.Unlock()
}

// EnsureSearchPath prepends dir to the interpreter's module search path.
// The insertion happens once per runtime per directory.
func (s *Session) EnsureSearchPath(dir string) error {
	if dir == "" {
		return nil
	}
	s.rt.mu.Lock()
	installed := s.rt.paths[dir]
	if !installed {
		s.rt.paths[dir] = true
	}
	s.rt.mu.Unlock()
	if installed {
		return nil
	}

	pkg := s.L.GetGlobal("package")
	if pkg.Type() != lua.LTTable {
		return fmt.Errorf("lua package table unavailable, got %s", pkg.Type())
	}
	current := lua.LVAsString(s.L.GetField(pkg, "path"))
	entry := filepath.Join(dir, "?.lua")
	s.L.SetField(pkg, "path", lua.LString(entry+";"+current))
	return nil
}
