package luart

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrScriptNotFound means the configured script module could not be
	// loaded from the search path.
	ErrScriptNotFound = errors.New("luart: script module not found")
	// ErrEntryPointMissing means the module loaded but does not expose a
	// required entry point.
	ErrEntryPointMissing = errors.New("luart: script entry point missing")
)

// ConfigureEntryPoint is the fixed name of the configuration entry point
// every script must expose. The filtering entry point is named after the
// script module itself; neither convention is configurable.
const ConfigureEntryPoint = "set_filter_config"

// Binding holds a loaded script module and its two resolved callables for
// the lifetime of a filter stage. It is created and released under the
// execution lock, exactly once each.
type Binding struct {
	ScriptName string

	module   lua.LValue
	filterFn *lua.LFunction
	configFn *lua.LFunction
	released bool
}

// ResolveBinding installs the script search path, loads the module named
// scriptName and resolves both entry points. Absence of the module or of
// either entry point is reported upward so the stage can self-disable; it
// is never fatal to the process.
func ResolveBinding(s *Session, dir, scriptName string) (*Binding, error) {
	if err := s.EnsureSearchPath(dir); err != nil {
		return nil, err
	}

	module, err := s.requireModule(scriptName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrScriptNotFound, scriptName, err)
	}

	filterFn, ok := s.lookupFunction(module, scriptName)
	if !ok {
		return nil, fmt.Errorf("%w: %q must expose a function named %q", ErrEntryPointMissing, scriptName, scriptName)
	}
	configFn, ok := s.lookupFunction(module, ConfigureEntryPoint)
	if !ok {
		return nil, fmt.Errorf("%w: %q must expose %q", ErrEntryPointMissing, scriptName, ConfigureEntryPoint)
	}

	return &Binding{
		ScriptName: scriptName,
		module:     module,
		filterFn:   filterFn,
		configFn:   configFn,
	}, nil
}

// CallConfigure invokes the configuration entry point with the serialized
// configuration document. State changes made by the script are opaque to
// the host.
func (b *Binding) CallConfigure(s *Session, configJSON string) error {
	if b.released || b.configFn == nil {
		return fmt.Errorf("%s: binding released", ConfigureEntryPoint)
	}
	if err := s.L.CallByParam(lua.P{
		Fn:      b.configFn,
		NRet:    0,
		Protect: true,
	}, lua.LString(configJSON)); err != nil {
		return fmt.Errorf("%s: %w", ConfigureEntryPoint, err)
	}
	return nil
}

// CallFilter invokes the filtering entry point with one native list
// argument and returns its return value. A script-raised error surfaces as
// an invocation failure with the interpreter stack left balanced.
func (b *Binding) CallFilter(s *Session, batch *lua.LTable) (lua.LValue, error) {
	if b.released || b.filterFn == nil {
		return nil, fmt.Errorf("%s: binding released", b.ScriptName)
	}
	if err := s.L.CallByParam(lua.P{
		Fn:      b.filterFn,
		NRet:    1,
		Protect: true,
	}, batch); err != nil {
		return nil, fmt.Errorf("%s: %w", b.ScriptName, err)
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}

// Release drops the module and callable references. Subsequent calls are
// no-ops; a nil binding is tolerated so shutdown after a failed load does
// not have to special-case it.
func (b *Binding) Release(s *Session) {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.module = lua.LNil
	b.filterFn = nil
	b.configFn = nil

	// Unpin the module from package.loaded so the interpreter can collect it.
	if loaded, ok := s.L.GetField(s.L.GetGlobal("package"), "loaded").(*lua.LTable); ok {
		loaded.RawSetString(b.ScriptName, lua.LNil)
	}
}

func (s *Session) requireModule(name string) (lua.LValue, error) {
	req := s.L.GetGlobal("require")
	if err := s.L.CallByParam(lua.P{
		Fn:      req,
		NRet:    1,
		Protect: true,
	}, lua.LString(name)); err != nil {
		return nil, err
	}
	module := s.L.Get(-1)
	s.L.Pop(1)
	return module, nil
}

// lookupFunction resolves an entry point either as a field of the module
// table (when the script returns one) or as a global the script defined.
func (s *Session) lookupFunction(module lua.LValue, name string) (*lua.LFunction, bool) {
	if tbl, ok := module.(*lua.LTable); ok {
		if fn, ok := tbl.RawGetString(name).(*lua.LFunction); ok {
			return fn, true
		}
	}
	fn, ok := s.L.GetGlobal(name).(*lua.LFunction)
	return fn, ok
}
