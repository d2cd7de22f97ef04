package luart

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/luaflow/luaflow/internal/domain"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".lua"), []byte(body), 0o600); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
}

const doublerScript = `
function doubler(readings)
    for i, item in ipairs(readings) do
        local out = {}
        for k, v in pairs(item.readings) do
            out[k] = v * 2
        end
        item.readings = out
    end
    return readings
end

function set_filter_config(config)
    last_config = config
end
`

func TestResolveBindingAndCalls(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "doubler", doublerScript)
	s := enterTestSession(t)

	b, err := ResolveBinding(s, dir, "doubler")
	if err != nil {
		t.Fatalf("resolve binding: %v", err)
	}

	if err := b.CallConfigure(s, `{"factor":2}`); err != nil {
		t.Fatalf("call configure: %v", err)
	}
	if got := lua.LVAsString(s.L.GetGlobal("last_config")); got != `{"factor":2}` {
		t.Fatalf("configure entry point did not receive document, got %q", got)
	}

	batch := &domain.RecordBatch{Records: []*domain.Record{
		domain.NewRecord("m1", domain.Datapoint{Name: "c", Value: 10.0}),
	}}
	native, err := ToNative(s, batch)
	if err != nil {
		t.Fatalf("to native: %v", err)
	}
	ret, err := b.CallFilter(s, native)
	if err != nil {
		t.Fatalf("call filter: %v", err)
	}
	out, err := FromNative(s, ret, "", 0)
	if err != nil {
		t.Fatalf("from native: %v", err)
	}
	if v := out.Records[0].Value("c"); v != 20.0 {
		t.Fatalf("expected doubled value 20, got %v", v)
	}
	if top := s.L.GetTop(); top != 0 {
		t.Fatalf("interpreter stack not balanced, top=%d", top)
	}
}

func TestResolveBindingModuleTableStyle(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "scale", `
local M = {}

function M.scale(readings)
    return readings
end

function M.set_filter_config(config)
end

return M
`)
	s := enterTestSession(t)

	b, err := ResolveBinding(s, dir, "scale")
	if err != nil {
		t.Fatalf("resolve module-table binding: %v", err)
	}
	if err := b.CallConfigure(s, "{}"); err != nil {
		t.Fatalf("configure via module table: %v", err)
	}
}

func TestResolveBindingScriptAbsent(t *testing.T) {
	s := enterTestSession(t)

	_, err := ResolveBinding(s, t.TempDir(), "no_such_module")
	if !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("expected ErrScriptNotFound, got %v", err)
	}
}

func TestResolveBindingMissingEntryPoints(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "noconfig", `
function noconfig(readings)
    return readings
end
`)
	writeScript(t, dir, "nofilter", `
function set_filter_config(config)
end
`)
	s := enterTestSession(t)

	if _, err := ResolveBinding(s, dir, "noconfig"); !errors.Is(err, ErrEntryPointMissing) {
		t.Fatalf("expected ErrEntryPointMissing for missing set_filter_config, got %v", err)
	}
	if _, err := ResolveBinding(s, dir, "nofilter"); !errors.Is(err, ErrEntryPointMissing) {
		t.Fatalf("expected ErrEntryPointMissing for missing filter function, got %v", err)
	}
}

func TestCallFilterScriptError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "angry", `
function angry(readings)
    error("refusing to filter")
end

function set_filter_config(config)
end
`)
	s := enterTestSession(t)

	b, err := ResolveBinding(s, dir, "angry")
	if err != nil {
		t.Fatalf("resolve binding: %v", err)
	}
	native, err := ToNative(s, &domain.RecordBatch{})
	if err != nil {
		t.Fatalf("to native: %v", err)
	}
	if _, err := b.CallFilter(s, native); err == nil {
		t.Fatalf("expected invocation failure from raising script")
	}
	if top := s.L.GetTop(); top != 0 {
		t.Fatalf("interpreter stack not balanced after script error, top=%d", top)
	}
}

func TestBindingRelease(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "doubler", doublerScript)
	s := enterTestSession(t)

	b, err := ResolveBinding(s, dir, "doubler")
	if err != nil {
		t.Fatalf("resolve binding: %v", err)
	}

	b.Release(s)
	b.Release(s) // second release is a no-op

	loaded := s.L.GetField(s.L.GetGlobal("package"), "loaded").(*lua.LTable)
	if v := loaded.RawGetString("doubler"); v != lua.LNil {
		t.Fatalf("module still pinned in package.loaded after release: %v", v)
	}

	var nilBinding *Binding
	nilBinding.Release(s) // releasing an unbound stage must be safe
}
