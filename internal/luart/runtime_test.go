package luart

import (
	"errors"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestRuntimeRefCounting(t *testing.T) {
	rt := New()

	if err := rt.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := rt.Acquire(); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if rt.Refs() != 2 {
		t.Fatalf("expected 2 refs, got %d", rt.Refs())
	}

	// Releasing one holder must keep the interpreter alive for the other.
	rt.Release()
	s, err := rt.Enter()
	if err != nil {
		t.Fatalf("enter with one live ref: %v", err)
	}
	if err := s.L.DoString(`x = 1 + 1`); err != nil {
		t.Fatalf("interpreter dead after partial release: %v", err)
	}
	s.Exit()

	rt.Release()
	if rt.Refs() != 0 {
		t.Fatalf("expected 0 refs, got %d", rt.Refs())
	}
	if _, err := rt.Enter(); !errors.Is(err, ErrRuntimeReleased) {
		t.Fatalf("expected ErrRuntimeReleased after final release, got %v", err)
	}

	// Over-release must not underflow.
	rt.Release()
	if rt.Refs() != 0 {
		t.Fatalf("refs went negative")
	}

	// A fresh acquire re-initializes.
	if err := rt.Acquire(); err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	defer rt.Release()
	s, err = rt.Enter()
	if err != nil {
		t.Fatalf("enter after re-acquire: %v", err)
	}
	defer s.Exit()
	if err := s.L.DoString(`y = "ok"`); err != nil {
		t.Fatalf("re-initialized interpreter broken: %v", err)
	}
}

func TestSessionExitIdempotent(t *testing.T) {
	rt := New()
	if err := rt.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer rt.Release()

	s, err := rt.Enter()
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	s.Exit()
	s.Exit() // must not panic or double-unlock

	s2, err := rt.Enter()
	if err != nil {
		t.Fatalf("re-enter after exit: %v", err)
	}
	s2.Exit()
}

func TestEnsureSearchPathIdempotent(t *testing.T) {
	rt := New()
	if err := rt.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer rt.Release()

	s, err := rt.Enter()
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	defer s.Exit()

	dir := t.TempDir()
	if err := s.EnsureSearchPath(dir); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.EnsureSearchPath(dir); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	path := lua.LVAsString(s.L.GetField(s.L.GetGlobal("package"), "path"))
	if got := strings.Count(path, dir); got != 1 {
		t.Fatalf("expected scripts dir once in package.path, found %d times in %q", got, path)
	}
}
