package registry

import (
	"context"
	"testing"

	"github.com/starford/assetcook/internal/handler"
)

type fakeHandler struct {
	name   string
	claims []handler.Claim
}

func (f *fakeHandler) Name() string                                { return f.name }
func (f *fakeHandler) Claims() []handler.Claim                     { return f.claims }
func (f *fakeHandler) Import(context.Context, string, string) error { return nil }

func claim(ext string, prio int) handler.Claim {
	return handler.Claim{Extension: ext, Priority: prio}
}

func resolveName(t *testing.T, r *Registry, ext string) string {
	t.Helper()
	h, ok := r.Resolve(ext)
	if !ok {
		return ""
	}
	return h.Name()
}

func TestResolve_HighestPriorityWins(t *testing.T) {
	low := &fakeHandler{name: "low", claims: []handler.Claim{claim(".glsl", 1)}}
	high := &fakeHandler{name: "high", claims: []handler.Claim{claim(".glsl", 5)}}

	for _, order := range [][]handler.Handler{{low, high}, {high, low}} {
		r := New(order...)
		if got := resolveName(t, r, ".glsl"); got != "high" {
			t.Errorf("Resolve(.glsl) = %q, want high", got)
		}
	}
}

func TestResolve_TieLastRegisteredWins(t *testing.T) {
	first := &fakeHandler{name: "first", claims: []handler.Claim{claim(".png", 3), claim(handler.Wildcard, 2)}}
	second := &fakeHandler{name: "second", claims: []handler.Claim{claim(".png", 3), claim(handler.Wildcard, 2)}}

	r := New(first, second)
	if got := resolveName(t, r, ".png"); got != "second" {
		t.Errorf("Resolve(.png) = %q, want second", got)
	}
	w, ok := r.Wildcard()
	if !ok || w.Handler.Name() != "second" {
		t.Errorf("wildcard = %+v, want second", w)
	}
}

func TestResolve_FallsBackToWildcard(t *testing.T) {
	copyAll := &fakeHandler{name: "copy", claims: []handler.Claim{claim(handler.Wildcard, 1)}}
	shader := &fakeHandler{name: "shader", claims: []handler.Claim{claim(".glsl", 5)}}

	r := New(copyAll, shader)

	cases := map[string]string{
		".glsl": "shader",
		".glb":  "copy",
		".txt":  "copy",
		"":      "copy",
	}
	for ext, want := range cases {
		if got := resolveName(t, r, ext); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestResolve_NoMatchWithoutWildcard(t *testing.T) {
	r := New(&fakeHandler{name: "mesh", claims: []handler.Claim{claim(".glb", 1)}})
	if h, ok := r.Resolve(".txt"); ok || h != nil {
		t.Errorf("Resolve(.txt) = %v, %v; want none", h, ok)
	}
}

func TestResolve_NoCaseFolding(t *testing.T) {
	r := New(&fakeHandler{name: "mesh", claims: []handler.Claim{claim(".glb", 1)}})
	if _, ok := r.Resolve(".GLB"); ok {
		t.Error("Resolve(.GLB) should not match .glb")
	}
}

func TestWildcard_HighestPriority(t *testing.T) {
	a := &fakeHandler{name: "a", claims: []handler.Claim{claim(handler.Wildcard, 7)}}
	b := &fakeHandler{name: "b", claims: []handler.Claim{claim(handler.Wildcard, 1)}}

	r := New(a, b)
	w, ok := r.Wildcard()
	if !ok || w.Handler.Name() != "a" || w.Priority != 7 {
		t.Errorf("wildcard = %+v, want a@7", w)
	}
}

func TestExtensions_OneRegistrationPerKey(t *testing.T) {
	a := &fakeHandler{name: "a", claims: []handler.Claim{claim(".glsl", 1), claim(".hlsl", 1)}}
	b := &fakeHandler{name: "b", claims: []handler.Claim{claim(".glsl", 2), claim(".comp", 1)}}

	regs := New(a, b).Extensions()
	if len(regs) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(regs), regs)
	}
	want := []string{".comp", ".glsl", ".hlsl"}
	for i, reg := range regs {
		if reg.Extension != want[i] {
			t.Errorf("regs[%d] = %s, want %s", i, reg.Extension, want[i])
		}
	}
	if regs[1].Handler.Name() != "b" {
		t.Errorf(".glsl handler = %s, want b", regs[1].Handler.Name())
	}
}

func TestNew_IgnoresNilHandlers(t *testing.T) {
	r := New(nil, &fakeHandler{name: "x", claims: []handler.Claim{claim(".x", 1)}})
	if got := resolveName(t, r, ".x"); got != "x" {
		t.Errorf("Resolve(.x) = %q", got)
	}
}
