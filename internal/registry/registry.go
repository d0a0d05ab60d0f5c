// Package registry resolves which handler imports a file, by extension and
// priority. A Registry is built once from a static handler list and is
// read-only afterwards.
package registry

import (
	"sort"

	"github.com/starford/assetcook/internal/handler"
)

// Registration is the active claim for one extension key.
type Registration struct {
	Extension string
	Priority  int
	Handler   handler.Handler
}

// Registry maps extensions to the highest-priority handler claiming them,
// plus at most one catch-all handler.
type Registry struct {
	byExt    map[string]Registration
	wildcard *Registration
}

// New builds a registry from handlers in registration order.
//
// For every extension key the claim with the highest priority is kept. When
// two claims share a key and a priority, the later one wins. Lower-priority
// claims are dropped without error.
func New(handlers ...handler.Handler) *Registry {
	r := &Registry{byExt: make(map[string]Registration)}
	for _, h := range handlers {
		if h == nil {
			continue
		}
		for _, c := range h.Claims() {
			reg := Registration{Extension: c.Extension, Priority: c.Priority, Handler: h}
			if c.Extension == handler.Wildcard {
				if r.wildcard == nil || reg.Priority >= r.wildcard.Priority {
					r.wildcard = &reg
				}
				continue
			}
			if cur, ok := r.byExt[c.Extension]; ok && cur.Priority > reg.Priority {
				continue
			}
			r.byExt[c.Extension] = reg
		}
	}
	return r
}

// Resolve returns the handler for ext (exact match, no case folding), falling
// back to the catch-all handler. ok is false when neither exists.
func (r *Registry) Resolve(ext string) (h handler.Handler, ok bool) {
	if reg, found := r.byExt[ext]; found {
		return reg.Handler, true
	}
	if r.wildcard != nil {
		return r.wildcard.Handler, true
	}
	return nil, false
}

// Extensions returns the active extension registrations sorted by extension.
func (r *Registry) Extensions() []Registration {
	out := make([]Registration, 0, len(r.byExt))
	for _, reg := range r.byExt {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// Wildcard returns the catch-all registration, if any.
func (r *Registry) Wildcard() (Registration, bool) {
	if r.wildcard == nil {
		return Registration{}, false
	}
	return *r.wildcard, true
}
