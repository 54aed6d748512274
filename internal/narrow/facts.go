package narrow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/malphas-lang/shapecheck/internal/types"
)

// Facts maps binding names to the type a guard proves on one branch.
type Facts map[string]types.Type

// Clone creates a copy of the facts.
func (f Facts) Clone() Facts {
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Overlay returns f with every fact in g applied on top.
func (f Facts) Overlay(g Facts) Facts {
	out := f.Clone()
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Names returns the refined names in sorted order.
func (f Facts) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f Facts) String() string {
	if len(f) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(f))
	for _, name := range f.Names() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, f[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// view is the type environment a guard is analysed in: scope bindings with
// facts from enclosing operands applied on top.
type view struct {
	lookup func(name string) (types.Type, bool)
	facts  Facts
}

func scopeView(s *Scope) *view {
	return &view{
		lookup: func(name string) (types.Type, bool) {
			b := s.Lookup(name)
			if b == nil {
				return nil, false
			}
			return b.Current(), true
		},
		facts: Facts{},
	}
}

func bindingView(b *Binding) *view {
	return &view{
		lookup: func(name string) (types.Type, bool) {
			if name != b.Name {
				return nil, false
			}
			return b.Current(), true
		},
		facts: Facts{},
	}
}

func (v *view) typeOf(name string) (types.Type, bool) {
	if t, ok := v.facts[name]; ok {
		return t, true
	}
	return v.lookup(name)
}

func (v *view) with(f Facts) *view {
	if len(f) == 0 {
		return v
	}
	return &view{lookup: v.lookup, facts: v.facts.Overlay(f)}
}
