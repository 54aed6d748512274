package narrow

import (
	"sort"

	"github.com/malphas-lang/shapecheck/internal/types"
)

// Binding is a named value with its declared type and a stack of narrowed
// views. Only the scope that declares a binding owns it; nested branches
// push frames and must pop them on exit.
type Binding struct {
	Name     string
	Declared types.Type
	frames   []types.Type
}

// NewBinding declares a binding initialised with a value of type init. The
// declared type is init after widening under ctx.
func NewBinding(name string, init types.Type, ctx types.InferenceContext) *Binding {
	return &Binding{Name: name, Declared: ctx.Infer(init)}
}

// Declare creates a binding with an explicit type annotation.
func Declare(name string, t types.Type) *Binding {
	return &Binding{Name: name, Declared: t}
}

// Current returns the innermost narrowed type, or the declared type.
func (b *Binding) Current() types.Type {
	if n := len(b.frames); n > 0 {
		return b.frames[n-1]
	}
	return b.Declared
}

// Depth returns the number of frames currently pushed.
func (b *Binding) Depth() int { return len(b.frames) }

// Push narrows the binding to t and returns a function that restores the
// view seen before the push. The restore function is idempotent and also
// drops any frames pushed after this one.
func (b *Binding) Push(t types.Type) (restore func()) {
	mark := len(b.frames)
	b.frames = append(b.frames, t)
	return func() {
		if len(b.frames) > mark {
			b.frames = b.frames[:mark]
		}
	}
}

// Scope is a lexical scope of bindings.
type Scope struct {
	Parent   *Scope
	Bindings map[string]*Binding
}

// NewScope creates a new scope with an optional parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		Parent:   parent,
		Bindings: make(map[string]*Binding),
	}
}

// Insert adds a binding to the current scope, shadowing any outer binding
// of the same name.
func (s *Scope) Insert(b *Binding) {
	s.Bindings[b.Name] = b
}

// Lookup finds a binding in the current scope or any parent scope.
func (s *Scope) Lookup(name string) *Binding {
	if b, ok := s.Bindings[name]; ok {
		return b
	}
	if s.Parent != nil {
		return s.Parent.Lookup(name)
	}
	return nil
}

// Names returns the names declared directly in this scope, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.Bindings))
	for name := range s.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
