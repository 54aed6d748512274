// Package narrow refines the static types of bindings along control-flow
// branches and computes the static types of guard expressions.
package narrow

import (
	"log/slog"

	"github.com/malphas-lang/shapecheck/internal/checker"
	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// Engine narrows bindings using a Checker for every type relation.
type Engine struct {
	c   *checker.Checker
	log *slog.Logger
}

// NewEngine creates an engine backed by c.
func NewEngine(c *checker.Checker) *Engine {
	return &Engine{c: c, log: c.Logger()}
}

// Checker returns the checker the engine reports to.
func (e *Engine) Checker() *checker.Checker { return e.c }

// Narrow returns the type of b on the given branch of guard. It does not
// modify b. Names in guard other than b's are treated as unknown.
func (e *Engine) Narrow(b *Binding, guard Expr, branch bool) types.Type {
	facts := e.refine(bindingView(b), guard, branch)
	if t, ok := facts[b.Name]; ok {
		return t
	}
	return b.Current()
}

// Refine returns the facts guard proves about the bindings of s on the
// given branch.
func (e *Engine) Refine(s *Scope, guard Expr, branch bool) Facts {
	return e.refine(scopeView(s), guard, branch)
}

// Branch runs body with every binding refined by guard narrowed for the
// chosen branch. Exactly the frames pushed here are popped when body
// returns, panics included.
func (e *Engine) Branch(s *Scope, guard Expr, branch bool, body func(*Scope) error) error {
	restore := e.pushFacts(s, e.Refine(s, guard, branch))
	defer restore()
	return body(s)
}

func (e *Engine) pushFacts(s *Scope, facts Facts) func() {
	var restores []func()
	for _, name := range facts.Names() {
		b := s.Lookup(name)
		if b == nil {
			continue
		}
		e.log.Debug("narrowed binding", "name", name, "from", b.Current().String(), "to", facts[name].String())
		restores = append(restores, b.Push(facts[name]))
	}
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}

// TypeOf computes the static type of expr in s.
func (e *Engine) TypeOf(s *Scope, expr Expr) types.Type {
	switch x := expr.(type) {
	case *Ident:
		b := s.Lookup(x.Name)
		if b == nil {
			e.c.Reporter.Error(diag.StageNarrow, diag.CodeUndefinedBinding, "cannot find name %q", x.Name)
			return types.Unknown
		}
		return b.Current()

	case *Const:
		if x.Type == nil {
			return types.Unknown
		}
		return x.Type

	case *Typeof:
		return e.typeofResult(e.TypeOf(s, x.X))

	case *Instanceof, *IsArray, *Not:
		return types.Boolean

	case *Member:
		return e.memberType(s, x)

	case *Binary:
		return e.binaryType(s, x)

	case *Cond:
		var then, els types.Type
		_ = e.Branch(s, x.Test, true, func(s *Scope) error {
			then = e.TypeOf(s, x.Then)
			return nil
		})
		_ = e.Branch(s, x.Test, false, func(s *Scope) error {
			els = e.TypeOf(s, x.Else)
			return nil
		})
		return e.c.Normalize(types.NewUnion(then, els))
	}
	return types.Unknown
}

func (e *Engine) memberType(s *Scope, m *Member) types.Type {
	obj := e.TypeOf(s, m.X)
	if m.Optional {
		obj = e.c.Normalize(checker.NonNullable(obj))
		if types.IsNever(obj) {
			return types.Undefined
		}
	}
	pt, ok := e.c.PropertyOf(obj, m.Name)
	if !ok {
		e.c.Reporter.Error(diag.StageNarrow, diag.CodeUnknownProperty, "property %q does not exist on type %s", m.Name, obj)
		pt = types.Unknown
	}
	if m.Optional {
		return e.c.Normalize(types.Optional(pt))
	}
	return pt
}

func (e *Engine) binaryType(s *Scope, b *Binary) types.Type {
	switch b.Op {
	case OpAnd:
		left := e.TypeOf(s, b.X)
		var right types.Type
		_ = e.Branch(s, b.X, true, func(s *Scope) error {
			right = e.TypeOf(s, b.Y)
			return nil
		})
		return e.c.Normalize(types.NewUnion(right, e.falsy(left)))

	case OpOr:
		left := e.TypeOf(s, b.X)
		var right types.Type
		_ = e.Branch(s, b.X, false, func(s *Scope) error {
			right = e.TypeOf(s, b.Y)
			return nil
		})
		return e.c.Normalize(types.NewUnion(e.truthy(left), right))

	case OpNullish:
		left := e.c.Normalize(e.TypeOf(s, b.X))
		right := e.TypeOf(s, b.Y)
		return e.coalesce(left, right)

	case OpStrictEq, OpStrictNotEq, OpEq, OpNotEq:
		e.TypeOf(s, b.X)
		e.TypeOf(s, b.Y)
		return types.Boolean
	}
	return types.Unknown
}

// coalesce is the type of left ?? right. Only null and undefined fall
// through to right; other falsy values are kept.
func (e *Engine) coalesce(left, right types.Type) types.Type {
	all := e.members(left)
	kept := make([]types.Type, 0, len(all))
	for _, m := range all {
		if types.IsNullish(m) || types.IsPrimitive(m, types.KindVoid) {
			continue
		}
		kept = append(kept, m)
	}
	switch len(kept) {
	case len(all):
		return left
	case 0:
		return e.c.Normalize(right)
	}
	return e.c.Normalize(&types.Union{Members: append(kept, right)})
}

func (e *Engine) typeofResult(t types.Type) types.Type {
	var tags []types.Type
	for _, m := range e.members(t) {
		if types.IsNever(m) {
			continue
		}
		tag, ok := types.TypeofTag(e.c.Expand(m))
		if !ok {
			tags = tags[:0]
			for _, all := range types.TypeofTags {
				tags = append(tags, types.StringLit(all))
			}
			break
		}
		tags = append(tags, types.StringLit(tag))
	}
	return e.c.Normalize(&types.Union{Members: tags})
}

// members returns the normalized members of t. Named unions are expanded.
func (e *Engine) members(t types.Type) []types.Type {
	n := e.c.Normalize(t)
	switch n.(type) {
	case *types.Named, *types.Generic:
		if u, ok := e.c.Expand(n).(*types.Union); ok {
			return u.Members
		}
	}
	return types.Members(n)
}
