package narrow

import (
	"github.com/malphas-lang/shapecheck/internal/types"
)

// refine returns the facts guard proves on the given branch, relative to v.
// Right operands of && and || are analysed under the facts of their left
// operand, so narrowing composes in evaluation order.
func (e *Engine) refine(v *view, guard Expr, branch bool) Facts {
	switch g := guard.(type) {
	case *Ident:
		return e.refineIdent(v, g.Name, func(t types.Type) types.Type {
			return e.truthiness(t, branch)
		})

	case *Member:
		return e.refineMember(v, g, func(t types.Type) types.Type {
			return e.truthiness(t, branch)
		})

	case *Not:
		return e.refine(v, g.X, !branch)

	case *IsArray:
		if x, ok := g.X.(*Ident); ok {
			return e.refineIdent(v, x.Name, func(t types.Type) types.Type {
				return e.narrowArray(t, branch)
			})
		}

	case *Instanceof:
		if x, ok := g.X.(*Ident); ok && branch {
			return e.refineIdent(v, x.Name, func(t types.Type) types.Type {
				return e.narrowInstance(t, g.Class)
			})
		}

	case *Binary:
		return e.refineBinary(v, g, branch)

	case *Cond:
		onTrue := e.refine(v, g.Test, true)
		onFalse := e.refine(v, g.Test, false)
		a := onTrue.Overlay(e.refine(v.with(onTrue), g.Then, branch))
		b := onFalse.Overlay(e.refine(v.with(onFalse), g.Else, branch))
		return e.join(a, b)
	}
	return Facts{}
}

func (e *Engine) refineBinary(v *view, g *Binary, branch bool) Facts {
	switch g.Op {
	case OpAnd:
		left := e.refine(v, g.X, true)
		if branch {
			return left.Overlay(e.refine(v.with(left), g.Y, true))
		}
		short := e.refine(v, g.X, false)
		long := left.Overlay(e.refine(v.with(left), g.Y, false))
		return e.join(short, long)

	case OpOr:
		left := e.refine(v, g.X, false)
		if !branch {
			return left.Overlay(e.refine(v.with(left), g.Y, false))
		}
		short := e.refine(v, g.X, true)
		long := left.Overlay(e.refine(v.with(left), g.Y, true))
		return e.join(short, long)

	case OpNullish:
		// A falsy result is either a falsy left operand or a nullish one.
		if !branch {
			return e.refine(v, g.X, false)
		}
		// A truthy result can only come from the left operand when the
		// fallback is a constant that is never truthy.
		if c, ok := g.Y.(*Const); ok && c.Type != nil && types.IsNever(e.truthy(c.Type)) {
			return e.refine(v, g.X, true)
		}
		return Facts{}

	case OpStrictEq, OpStrictNotEq, OpEq, OpNotEq:
		eq := g.Op == OpStrictEq || g.Op == OpEq
		loose := g.Op == OpEq || g.Op == OpNotEq
		want := branch == eq
		if f, ok := e.refineEquality(v, g.X, g.Y, want, loose); ok {
			return f
		}
		if f, ok := e.refineEquality(v, g.Y, g.X, want, loose); ok {
			return f
		}
	}
	return Facts{}
}

// refineEquality handles subject == value where value is a constant. It
// reports false when the operands have no narrowing shape.
func (e *Engine) refineEquality(v *view, subject, value Expr, equal, loose bool) (Facts, bool) {
	c, ok := value.(*Const)
	if !ok || c.Type == nil {
		return nil, false
	}

	switch s := subject.(type) {
	case *Typeof:
		x, ok := s.X.(*Ident)
		lit, isLit := c.Type.(*types.Literal)
		if !ok || !isLit || lit.Value.Kind != types.KindString {
			return nil, false
		}
		return e.refineIdent(v, x.Name, func(t types.Type) types.Type {
			return e.narrowTypeof(t, lit.Value.Str, equal)
		}), true
	case *Ident:
		return e.refineIdent(v, s.Name, func(t types.Type) types.Type {
			return e.narrowEqual(t, c.Type, equal, loose)
		}), true
	case *Member:
		return e.refineMember(v, s, func(t types.Type) types.Type {
			return e.narrowEqual(t, c.Type, equal, loose)
		}), true
	}
	return nil, false
}

func (e *Engine) refineIdent(v *view, name string, narrow func(types.Type) types.Type) Facts {
	cur, ok := v.typeOf(name)
	if !ok {
		return Facts{}
	}
	return Facts{name: narrow(cur)}
}

// refineMember narrows the object of x.name (or x?.name) to the members
// whose property type survives test. Members without the property are
// kept. For optional access a nullish member reads as undefined.
func (e *Engine) refineMember(v *view, m *Member, test func(types.Type) types.Type) Facts {
	obj, ok := m.X.(*Ident)
	if !ok {
		return Facts{}
	}
	cur, ok := v.typeOf(obj.Name)
	if !ok {
		return Facts{}
	}

	var kept []types.Type
	for _, member := range e.members(cur) {
		var pt types.Type
		switch {
		case types.IsNullish(member) || types.IsPrimitive(member, types.KindVoid):
			if !m.Optional {
				continue
			}
			pt = types.Undefined
		case types.IsPrimitive(member, types.KindAny), types.IsPrimitive(member, types.KindUnknown):
			kept = append(kept, member)
			continue
		default:
			var found bool
			pt, found = e.c.PropertyOf(member, m.Name)
			if !found {
				kept = append(kept, member)
				continue
			}
		}
		if !types.IsNever(e.c.Normalize(test(pt))) {
			kept = append(kept, member)
		}
	}
	return Facts{obj.Name: e.c.Normalize(&types.Union{Members: kept})}
}

// join merges the facts of two alternative paths. A name refined on only
// one path is not refined after the join.
func (e *Engine) join(a, b Facts) Facts {
	out := Facts{}
	for name, ta := range a {
		tb, ok := b[name]
		if !ok {
			continue
		}
		out[name] = e.c.Normalize(types.NewUnion(ta, tb))
	}
	return out
}
