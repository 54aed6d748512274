package narrow

import (
	"github.com/malphas-lang/shapecheck/internal/types"
)

// mapMembers applies fn to every member of t and normalizes the union of
// the results. boolean is offered to fn as true and false separately and
// rejoined when both survive unchanged. fn returns nil to drop a member.
func (e *Engine) mapMembers(t types.Type, fn func(m types.Type) types.Type) types.Type {
	var out []types.Type
	for _, m := range e.members(t) {
		if types.IsPrimitive(m, types.KindBoolean) {
			tl, fl := types.BoolLit(true), types.BoolLit(false)
			rt, rf := fn(tl), fn(fl)
			if rt == types.Type(tl) && rf == types.Type(fl) {
				out = append(out, types.Boolean)
				continue
			}
			for _, r := range []types.Type{rt, rf} {
				if r != nil {
					out = append(out, r)
				}
			}
			continue
		}
		if r := fn(m); r != nil {
			out = append(out, r)
		}
	}
	return e.c.Normalize(&types.Union{Members: out})
}

func (e *Engine) truthiness(t types.Type, branch bool) types.Type {
	if branch {
		return e.truthy(t)
	}
	return e.falsy(t)
}

// truthy removes the members that are always falsy.
func (e *Engine) truthy(t types.Type) types.Type {
	return e.mapMembers(t, func(m types.Type) types.Type {
		switch m := m.(type) {
		case *types.Primitive:
			switch m.Kind {
			case types.KindNull, types.KindUndefined, types.KindVoid:
				return nil
			}
		case *types.Literal:
			if m.Value.Falsy() {
				return nil
			}
		}
		return m
	})
}

// falsy keeps the members that can be falsy, narrowing string and number to
// "" and 0. Objects, arrays and functions are always truthy.
func (e *Engine) falsy(t types.Type) types.Type {
	return e.mapMembers(t, func(m types.Type) types.Type {
		switch m := m.(type) {
		case *types.Primitive:
			switch m.Kind {
			case types.KindString:
				return types.StringLit("")
			case types.KindNumber:
				return types.NumberLit(0)
			}
			return m
		case *types.Literal:
			if m.Value.Falsy() {
				return m
			}
			return nil
		case *types.Object, *types.Array, *types.Tuple, *types.Function:
			return nil
		case *types.Named:
			switch e.c.Expand(m).(type) {
			case *types.Object, *types.Array, *types.Tuple, *types.Function:
				return nil
			}
		}
		return m
	})
}

// narrowTypeof keeps (or, on the false branch, removes) the members whose
// typeof result is tag. Arrays and null report "object".
func (e *Engine) narrowTypeof(t types.Type, tag string, branch bool) types.Type {
	return e.mapMembers(t, func(m types.Type) types.Type {
		if types.IsPrimitive(m, types.KindAny) || types.IsPrimitive(m, types.KindUnknown) {
			if branch {
				if p := tagPrimitive(tag); p != nil {
					return p
				}
			}
			return m
		}
		got, known := types.TypeofTag(e.c.Expand(m))
		if !known || (got == tag) == branch {
			return m
		}
		return nil
	})
}

func tagPrimitive(tag string) types.Type {
	switch tag {
	case "string":
		return types.String
	case "number":
		return types.Number
	case "boolean":
		return types.Boolean
	case "undefined":
		return types.Undefined
	}
	return nil
}

// narrowArray implements Array.isArray. It distinguishes arrays from other
// object members, which typeof cannot.
func (e *Engine) narrowArray(t types.Type, branch bool) types.Type {
	return e.mapMembers(t, func(m types.Type) types.Type {
		if types.IsPrimitive(m, types.KindAny) || types.IsPrimitive(m, types.KindUnknown) {
			if branch {
				return types.NewArray(types.Any)
			}
			return m
		}
		var isArray bool
		switch e.c.Expand(m).(type) {
		case *types.Array, *types.Tuple:
			isArray = true
		}
		if isArray == branch {
			return m
		}
		return nil
	})
}

// narrowInstance is the true branch of x instanceof C. Members that are
// already instances are kept; otherwise the class type is used if it fits
// the current type, and the intersection if it does not.
func (e *Engine) narrowInstance(t, class types.Type) types.Type {
	var kept []types.Type
	for _, m := range e.members(t) {
		if types.IsPrimitive(m, types.KindAny) || types.IsPrimitive(m, types.KindUnknown) {
			return class
		}
		if e.c.IsAssignable(m, class) {
			kept = append(kept, m)
		}
	}
	if len(kept) > 0 {
		return e.c.Normalize(&types.Union{Members: kept})
	}
	if e.c.IsAssignable(class, t) {
		return class
	}
	return e.c.Normalize(types.NewIntersection(t, class))
}

// narrowEqual narrows t by comparison with a constant of type value. Loose
// equality with null or undefined matches both.
func (e *Engine) narrowEqual(t, value types.Type, equal, loose bool) types.Type {
	nullishValue := types.IsNullish(value)
	lit, isLit := value.(*types.Literal)
	if !nullishValue && !isLit {
		return t
	}

	return e.mapMembers(t, func(m types.Type) types.Type {
		if loose && nullishValue {
			nullish := types.IsNullish(m) || types.IsPrimitive(m, types.KindVoid)
			if types.IsPrimitive(m, types.KindAny) || types.IsPrimitive(m, types.KindUnknown) {
				if equal {
					return types.NewUnion(types.Null, types.Undefined)
				}
				return m
			}
			if nullish == equal {
				return m
			}
			return nil
		}

		if equal {
			if e.c.IsAssignable(value, m) {
				return value
			}
			return nil
		}
		// Only a unit type equal to the value can be excluded.
		if isLit {
			if ml, ok := m.(*types.Literal); ok && ml.Value == lit.Value {
				return nil
			}
			return m
		}
		if types.Identical(m, value) {
			return nil
		}
		return m
	})
}
