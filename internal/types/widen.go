package types

// WideningPolicy controls how literal types of inferred bindings widen.
type WideningPolicy int

const (
	// WidenMutable widens every literal, as for let and var bindings.
	WidenMutable WideningPolicy = iota
	// PreserveLiterals keeps a top-level literal but widens literals nested in
	// object properties, as for const bindings.
	PreserveLiterals
	// AsConst keeps every literal and marks arrays, tuples and properties readonly.
	AsConst
)

func (p WideningPolicy) String() string {
	switch p {
	case WidenMutable:
		return "mutable"
	case PreserveLiterals:
		return "preserve"
	case AsConst:
		return "as-const"
	default:
		return "unknown"
	}
}

// InferenceContext carries inference policy explicitly through entry points
// so independent calls never share widening state.
type InferenceContext struct {
	Policy WideningPolicy
}

// Infer returns the declared type for a binding initialised with a value of
// type t.
func (ctx InferenceContext) Infer(t Type) Type {
	switch ctx.Policy {
	case AsConst:
		return freeze(t)
	case PreserveLiterals:
		if _, ok := t.(*Literal); ok {
			return t
		}
		return Widen(t)
	default:
		return Widen(t)
	}
}

// WidenLiteral converts a literal to its primitive; other types are returned
// unchanged.
func WidenLiteral(t Type) Type {
	if lit, ok := t.(*Literal); ok {
		return lit.Base()
	}
	return t
}

// Widen widens literals deeply through unions, object properties and
// array/tuple elements. Named references are not expanded.
func Widen(t Type) Type {
	switch t := t.(type) {
	case *Literal:
		return t.Base()
	case *Union:
		members := make([]Type, 0, len(t.Members))
		for _, m := range t.Members {
			w := Widen(m)
			dup := false
			for _, seen := range members {
				if Identical(seen, w) {
					dup = true
					break
				}
			}
			if !dup {
				members = append(members, w)
			}
		}
		if len(members) == 1 {
			return members[0]
		}
		return &Union{Members: members}
	case *Object:
		props := make([]Property, len(t.Props))
		for i, p := range t.Props {
			props[i] = p
			props[i].Type = Widen(p.Type)
		}
		return &Object{Props: props, Index: t.Index}
	case *Array:
		return &Array{Elem: Widen(t.Elem), Readonly: t.Readonly}
	case *Tuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Widen(e)
		}
		return &Tuple{Elems: elems, Readonly: t.Readonly}
	}
	return t
}

func freeze(t Type) Type {
	switch t := t.(type) {
	case *Object:
		props := make([]Property, len(t.Props))
		for i, p := range t.Props {
			props[i] = p
			props[i].Type = freeze(p.Type)
			props[i].Readonly = true
		}
		return &Object{Props: props, Index: t.Index}
	case *Array:
		return &Array{Elem: freeze(t.Elem), Readonly: true}
	case *Tuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = freeze(e)
		}
		return &Tuple{Elems: elems, Readonly: true}
	}
	return t
}
