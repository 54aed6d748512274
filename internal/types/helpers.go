package types

// Members returns the members of a union, or t itself.
func Members(t Type) []Type {
	if u, ok := t.(*Union); ok {
		return u.Members
	}
	return []Type{t}
}

// IsPrimitive reports whether t is the primitive of the given kind.
func IsPrimitive(t Type, kind PrimitiveKind) bool {
	p, ok := t.(*Primitive)
	return ok && p.Kind == kind
}

// IsNullish reports whether t is null or undefined.
func IsNullish(t Type) bool {
	return IsPrimitive(t, KindNull) || IsPrimitive(t, KindUndefined)
}

// IsNever reports whether t is never or an empty union.
func IsNever(t Type) bool {
	if u, ok := t.(*Union); ok {
		return len(u.Members) == 0
	}
	return IsPrimitive(t, KindNever)
}

// Resolve follows Named references until it reaches a definition. It gives
// up after limit hops and reports false, as it does for undefined names.
func Resolve(t Type, limit int) (Type, bool) {
	for i := 0; i <= limit; i++ {
		n, ok := t.(*Named)
		if !ok {
			return t, true
		}
		next := n.Resolve()
		if next == nil {
			return t, false
		}
		t = next
	}
	return t, false
}

// Optional returns t | undefined.
func Optional(t Type) Type {
	for _, m := range Members(t) {
		if IsPrimitive(m, KindUndefined) {
			return t
		}
	}
	return &Union{Members: append(append([]Type{}, Members(t)...), Undefined)}
}

// TypeofTag returns the runtime typeof result for values of t, and false if
// t may produce more than one tag (unions, any, unknown, intersections).
func TypeofTag(t Type) (string, bool) {
	switch t := t.(type) {
	case *Primitive:
		switch t.Kind {
		case KindString:
			return "string", true
		case KindNumber:
			return "number", true
		case KindBoolean:
			return "boolean", true
		case KindUndefined, KindVoid:
			return "undefined", true
		case KindNull:
			return "object", true
		}
	case *Literal:
		return string(t.Value.Kind), true
	case *Object, *Array, *Tuple:
		return "object", true
	case *Function:
		return "function", true
	case *Named:
		if def, ok := Resolve(t, 64); ok {
			return TypeofTag(def)
		}
	}
	return "", false
}

// TypeofTags lists every result typeof can produce.
var TypeofTags = []string{"string", "number", "boolean", "undefined", "object", "function", "bigint", "symbol"}
