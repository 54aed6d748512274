package types

import (
	"strconv"
	"strings"
)

// Type represents a type in the structural type system.
//
// The set of implementations is closed: isType is unexported, so every
// switch over a Type in this module can enumerate all kinds.
type Type interface {
	String() string
	isType()
}

// PrimitiveKind represents the kind of a primitive type.
type PrimitiveKind string

const (
	KindString    PrimitiveKind = "string"
	KindNumber    PrimitiveKind = "number"
	KindBoolean   PrimitiveKind = "boolean"
	KindVoid      PrimitiveKind = "void"
	KindNever     PrimitiveKind = "never"
	KindUnknown   PrimitiveKind = "unknown"
	KindAny       PrimitiveKind = "any"
	KindNull      PrimitiveKind = "null"
	KindUndefined PrimitiveKind = "undefined"
)

// Primitive represents a primitive type.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) isType()        {}

// Common primitive instances
var (
	String    = &Primitive{Kind: KindString}
	Number    = &Primitive{Kind: KindNumber}
	Boolean   = &Primitive{Kind: KindBoolean}
	Void      = &Primitive{Kind: KindVoid}
	Never     = &Primitive{Kind: KindNever}
	Unknown   = &Primitive{Kind: KindUnknown}
	Any       = &Primitive{Kind: KindAny}
	Null      = &Primitive{Kind: KindNull}
	Undefined = &Primitive{Kind: KindUndefined}
)

// PrimitiveOf returns the shared instance for kind.
func PrimitiveOf(kind PrimitiveKind) (*Primitive, bool) {
	switch kind {
	case KindString:
		return String, true
	case KindNumber:
		return Number, true
	case KindBoolean:
		return Boolean, true
	case KindVoid:
		return Void, true
	case KindNever:
		return Never, true
	case KindUnknown:
		return Unknown, true
	case KindAny:
		return Any, true
	case KindNull:
		return Null, true
	case KindUndefined:
		return Undefined, true
	}
	return nil, false
}

// LiteralValue is a string, number or boolean constant. It is comparable and
// can be used as a map or set key.
type LiteralValue struct {
	Kind PrimitiveKind // KindString, KindNumber or KindBoolean
	Str  string
	Num  float64
	Bool bool
}

// StringValue, NumberValue and BoolValue build literal values.
func StringValue(s string) LiteralValue  { return LiteralValue{Kind: KindString, Str: s} }
func NumberValue(n float64) LiteralValue { return LiteralValue{Kind: KindNumber, Num: n} }
func BoolValue(b bool) LiteralValue      { return LiteralValue{Kind: KindBoolean, Bool: b} }

func (v LiteralValue) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	default:
		return "<invalid literal>"
	}
}

// Falsy reports whether the constant is falsy at runtime ("", 0, false).
func (v LiteralValue) Falsy() bool {
	switch v.Kind {
	case KindString:
		return v.Str == ""
	case KindNumber:
		return v.Num == 0
	case KindBoolean:
		return !v.Bool
	}
	return false
}

// Literal represents a single constant value type, e.g. "a", 42 or true.
type Literal struct {
	Value LiteralValue
}

func (l *Literal) String() string { return l.Value.String() }
func (l *Literal) isType()        {}

// Base returns the primitive a literal widens to.
func (l *Literal) Base() *Primitive {
	p, ok := PrimitiveOf(l.Value.Kind)
	if !ok {
		return Never
	}
	return p
}

// NewLiteral, StringLit, NumberLit and BoolLit build literal types.
func NewLiteral(v LiteralValue) *Literal { return &Literal{Value: v} }
func StringLit(s string) *Literal       { return &Literal{Value: StringValue(s)} }
func NumberLit(n float64) *Literal      { return &Literal{Value: NumberValue(n)} }
func BoolLit(b bool) *Literal           { return &Literal{Value: BoolValue(b)} }

// Property is a named member of an object type.
type Property struct {
	Name     string
	Type     Type
	Optional bool
	Readonly bool
}

// IndexSignature describes [key: Key]: Value.
type IndexSignature struct {
	Key   Type
	Value Type
}

// Object represents a structural object shape. Property order is insertion
// order; it matters for display only.
type Object struct {
	Props []Property
	Index *IndexSignature
}

func (o *Object) isType() {}

// Prop finds a property by name.
func (o *Object) Prop(name string) (Property, bool) {
	for _, p := range o.Props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Names returns the property names in declaration order.
func (o *Object) Names() []string {
	names := make([]string, 0, len(o.Props))
	for _, p := range o.Props {
		names = append(names, p.Name)
	}
	return names
}

func (o *Object) String() string {
	if len(o.Props) == 0 && o.Index == nil {
		return "{}"
	}
	var parts []string
	if o.Index != nil {
		parts = append(parts, "[key: "+o.Index.Key.String()+"]: "+o.Index.Value.String())
	}
	for _, p := range o.Props {
		var sb strings.Builder
		if p.Readonly {
			sb.WriteString("readonly ")
		}
		sb.WriteString(p.Name)
		if p.Optional {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		sb.WriteString(p.Type.String())
		parts = append(parts, sb.String())
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// NewObject builds an object type from properties.
func NewObject(props ...Property) *Object {
	return &Object{Props: props}
}

// Prop builds a required, mutable property.
func Prop(name string, t Type) Property {
	return Property{Name: name, Type: t}
}

// OptionalProp builds an optional property.
func OptionalProp(name string, t Type) Property {
	return Property{Name: name, Type: t, Optional: true}
}

// Array represents T[] or readonly T[].
type Array struct {
	Elem     Type
	Readonly bool
}

func (a *Array) isType() {}

func (a *Array) String() string {
	elem := a.Elem.String()
	if needsParens(a.Elem) {
		elem = "(" + elem + ")"
	}
	if a.Readonly {
		return "readonly " + elem + "[]"
	}
	return elem + "[]"
}

// NewArray builds a mutable array type.
func NewArray(elem Type) *Array { return &Array{Elem: elem} }

// Tuple represents a fixed-length sequence [A, B, ...].
type Tuple struct {
	Elems    []Type
	Readonly bool
}

func (t *Tuple) isType() {}

func (t *Tuple) String() string {
	s := "[" + joinTypes(t.Elems, ", ") + "]"
	if t.Readonly {
		return "readonly " + s
	}
	return s
}

// NewTuple builds a mutable tuple type.
func NewTuple(elems ...Type) *Tuple { return &Tuple{Elems: elems} }

// Param is a function parameter.
type Param struct {
	Name     string
	Type     Type
	Optional bool
}

// Function represents a call signature.
type Function struct {
	Params []Param
	Rest   Type // element type of the rest parameter, nil if absent
	Return Type
	// Method marks a method-shaped signature. Method parameters are
	// compared bivariantly, plain function values contravariantly.
	Method bool
}

func (f *Function) isType() {}

func (f *Function) String() string {
	var params []string
	for i, p := range f.Params {
		name := p.Name
		if name == "" {
			name = "arg" + strconv.Itoa(i)
		}
		if p.Optional {
			name += "?"
		}
		params = append(params, name+": "+p.Type.String())
	}
	if f.Rest != nil {
		rest := f.Rest.String()
		if needsParens(f.Rest) {
			rest = "(" + rest + ")"
		}
		params = append(params, "...rest: "+rest+"[]")
	}
	ret := "void"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return "(" + strings.Join(params, ", ") + ") => " + ret
}

// Union represents A | B | ...
type Union struct {
	Members []Type
}

func (u *Union) isType() {}

func (u *Union) String() string {
	if len(u.Members) == 0 {
		return "never"
	}
	return joinMembers(u.Members, " | ")
}

// NewUnion builds a union without normalizing it.
func NewUnion(members ...Type) *Union { return &Union{Members: members} }

// Intersection represents A & B & ...
type Intersection struct {
	Members []Type
}

func (i *Intersection) isType() {}

func (i *Intersection) String() string {
	if len(i.Members) == 0 {
		return "unknown"
	}
	return joinMembers(i.Members, " & ")
}

// NewIntersection builds an intersection without normalizing it.
func NewIntersection(members ...Type) *Intersection { return &Intersection{Members: members} }

// Generic is an unevaluated application of a utility transform, such as
// Pick<User, "id">. The checker evaluates it on demand.
type Generic struct {
	Utility string
	Base    Type
	Args    []Type
}

func (g *Generic) isType() {}

func (g *Generic) String() string {
	args := []Type{g.Base}
	args = append(args, g.Args...)
	return g.Utility + "<" + joinTypes(args, ", ") + ">"
}

// Apply builds a generic application.
func Apply(utility string, base Type, args ...Type) *Generic {
	return &Generic{Utility: utility, Base: base, Args: args}
}

func joinTypes(ts []Type, sep string) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, sep)
}

func joinMembers(ts []Type, sep string) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		s := t.String()
		if needsParens(t) {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep)
}

func needsParens(t Type) bool {
	switch t := t.(type) {
	case *Function:
		return true
	case *Union:
		return len(t.Members) > 1
	case *Intersection:
		return len(t.Members) > 1
	}
	return false
}
