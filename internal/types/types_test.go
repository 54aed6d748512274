package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want string
	}{
		{"primitive", String, "string"},
		{"string literal", StringLit("a"), `"a"`},
		{"number literal", NumberLit(1.5), "1.5"},
		{"bool literal", BoolLit(false), "false"},
		{"empty object", NewObject(), "{}"},
		{
			"object",
			&Object{Props: []Property{
				{Name: "id", Type: Number, Readonly: true},
				OptionalProp("email", String),
			}},
			"{ readonly id: number; email?: string }",
		},
		{
			"index signature",
			&Object{Index: &IndexSignature{Key: String, Value: Number}},
			"{ [key: string]: number }",
		},
		{"array of union", NewArray(NewUnion(String, Number)), "(string | number)[]"},
		{"readonly array", &Array{Elem: String, Readonly: true}, "readonly string[]"},
		{"tuple", NewTuple(String, Number), "[string, number]"},
		{
			"function",
			&Function{
				Params: []Param{{Name: "x", Type: Number}, {Type: String, Optional: true}},
				Rest:   Boolean,
				Return: String,
			},
			"(x: number, arg1?: string, ...rest: boolean[]) => string",
		},
		{"void function", &Function{}, "() => void"},
		{"empty union", NewUnion(), "never"},
		{"empty intersection", NewIntersection(), "unknown"},
		{
			"nested function in union",
			NewUnion(&Function{Return: Number}, Null),
			"(() => number) | null",
		},
		{"generic", Apply("Pick", NewObject(Prop("a", String)), StringLit("a")), `Pick<{ a: string }, "a">`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestLiteralValueFalsy(t *testing.T) {
	assert.True(t, StringValue("").Falsy())
	assert.True(t, NumberValue(0).Falsy())
	assert.True(t, BoolValue(false).Falsy())
	assert.False(t, StringValue("x").Falsy())
	assert.False(t, NumberValue(-1).Falsy())
	assert.False(t, BoolValue(true).Falsy())
}

func TestArena(t *testing.T) {
	a := NewArena()
	list := a.Declare("List")
	require.Same(t, list, a.Declare("List"), "redeclaring returns the same reference")
	assert.Nil(t, list.Resolve())
	assert.Equal(t, []string{"List"}, a.Undefined())

	def := NewObject(Prop("next", NewUnion(list, Null)))
	require.NoError(t, a.Define(list, def))
	assert.Same(t, def, list.Resolve())
	assert.Empty(t, a.Undefined())

	got, ok := a.Get("List")
	require.True(t, ok)
	assert.Same(t, list, got)
	assert.Equal(t, 1, a.Len())

	_, ok = a.Get("Missing")
	assert.False(t, ok)
}

func TestArenaRejectsSelfDefinition(t *testing.T) {
	a := NewArena()
	n := a.Declare("Loop")
	assert.Error(t, a.Define(n, n))

	other := NewArena().Declare("Other")
	assert.Error(t, a.Define(other, String))
}

func TestIdentical(t *testing.T) {
	a := NewArena()
	list := a.Declare("List")
	require.NoError(t, a.Define(list, NewObject(Prop("value", Number), Prop("next", NewUnion(list, Null)))))

	tree := a.Declare("Tree")
	require.NoError(t, a.Define(tree, NewObject(Prop("value", Number), Prop("next", NewUnion(tree, Null)))))

	tests := []struct {
		name string
		a, b Type
		want bool
	}{
		{"same primitive", String, String, true},
		{"different primitives", String, Number, false},
		{"equal literals", StringLit("a"), StringLit("a"), true},
		{"literal and base", StringLit("a"), String, false},
		{
			"property order ignored",
			NewObject(Prop("a", String), Prop("b", Number)),
			NewObject(Prop("b", Number), Prop("a", String)),
			true,
		},
		{
			"optional differs",
			NewObject(Prop("a", String)),
			NewObject(OptionalProp("a", String)),
			false,
		},
		{"union member order ignored", NewUnion(String, Number), NewUnion(Number, String), true},
		{"readonly array differs", NewArray(String), &Array{Elem: String, Readonly: true}, false},
		{"nil return is void", &Function{}, &Function{Return: Void}, true},
		{"recursive named types", list, tree, true},
		{"named against its definition", list, list.Resolve(), true},
		{"nil", nil, String, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identical(tt.a, tt.b))
		})
	}
}

func TestWiden(t *testing.T) {
	obj := NewObject(Prop("kind", StringLit("circle")), Prop("r", NumberLit(1)))

	tests := []struct {
		name   string
		policy WideningPolicy
		in     Type
		want   string
	}{
		{"mutable literal", WidenMutable, StringLit("a"), "string"},
		{"mutable union collapses", WidenMutable, NewUnion(StringLit("a"), StringLit("b")), "string"},
		{"mutable object", WidenMutable, obj, "{ kind: string; r: number }"},
		{"preserve top-level literal", PreserveLiterals, NumberLit(42), "42"},
		{"preserve widens nested", PreserveLiterals, obj, "{ kind: string; r: number }"},
		{"as const freezes", AsConst, obj, `{ readonly kind: "circle"; readonly r: 1 }`},
		{"as const tuple", AsConst, NewTuple(NumberLit(1), StringLit("a")), `readonly [1, "a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferenceContext{Policy: tt.policy}.Infer(tt.in)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTypeofTag(t *testing.T) {
	tests := []struct {
		typ   Type
		tag   string
		known bool
	}{
		{String, "string", true},
		{NumberLit(3), "number", true},
		{Null, "object", true},
		{Void, "undefined", true},
		{NewArray(Number), "object", true},
		{&Function{}, "function", true},
		{NewUnion(String, Number), "", false},
		{Unknown, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			tag, known := TypeofTag(tt.typ)
			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.tag, tag)
		})
	}
}

func TestOptional(t *testing.T) {
	assert.Equal(t, "string | undefined", Optional(String).String())
	already := NewUnion(String, Undefined)
	assert.Same(t, Type(already), Optional(already))
}
