package narrow_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malphas-lang/shapecheck/internal/checker"
	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/narrow"
	"github.com/malphas-lang/shapecheck/internal/types"
)

func id(name string) *narrow.Ident { return &narrow.Ident{Name: name} }

func lit(t types.Type) *narrow.Const { return &narrow.Const{Type: t} }

func bin(op narrow.Op, x, y narrow.Expr) *narrow.Binary {
	return &narrow.Binary{Op: op, X: x, Y: y}
}

func member(x narrow.Expr, name string) *narrow.Member {
	return &narrow.Member{X: x, Name: name}
}

func typeofIs(x narrow.Expr, tag string) narrow.Expr {
	return bin(narrow.OpStrictEq, &narrow.Typeof{X: x}, lit(types.StringLit(tag)))
}

func obj(props ...types.Property) *types.Object { return types.NewObject(props...) }

func prop(name string, t types.Type) types.Property { return types.Prop(name, t) }

func union(ts ...types.Type) *types.Union { return types.NewUnion(ts...) }

func shape() *types.Named {
	return types.NewArena().DeclareAs("Shape", union(
		obj(prop("kind", types.StringLit("circle")), prop("radius", types.Number)),
		obj(prop("kind", types.StringLit("square")), prop("size", types.Number)),
		obj(prop("kind", types.StringLit("triangle")), prop("base", types.Number), prop("height", types.Number)),
	))
}

func TestNarrow(t *testing.T) {
	mixed := union(types.Number, types.NewArray(types.Number), obj(prop("a", types.String)))

	tests := []struct {
		name    string
		typ     types.Type
		guard   narrow.Expr
		onTrue  string
		onFalse string
	}{
		{
			"truthiness",
			union(types.String, types.Number, types.Null, types.Boolean),
			id("x"),
			"string | number | true",
			`"" | 0 | null | false`,
		},
		{"negation", union(types.String, types.Undefined), &narrow.Not{X: id("x")}, `"" | undefined`, "string"},
		{"typeof number", union(types.String, types.Number), typeofIs(id("x"), "number"), "number", "string"},
		{"typeof object", mixed, typeofIs(id("x"), "object"), "number[] | { a: string }", "number"},
		{"typeof null is object", union(types.String, types.Null), typeofIs(id("x"), "object"), "null", "string"},
		{"typeof unknown", types.Unknown, typeofIs(id("x"), "string"), "string", "unknown"},
		{"isArray", mixed, &narrow.IsArray{X: id("x")}, "number[]", "number | { a: string }"},
		{"typeof object on number or array", union(types.Number, types.NewArray(types.Number)), typeofIs(id("x"), "object"), "number[]", "number"},
		{"isArray on number or array", union(types.Number, types.NewArray(types.Number)), &narrow.IsArray{X: id("x")}, "number[]", "number"},
		{
			"strict literal equality",
			union(types.StringLit("a"), types.StringLit("b"), types.Number),
			bin(narrow.OpStrictEq, id("x"), lit(types.StringLit("a"))),
			`"a"`,
			`"b" | number`,
		},
		{
			"equality against a base type",
			types.String,
			bin(narrow.OpStrictEq, id("x"), lit(types.StringLit("a"))),
			`"a"`,
			"string",
		},
		{
			"constant on the left",
			union(types.StringLit("a"), types.StringLit("b")),
			bin(narrow.OpStrictNotEq, lit(types.StringLit("a")), id("x")),
			`"b"`,
			`"a"`,
		},
		{
			"loose null",
			union(types.String, types.Null, types.Undefined),
			bin(narrow.OpEq, id("x"), lit(types.Null)),
			"null | undefined",
			"string",
		},
		{
			"strict null",
			union(types.String, types.Null, types.Undefined),
			bin(narrow.OpStrictNotEq, id("x"), lit(types.Null)),
			"string | undefined",
			"null",
		},
		{
			"discriminant",
			shape(),
			bin(narrow.OpStrictEq, member(id("x"), "kind"), lit(types.StringLit("circle"))),
			`{ kind: "circle"; radius: number }`,
			`{ kind: "square"; size: number } | { kind: "triangle"; base: number; height: number }`,
		},
		{
			"conditional guard",
			union(types.String, types.Number, types.Undefined),
			&narrow.Cond{Test: typeofIs(id("x"), "string"), Then: lit(types.BoolLit(true)), Else: id("x")},
			"string | number",
			`string | 0 | undefined`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := narrow.NewEngine(checker.NewDefault())
			b := narrow.Declare("x", tt.typ)

			assert.Equal(t, tt.onTrue, e.Narrow(b, tt.guard, true).String())
			assert.Equal(t, tt.onFalse, e.Narrow(b, tt.guard, false).String())
			assert.Zero(t, b.Depth(), "narrow must not modify the binding")
			assert.Empty(t, e.Checker().Diagnostics())
		})
	}
}

func TestNarrowUnrelatedBinding(t *testing.T) {
	e := narrow.NewEngine(checker.NewDefault())
	b := narrow.Declare("x", union(types.String, types.Null))

	got := e.Narrow(b, id("y"), true)
	assert.Equal(t, "string | null", got.String())
}

func TestNarrowInstanceof(t *testing.T) {
	date := obj(prop("getTime", &types.Function{Return: types.Number}))
	e := narrow.NewEngine(checker.NewDefault())

	b := narrow.Declare("x", union(date, types.String))
	guard := &narrow.Instanceof{X: id("x"), Class: date}
	assert.True(t, types.Identical(date, e.Narrow(b, guard, true)))
	assert.Equal(t, b.Declared, e.Narrow(b, guard, false), "the false branch keeps the declared type")

	opaque := narrow.Declare("y", types.Unknown)
	assert.True(t, types.Identical(date, e.Narrow(opaque, &narrow.Instanceof{X: id("y"), Class: date}, true)))
}

func TestRefineComposes(t *testing.T) {
	tests := []struct {
		name   string
		guard  narrow.Expr
		branch bool
		want   string
	}{
		{"both truthy", bin(narrow.OpAnd, id("x"), id("y")), true, "{x: string, y: number}"},
		{"either falsy is not provable", bin(narrow.OpAnd, id("x"), id("y")), false, `{x: "" | undefined | string}`},
		{"both falsy", bin(narrow.OpOr, id("x"), id("y")), false, `{x: "" | undefined, y: 0 | null}`},
		{"right operand sees left facts", bin(narrow.OpAnd, id("x"), typeofIs(id("x"), "string")), true, "{x: string}"},
		{"nullish coalescing proves nothing", bin(narrow.OpNullish, id("x"), id("y")), true, "{}"},
		{"nullish with a truthy fallback", bin(narrow.OpNullish, id("x"), lit(types.StringLit("d"))), true, "{}"},
		{"nullish with an empty string fallback", bin(narrow.OpNullish, id("x"), lit(types.StringLit(""))), true, "{x: string}"},
		{"nullish with a zero fallback", bin(narrow.OpNullish, id("x"), lit(types.NumberLit(0))), true, "{x: string}"},
		{"nullish with a null fallback", bin(narrow.OpNullish, id("y"), lit(types.Null)), true, "{y: number}"},
		{"falsy nullish coalescing", bin(narrow.OpNullish, id("x"), id("y")), false, `{x: "" | undefined}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := narrow.NewEngine(checker.NewDefault())
			s := narrow.NewScope(nil)
			s.Insert(narrow.Declare("x", union(types.String, types.Undefined)))
			s.Insert(narrow.Declare("y", union(types.Number, types.Null)))

			assert.Equal(t, tt.want, e.Refine(s, tt.guard, tt.branch).String())
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		decl types.Type
		expr narrow.Expr
		want string
	}{
		{"and narrows the right operand", union(types.NewArray(types.String), types.Undefined), bin(narrow.OpAnd, id("x"), member(id("x"), "length")), "number | undefined"},
		{"or keeps truthy left", union(types.String, types.Undefined), bin(narrow.OpOr, id("x"), lit(types.StringLit("d"))), `string | "d"`},
		{"nullish drops null", union(types.String, types.Null), bin(narrow.OpNullish, id("x"), lit(types.StringLit("d"))), `string | "d"`},
		{"nullish of undefined", types.Undefined, bin(narrow.OpNullish, id("x"), lit(types.NumberLit(1))), "1"},
		{"nullish keeps false", union(types.Boolean, types.Null), bin(narrow.OpNullish, id("x"), lit(types.Number)), "boolean | number"},
		{"nullish without nullish members", types.String, bin(narrow.OpNullish, id("x"), lit(types.Number)), "string"},
		{"nullish keeps literal false", types.BoolLit(false), bin(narrow.OpNullish, id("x"), lit(types.Number)), "false"},
		{"nullish keeps zero", types.NumberLit(0), bin(narrow.OpNullish, id("x"), lit(types.StringLit("d"))), "0"},
		{"nullish keeps empty string", types.StringLit(""), bin(narrow.OpNullish, id("x"), lit(types.NumberLit(1))), `""`},
		{"typeof result", union(types.String, types.Number), &narrow.Typeof{X: id("x")}, `"string" | "number"`},
		{"typeof of unknown", types.Unknown, &narrow.Typeof{X: id("x")}, `"string" | "number" | "boolean" | "undefined" | "object" | "function" | "bigint" | "symbol"`},
		{
			"optional member",
			union(obj(prop("a", types.String)), types.Undefined),
			&narrow.Member{X: id("x"), Name: "a", Optional: true},
			"string | undefined",
		},
		{
			"conditional",
			union(types.String, types.Number),
			&narrow.Cond{Test: typeofIs(id("x"), "string"), Then: member(id("x"), "length"), Else: id("x")},
			"number",
		},
		{"comparison", types.String, bin(narrow.OpStrictEq, id("x"), lit(types.StringLit("a"))), "boolean"},
		{"predicate", types.String, &narrow.IsArray{X: id("x")}, "boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := narrow.NewEngine(checker.NewDefault())
			s := narrow.NewScope(nil)
			s.Insert(narrow.Declare("x", tt.decl))

			assert.Equal(t, tt.want, e.TypeOf(s, tt.expr).String())
			assert.Empty(t, e.Checker().Diagnostics())
		})
	}
}

func TestTypeOfReportsErrors(t *testing.T) {
	e := narrow.NewEngine(checker.NewDefault())
	s := narrow.NewScope(nil)
	s.Insert(narrow.Declare("x", obj(prop("a", types.String))))

	assert.Equal(t, types.Type(types.Unknown), e.TypeOf(s, id("missing")))
	assert.True(t, e.Checker().Reporter.HasCode(diag.CodeUndefinedBinding))

	assert.Equal(t, types.Type(types.Unknown), e.TypeOf(s, member(id("x"), "b")))
	assert.True(t, e.Checker().Reporter.HasCode(diag.CodeUnknownProperty))
}

func TestBranchRestoresFrames(t *testing.T) {
	e := narrow.NewEngine(checker.NewDefault())
	s := narrow.NewScope(nil)
	x := narrow.Declare("x", union(types.String, types.Undefined))
	s.Insert(x)

	boom := errors.New("boom")
	err := e.Branch(s, id("x"), true, func(inner *narrow.Scope) error {
		assert.Equal(t, 1, x.Depth())
		assert.Equal(t, "string", inner.Lookup("x").Current().String())

		return e.Branch(inner, typeofIs(id("x"), "string"), false, func(*narrow.Scope) error {
			assert.Equal(t, 2, x.Depth())
			assert.Equal(t, "never", x.Current().String())
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, x.Depth())
	assert.Equal(t, "string | undefined", x.Current().String())

	assert.Panics(t, func() {
		_ = e.Branch(s, id("x"), false, func(*narrow.Scope) error {
			panic("body failed")
		})
	})
	assert.Zero(t, x.Depth(), "frames are popped when the body panics")
}

func TestBinding(t *testing.T) {
	b := narrow.NewBinding("x", types.StringLit("a"), types.InferenceContext{Policy: types.WidenMutable})
	assert.Equal(t, "string", b.Declared.String())

	c := narrow.NewBinding("c", types.StringLit("a"), types.InferenceContext{Policy: types.PreserveLiterals})
	assert.Equal(t, `"a"`, c.Current().String())

	outer := b.Push(types.StringLit("x"))
	inner := b.Push(types.StringLit("y"))
	assert.Equal(t, `"y"`, b.Current().String())
	inner()
	assert.Equal(t, `"x"`, b.Current().String())

	b.Push(types.StringLit("z"))
	outer()
	assert.Zero(t, b.Depth(), "restore drops frames pushed after it")
	outer()
	assert.Equal(t, "string", b.Current().String())
}

func TestScope(t *testing.T) {
	global := narrow.NewScope(nil)
	global.Insert(narrow.Declare("a", types.String))
	global.Insert(narrow.Declare("b", types.Number))

	local := narrow.NewScope(global)
	local.Insert(narrow.Declare("a", types.Boolean))

	require.NotNil(t, local.Lookup("a"))
	assert.Equal(t, "boolean", local.Lookup("a").Declared.String())
	assert.Equal(t, "number", local.Lookup("b").Declared.String())
	assert.Nil(t, local.Lookup("c"))
	assert.Equal(t, []string{"a", "b"}, global.Names())
	assert.Equal(t, []string{"a"}, local.Names())
}

func TestFacts(t *testing.T) {
	f := narrow.Facts{"b": types.Number, "a": types.String}
	assert.Equal(t, []string{"a", "b"}, f.Names())
	assert.Equal(t, "{a: string, b: number}", f.String())

	g := f.Overlay(narrow.Facts{"a": types.StringLit("x")})
	assert.Equal(t, `{a: "x", b: number}`, g.String())
	assert.Equal(t, "{a: string, b: number}", f.String(), "overlay does not modify the receiver")

	assert.Equal(t, "{}", narrow.Facts{}.String())
}
