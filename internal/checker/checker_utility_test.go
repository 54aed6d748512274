package checker_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malphas-lang/shapecheck/internal/checker"
	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

func userArena() (*types.Arena, *types.Named) {
	a := types.NewArena()
	user := a.DeclareAs("User", obj(
		prop("id", types.Number),
		prop("name", types.String),
		opt("email", types.String),
	))
	return a, user
}

func TestApplyUtility(t *testing.T) {
	_, user := userArena()
	greet := &types.Function{
		Params: []types.Param{{Name: "name", Type: types.String}, {Name: "times", Type: types.Number, Optional: true}},
		Rest:   types.Boolean,
		Return: types.String,
	}

	tests := []struct {
		name    string
		utility string
		base    types.Type
		args    []types.Type
		want    string
	}{
		{"pick one", checker.UtilityPick, user, []types.Type{types.StringLit("name")}, "{ name: string }"},
		{
			"pick keeps declaration order",
			checker.UtilityPick, user,
			[]types.Type{union(types.StringLit("email"), types.StringLit("id"))},
			"{ id: number; email?: string }",
		},
		{"pick nothing", checker.UtilityPick, user, []types.Type{types.Never}, "{}"},
		{"omit", checker.UtilityOmit, user, []types.Type{types.StringLit("email")}, "{ id: number; name: string }"},
		{"omit unknown key is a no-op", checker.UtilityOmit, user, []types.Type{types.StringLit("nope")}, "{ id: number; name: string; email?: string }"},
		{"partial", checker.UtilityPartial, user, nil, "{ id?: number; name?: string; email?: string }"},
		{"required", checker.UtilityRequired, user, nil, "{ id: number; name: string; email: string }"},
		{"readonly object", checker.UtilityReadonly, user, nil, "{ readonly id: number; readonly name: string; readonly email?: string }"},
		{"readonly array", checker.UtilityReadonly, types.NewArray(types.String), nil, "readonly string[]"},
		{"readonly tuple", checker.UtilityReadonly, types.NewTuple(types.String), nil, "readonly [string]"},
		{"return type", checker.UtilityReturnType, greet, nil, "string"},
		{"return type of void function", checker.UtilityReturnType, &types.Function{}, nil, "void"},
		{"parameters", checker.UtilityParameters, greet, nil, "[string, number | undefined]"},
		{"non-nullable", checker.UtilityNonNullable, union(types.String, types.Null, types.Undefined), nil, "string"},
		{"non-nullable of null", checker.UtilityNonNullable, types.Null, nil, "never"},
		{
			"nested generic base",
			checker.UtilityPick,
			types.Apply(checker.UtilityPartial, user),
			[]types.Type{types.StringLit("id")},
			"{ id?: number }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checker.NewDefault()
			got, err := c.ApplyUtility(tt.utility, tt.base, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Empty(t, c.Diagnostics())
		})
	}
}

func TestApplyUtilityErrors(t *testing.T) {
	_, user := userArena()

	tests := []struct {
		name    string
		utility string
		base    types.Type
		args    []types.Type
		kind    error
		code    diag.Code
	}{
		{"unsupported", "Awaited", user, nil, checker.ErrUnsupportedUtility, diag.CodeUnsupportedUtility},
		{"pick unknown key", checker.UtilityPick, user, []types.Type{types.StringLit("nope")}, checker.ErrUnknownProperty, diag.CodeUnknownProperty},
		{"pick without keys", checker.UtilityPick, user, nil, checker.ErrInvalidArgument, diag.CodeInvalidArgument},
		{"pick non-literal key", checker.UtilityPick, user, []types.Type{types.String}, checker.ErrInvalidArgument, diag.CodeInvalidArgument},
		{"partial of primitive", checker.UtilityPartial, types.String, nil, checker.ErrInvalidArgument, diag.CodeInvalidArgument},
		{"partial with extra argument", checker.UtilityPartial, user, []types.Type{types.String}, checker.ErrInvalidArgument, diag.CodeInvalidArgument},
		{"return type of object", checker.UtilityReturnType, user, nil, checker.ErrInvalidArgument, diag.CodeInvalidArgument},
		{"readonly of primitive", checker.UtilityReadonly, types.Number, nil, checker.ErrInvalidArgument, diag.CodeInvalidArgument},
		{"missing base", checker.UtilityPartial, nil, nil, checker.ErrInvalidArgument, diag.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checker.NewDefault()
			got, err := c.ApplyUtility(tt.utility, tt.base, tt.args...)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var ue *checker.UtilityError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tt.utility, ue.Utility)
			assert.True(t, c.Reporter.HasCode(tt.code))
		})
	}
}

func TestApplyUtilityTooComplex(t *testing.T) {
	a := types.NewArena()
	loop := a.Declare("Loop")
	require.NoError(t, a.Define(loop, types.Apply(checker.UtilityPartial, loop)))

	c := checker.NewDefault()
	_, err := c.ApplyUtility(checker.UtilityPartial, loop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, checker.ErrTypeTooComplex))
	assert.True(t, c.Reporter.HasCode(diag.CodeTypeTooComplex))
}

func TestPickOmitLaw(t *testing.T) {
	_, user := userArena()
	c := checker.NewDefault()

	for _, keys := range []types.Type{
		types.StringLit("id"),
		union(types.StringLit("id"), types.StringLit("email")),
		types.Never,
	} {
		t.Run(keys.String(), func(t *testing.T) {
			picked, err := c.ApplyUtility(checker.UtilityPick, user, keys)
			require.NoError(t, err)
			omitted, err := c.ApplyUtility(checker.UtilityOmit, user, keys)
			require.NoError(t, err)

			rejoined := c.Normalize(inter(picked, omitted))
			assert.True(t, types.Identical(rejoined, user), "got %s", rejoined)
		})
	}
}

func TestPickOfOmitLaw(t *testing.T) {
	_, user := userArena()
	c := checker.NewDefault()

	tests := []struct {
		omitted types.Type
		rest    types.Type
	}{
		{types.StringLit("email"), union(types.StringLit("id"), types.StringLit("name"))},
		{types.StringLit("id"), union(types.StringLit("name"), types.StringLit("email"))},
		{union(types.StringLit("id"), types.StringLit("name")), types.StringLit("email")},
		{types.Never, union(types.StringLit("id"), types.StringLit("name"), types.StringLit("email"))},
	}

	for _, tt := range tests {
		t.Run(tt.omitted.String(), func(t *testing.T) {
			omitted, err := c.ApplyUtility(checker.UtilityOmit, user, tt.omitted)
			require.NoError(t, err)
			viaOmit, err := c.ApplyUtility(checker.UtilityPick, omitted, tt.rest)
			require.NoError(t, err)
			direct, err := c.ApplyUtility(checker.UtilityPick, user, tt.rest)
			require.NoError(t, err)

			assert.True(t, types.Identical(viaOmit, direct), "%s vs %s", viaOmit, direct)
		})
	}
	assert.Empty(t, c.Diagnostics())
}

func TestUtilitiesCommute(t *testing.T) {
	_, user := userArena()
	c := checker.NewDefault()

	apply := func(name string, base types.Type) types.Type {
		t.Helper()
		got, err := c.ApplyUtility(name, base)
		require.NoError(t, err)
		return got
	}

	readonlyPartial := apply(checker.UtilityReadonly, apply(checker.UtilityPartial, user))
	partialReadonly := apply(checker.UtilityPartial, apply(checker.UtilityReadonly, user))
	assert.True(t, types.Identical(readonlyPartial, partialReadonly))

	assert.True(t, types.Identical(
		apply(checker.UtilityPartial, apply(checker.UtilityRequired, user)),
		apply(checker.UtilityPartial, user),
	))
}

func TestGenericInRelation(t *testing.T) {
	_, user := userArena()
	c := checker.NewDefault()

	partial := types.Apply(checker.UtilityPartial, user)
	assert.True(t, c.IsAssignable(obj(), partial))
	assert.True(t, c.IsAssignable(user, partial))
	assert.False(t, c.IsAssignable(partial, user))
	assert.True(t, c.IsAssignable(obj(prop("name", types.String)), types.Apply(checker.UtilityPick, user, types.StringLit("name"))))
}

func TestParametersOf(t *testing.T) {
	tuple, rest := checker.ParametersOf(&types.Function{
		Params: []types.Param{{Type: types.String}, {Type: types.Number, Optional: true}},
		Rest:   types.Boolean,
	})
	assert.Equal(t, "[string, number | undefined]", tuple.String())
	assert.Equal(t, types.Type(types.Boolean), rest)
}
