package checker

import (
	"slices"

	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// Utility names recognised by ApplyUtility.
const (
	UtilityPick        = "Pick"
	UtilityOmit        = "Omit"
	UtilityPartial     = "Partial"
	UtilityRequired    = "Required"
	UtilityReadonly    = "Readonly"
	UtilityReturnType  = "ReturnType"
	UtilityParameters  = "Parameters"
	UtilityNonNullable = "NonNullable"
)

// Utilities lists every supported utility name.
var Utilities = []string{
	UtilityPick, UtilityOmit, UtilityPartial, UtilityRequired,
	UtilityReadonly, UtilityReturnType, UtilityParameters, UtilityNonNullable,
}

// ApplyUtility evaluates the utility transform name over base. Failures are
// returned as *UtilityError and also recorded as diagnostics.
func (c *Checker) ApplyUtility(name string, base types.Type, args ...types.Type) (types.Type, error) {
	t, err := c.apply(name, base, args, 0)
	if err != nil {
		c.reportUtilityError(err)
		return nil, err
	}
	return t, nil
}

func (c *Checker) apply(name string, base types.Type, args []types.Type, depth int) (types.Type, error) {
	if base == nil {
		return nil, newUtilityError(ErrInvalidArgument, name, "missing base type")
	}
	if depth > c.opts.MaxDepth {
		return nil, c.tooComplex(diag.StageUtility, types.Apply(name, base, args...))
	}

	switch name {
	case UtilityPick, UtilityOmit:
		if len(args) != 1 {
			return nil, newUtilityError(ErrInvalidArgument, name, "expects a base and a key set, got %d arguments", len(args)+1)
		}
		obj, err := c.objectBase(name, base, depth)
		if err != nil {
			return nil, err
		}
		keys, err := keySet(name, args[0])
		if err != nil {
			return nil, err
		}
		if name == UtilityPick {
			return pick(obj, keys)
		}
		return omit(obj, keys), nil

	case UtilityPartial, UtilityRequired:
		if err := noArgs(name, args); err != nil {
			return nil, err
		}
		obj, err := c.objectBase(name, base, depth)
		if err != nil {
			return nil, err
		}
		optional := name == UtilityPartial
		return mapProps(obj, func(p *types.Property) { p.Optional = optional }), nil

	case UtilityReadonly:
		if err := noArgs(name, args); err != nil {
			return nil, err
		}
		st, err := c.structural(base, depth+1)
		if err != nil {
			return nil, err
		}
		switch st := st.(type) {
		case *types.Array:
			return &types.Array{Elem: st.Elem, Readonly: true}, nil
		case *types.Tuple:
			return &types.Tuple{Elems: st.Elems, Readonly: true}, nil
		case *types.Object:
			return mapProps(st, func(p *types.Property) { p.Readonly = true }), nil
		}
		return nil, newUtilityError(ErrInvalidArgument, name, "%s is not an object, array or tuple type", base)

	case UtilityReturnType:
		if err := noArgs(name, args); err != nil {
			return nil, err
		}
		fn, err := c.functionBase(name, base, depth)
		if err != nil {
			return nil, err
		}
		if fn.Return == nil {
			return types.Void, nil
		}
		return fn.Return, nil

	case UtilityParameters:
		if err := noArgs(name, args); err != nil {
			return nil, err
		}
		fn, err := c.functionBase(name, base, depth)
		if err != nil {
			return nil, err
		}
		tuple, _ := ParametersOf(fn)
		return tuple, nil

	case UtilityNonNullable:
		if err := noArgs(name, args); err != nil {
			return nil, err
		}
		st, err := c.structural(base, depth+1)
		if err != nil {
			return nil, err
		}
		return c.normalizeAt(NonNullable(st), depth+1), nil
	}

	return nil, newUtilityError(ErrUnsupportedUtility, name, "%q is not a recognised utility", name)
}

// ParametersOf returns the declared parameter types of fn as a tuple, with
// optional parameters widened to T | undefined, and the rest parameter
// element type separately (nil when absent).
func ParametersOf(fn *types.Function) (*types.Tuple, types.Type) {
	elems := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		if p.Optional {
			elems[i] = types.Optional(p.Type)
			continue
		}
		elems[i] = p.Type
	}
	return &types.Tuple{Elems: elems}, fn.Rest
}

// NonNullable removes null and undefined from t. The result is not
// normalized.
func NonNullable(t types.Type) types.Type {
	if types.IsNullish(t) {
		return types.Never
	}
	u, ok := t.(*types.Union)
	if !ok {
		return t
	}
	kept := make([]types.Type, 0, len(u.Members))
	for _, m := range u.Members {
		if !types.IsNullish(m) {
			kept = append(kept, m)
		}
	}
	return &types.Union{Members: kept}
}

func noArgs(name string, args []types.Type) error {
	if len(args) != 0 {
		return newUtilityError(ErrInvalidArgument, name, "expects a single type argument, got %d", len(args)+1)
	}
	return nil
}

func (c *Checker) objectBase(name string, base types.Type, depth int) (*types.Object, error) {
	st, err := c.structural(base, depth+1)
	if err != nil {
		return nil, err
	}
	obj, ok := st.(*types.Object)
	if !ok {
		return nil, newUtilityError(ErrInvalidArgument, name, "%s is not an object type", base)
	}
	return obj, nil
}

func (c *Checker) functionBase(name string, base types.Type, depth int) (*types.Function, error) {
	st, err := c.structural(base, depth+1)
	if err != nil {
		return nil, err
	}
	fn, ok := st.(*types.Function)
	if !ok {
		return nil, newUtilityError(ErrInvalidArgument, name, "%s is not a function type", base)
	}
	return fn, nil
}

// keySet reads a key argument: a string literal or a union of them.
func keySet(name string, arg types.Type) ([]string, error) {
	if types.IsNever(arg) {
		return nil, nil
	}
	if n, ok := arg.(*types.Named); ok {
		def, resolved := types.Resolve(n, 64)
		if !resolved {
			return nil, newUtilityError(ErrInvalidArgument, name, "key set %s cannot be resolved", n)
		}
		arg = def
	}
	var keys []string
	for _, m := range types.Members(arg) {
		lit, ok := m.(*types.Literal)
		if !ok || lit.Value.Kind != types.KindString {
			return nil, newUtilityError(ErrInvalidArgument, name, "key %s is not a string literal", m)
		}
		keys = append(keys, lit.Value.Str)
	}
	return keys, nil
}

func pick(obj *types.Object, keys []string) (types.Type, error) {
	for _, k := range keys {
		if _, ok := obj.Prop(k); !ok {
			return nil, newUtilityError(ErrUnknownProperty, UtilityPick, "property %q does not exist on %s", k, obj)
		}
	}
	props := make([]types.Property, 0, len(keys))
	for _, p := range obj.Props {
		if slices.Contains(keys, p.Name) {
			props = append(props, p)
		}
	}
	return &types.Object{Props: props}, nil
}

func omit(obj *types.Object, keys []string) types.Type {
	props := make([]types.Property, 0, len(obj.Props))
	for _, p := range obj.Props {
		if !slices.Contains(keys, p.Name) {
			props = append(props, p)
		}
	}
	return &types.Object{Props: props, Index: obj.Index}
}

func mapProps(obj *types.Object, fn func(p *types.Property)) *types.Object {
	props := make([]types.Property, len(obj.Props))
	for i, p := range obj.Props {
		props[i] = p
		fn(&props[i])
	}
	return &types.Object{Props: props, Index: obj.Index}
}
