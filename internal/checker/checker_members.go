package checker

import (
	"strconv"

	"github.com/malphas-lang/shapecheck/internal/types"
)

// structural resolves references and normalizes t. Intersections of named
// object types are merged by expanding their members one level.
func (c *Checker) structural(t types.Type, depth int) (types.Type, error) {
	t, err := c.resolve(t, depth)
	if err != nil {
		return nil, err
	}
	switch t.(type) {
	case *types.Union, *types.Intersection:
	default:
		return t, nil
	}

	nt := c.normalizeAt(t, depth+1)
	if ni, ok := nt.(*types.Intersection); ok {
		if merged, ok := c.mergeMembers(ni, depth+1); ok {
			nt = merged
		}
	}
	if isReference(nt) {
		return c.structural(nt, depth+1)
	}
	return nt, nil
}

// Expand resolves Named and Generic references in t and normalizes the
// result. Types that cannot be resolved are returned unchanged.
func (c *Checker) Expand(t types.Type) types.Type {
	st, err := c.structural(t, 0)
	if err != nil {
		return t
	}
	return st
}

// mergeMembers expands Named and Generic members of an intersection and
// normalizes the result. It reports false when nothing could be expanded.
func (c *Checker) mergeMembers(i *types.Intersection, depth int) (types.Type, bool) {
	members := make([]types.Type, len(i.Members))
	expanded := false
	for idx, m := range i.Members {
		if !isReference(m) {
			members[idx] = m
			continue
		}
		r, err := c.resolve(m, depth)
		if err != nil {
			return nil, false
		}
		members[idx] = r
		expanded = true
	}
	if !expanded {
		return nil, false
	}
	return c.normalizeAt(&types.Intersection{Members: members}, depth+1), true
}

// apparent returns the members a value of type t exposes to property
// access. Arrays and strings carry length; tuples carry length and their
// positional elements.
func (c *Checker) apparent(t types.Type) (*types.Object, bool) {
	switch t := t.(type) {
	case *types.Object:
		return t, true
	case *types.Array:
		return &types.Object{
			Props: []types.Property{{Name: "length", Type: types.Number}},
			Index: &types.IndexSignature{Key: types.Number, Value: t.Elem},
		}, true
	case *types.Tuple:
		props := []types.Property{{Name: "length", Type: types.NumberLit(float64(len(t.Elems))), Readonly: true}}
		for i, e := range t.Elems {
			props = append(props, types.Property{Name: strconv.Itoa(i), Type: e, Readonly: t.Readonly})
		}
		var elem types.Type = types.Never
		if len(t.Elems) > 0 {
			elem = c.Normalize(&types.Union{Members: t.Elems})
		}
		return &types.Object{Props: props, Index: &types.IndexSignature{Key: types.Number, Value: elem}}, true
	case *types.Primitive:
		switch t.Kind {
		case types.KindString:
			return &types.Object{Props: []types.Property{{Name: "length", Type: types.Number, Readonly: true}}}, true
		case types.KindNumber, types.KindBoolean:
			return &types.Object{}, true
		}
	case *types.Literal:
		return c.apparent(t.Base())
	case *types.Function:
		return &types.Object{Props: []types.Property{{Name: "length", Type: types.Number, Readonly: true}}}, true
	case *types.Intersection:
		merged := &types.Object{}
		for _, m := range t.Members {
			r, err := c.resolve(m, 0)
			if err != nil {
				continue
			}
			obj, ok := c.apparent(r)
			if !ok {
				continue
			}
			for _, p := range obj.Props {
				if propIndex(merged, p.Name) < 0 {
					merged.Props = append(merged.Props, p)
				}
			}
			if merged.Index == nil {
				merged.Index = obj.Index
			}
		}
		return merged, true
	}
	return nil, false
}

// PropertyOf returns the type of reading property name from a value of type
// t. Optional properties read as T | undefined. For unions every member must
// have the property; the result is the union of the member types.
func (c *Checker) PropertyOf(t types.Type, name string) (types.Type, bool) {
	st, err := c.structural(t, 0)
	if err != nil {
		return nil, false
	}
	switch st := st.(type) {
	case *types.Union:
		found := make([]types.Type, 0, len(st.Members))
		for _, m := range st.Members {
			pt, ok := c.PropertyOf(m, name)
			if !ok {
				return nil, false
			}
			found = append(found, pt)
		}
		return c.Normalize(&types.Union{Members: found}), true
	case *types.Primitive:
		if st.Kind == types.KindAny {
			return types.Any, true
		}
	}

	obj, ok := c.apparent(st)
	if !ok {
		return nil, false
	}
	if p, found := obj.Prop(name); found {
		if p.Optional {
			return types.Optional(p.Type), true
		}
		return p.Type, true
	}
	if obj.Index != nil && indexApplies(obj.Index.Key, name) {
		return obj.Index.Value, true
	}
	return nil, false
}
