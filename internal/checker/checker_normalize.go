package checker

import (
	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// maxDistribution caps the number of combinations produced when an
// intersection is distributed over union members. Larger products are left
// undistributed.
const maxDistribution = 256

// Normalize returns the canonical form of t. Nested unions and intersections
// are flattened, duplicates removed and impossible intersections reduced to
// never. Named references are never expanded, so recursive types stay finite
// and Normalize is idempotent.
func (c *Checker) Normalize(t types.Type) types.Type {
	return c.normalizeAt(t, 0)
}

type normalizer struct {
	c        *Checker
	depth    int
	reported bool
	// keepRefs leaves every Generic application unevaluated.
	keepRefs bool
}

func (c *Checker) normalizeAt(t types.Type, depth int) types.Type {
	n := &normalizer{c: c, depth: depth}
	return n.normalize(t)
}

// normalizeOperand normalizes a union or intersection operand of the
// relation. Generic members stay references so that the relation expands
// them itself and can recognize a recursive application it already entered.
func (c *Checker) normalizeOperand(t types.Type, depth int) types.Type {
	n := &normalizer{c: c, depth: depth, keepRefs: true}
	return n.normalize(t)
}

func (n *normalizer) normalize(t types.Type) types.Type {
	if t == nil {
		return nil
	}
	if n.depth >= n.c.opts.MaxDepth {
		if !n.reported {
			n.reported = true
			n.c.tooComplex(diag.StageNormalize, t)
		}
		return t
	}
	n.depth++
	defer func() { n.depth-- }()

	switch t := t.(type) {
	case *types.Primitive, *types.Literal, *types.Named:
		return t
	case *types.Generic:
		if n.keepRefs {
			return n.rebuild(t)
		}
		return n.generic(t)
	case *types.Object:
		props := make([]types.Property, len(t.Props))
		for i, p := range t.Props {
			props[i] = p
			props[i].Type = n.inner(p.Type)
		}
		var index *types.IndexSignature
		if t.Index != nil {
			index = &types.IndexSignature{Key: n.inner(t.Index.Key), Value: n.inner(t.Index.Value)}
		}
		return &types.Object{Props: props, Index: index}
	case *types.Array:
		return &types.Array{Elem: n.inner(t.Elem), Readonly: t.Readonly}
	case *types.Tuple:
		elems := make([]types.Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = n.inner(e)
		}
		return &types.Tuple{Elems: elems, Readonly: t.Readonly}
	case *types.Function:
		params := make([]types.Param, len(t.Params))
		for i, p := range t.Params {
			params[i] = p
			params[i].Type = n.inner(p.Type)
		}
		return &types.Function{
			Params: params,
			Rest:   n.inner(t.Rest),
			Return: n.inner(t.Return),
			Method: t.Method,
		}
	case *types.Union:
		return n.union(t.Members)
	case *types.Intersection:
		return n.intersection(t.Members)
	}
	return t
}

// inner normalizes a type in a structural position. Generic applications
// there act as references and are left for the relation to evaluate.
func (n *normalizer) inner(t types.Type) types.Type {
	if g, ok := t.(*types.Generic); ok {
		return n.rebuild(g)
	}
	return n.normalize(t)
}

func (n *normalizer) generic(g *types.Generic) types.Type {
	ev, err := n.c.apply(g.Utility, g.Base, g.Args, n.depth)
	if err != nil {
		n.c.reportUtilityError(err)
		return n.rebuild(g)
	}
	return n.normalize(ev)
}

// rebuild normalizes the operands of g. When none of them change g itself
// is returned.
func (n *normalizer) rebuild(g *types.Generic) types.Type {
	base := n.inner(g.Base)
	same := base == g.Base
	args := make([]types.Type, len(g.Args))
	for i, a := range g.Args {
		args[i] = n.inner(a)
		same = same && args[i] == a
	}
	if same {
		return g
	}
	return &types.Generic{Utility: g.Utility, Base: base, Args: args}
}

func (n *normalizer) union(members []types.Type) types.Type {
	var flat []types.Type
	for _, m := range members {
		nm := n.normalize(m)
		if u, ok := nm.(*types.Union); ok {
			flat = append(flat, u.Members...)
			continue
		}
		flat = append(flat, nm)
	}

	out := make([]types.Type, 0, len(flat))
	sawUnknown := false
	for _, m := range flat {
		switch {
		case types.IsNever(m):
			continue
		case types.IsPrimitive(m, types.KindAny):
			return types.Any
		case types.IsPrimitive(m, types.KindUnknown):
			sawUnknown = true
			continue
		}
		out = appendUnique(out, m)
	}
	if sawUnknown {
		return types.Unknown
	}
	switch len(out) {
	case 0:
		return types.Never
	case 1:
		return out[0]
	}
	return &types.Union{Members: out}
}

func (n *normalizer) intersection(members []types.Type) types.Type {
	var flat []types.Type
	for _, m := range members {
		nm := n.normalize(m)
		if i, ok := nm.(*types.Intersection); ok {
			flat = append(flat, i.Members...)
			continue
		}
		flat = append(flat, nm)
	}

	if combos, ok := distribute(flat); ok {
		results := make([]types.Type, 0, len(combos))
		for _, combo := range combos {
			results = append(results, n.intersection(combo))
		}
		return n.union(results)
	}

	out := make([]types.Type, 0, len(flat))
	for _, m := range flat {
		switch {
		case types.IsNever(m):
			return types.Never
		case types.IsPrimitive(m, types.KindAny):
			return types.Any
		case types.IsPrimitive(m, types.KindUnknown):
			continue
		}
		out = appendUnique(out, m)
	}

	out, empty := reduceAtoms(out)
	if empty {
		return types.Never
	}
	out = n.mergeObjects(out)

	switch len(out) {
	case 0:
		return types.Unknown
	case 1:
		return out[0]
	}
	return &types.Intersection{Members: out}
}

// distribute expands A & (B | C) into the combinations [A, B] and [A, C].
// It reports false when no member is a union or the product is too large.
func distribute(members []types.Type) ([][]types.Type, bool) {
	size := 1
	hasUnion := false
	for _, m := range members {
		if u, ok := m.(*types.Union); ok {
			hasUnion = true
			size *= len(u.Members)
			if size > maxDistribution {
				return nil, false
			}
		}
	}
	if !hasUnion {
		return nil, false
	}

	combos := [][]types.Type{nil}
	for _, m := range members {
		choices := types.Members(m)
		next := make([][]types.Type, 0, len(combos)*len(choices))
		for _, combo := range combos {
			for _, choice := range choices {
				c := make([]types.Type, len(combo), len(combo)+1)
				copy(c, combo)
				next = append(next, append(c, choice))
			}
		}
		combos = next
	}
	return combos, true
}

// reduceAtoms applies the primitive rules of intersection: distinct literals
// and distinct primitives are disjoint, a literal absorbs its own base and
// nullish types share no values with objects. It reports true when the
// intersection is empty.
func reduceAtoms(members []types.Type) ([]types.Type, bool) {
	var lit *types.Literal
	var prims []*types.Primitive
	hasObject := false
	for _, m := range members {
		switch m := m.(type) {
		case *types.Literal:
			if lit != nil && lit.Value != m.Value {
				return nil, true
			}
			lit = m
		case *types.Primitive:
			prims = append(prims, m)
		case *types.Object, *types.Array, *types.Tuple, *types.Function:
			hasObject = true
		}
	}

	// void & undefined is undefined.
	var kind types.PrimitiveKind
	for _, p := range prims {
		k := p.Kind
		if kind == "" || kind == types.KindVoid && k == types.KindUndefined {
			kind = k
			continue
		}
		if k == kind || k == types.KindVoid && kind == types.KindUndefined {
			continue
		}
		return nil, true
	}
	if lit != nil && kind != "" && lit.Base().Kind != kind {
		return nil, true
	}
	nullish := kind == types.KindNull || kind == types.KindUndefined || kind == types.KindVoid
	if nullish && hasObject {
		return nil, true
	}
	if lit == nil && len(prims) <= 1 {
		return members, false
	}

	out := make([]types.Type, 0, len(members))
	kept := false
	for _, m := range members {
		switch m.(type) {
		case *types.Literal, *types.Primitive:
			if kept {
				continue
			}
			kept = true
			if lit != nil {
				out = append(out, lit)
			} else {
				p, _ := types.PrimitiveOf(kind)
				out = append(out, p)
			}
		default:
			out = append(out, m)
		}
	}
	return out, false
}

// mergeObjects combines every Object member into one at the position of the
// first. Shared properties intersect their types, so incompatible ones
// become never.
func (n *normalizer) mergeObjects(members []types.Type) []types.Type {
	count := 0
	for _, m := range members {
		if _, ok := m.(*types.Object); ok {
			count++
		}
	}
	if count < 2 {
		return members
	}

	var merged *types.Object
	out := make([]types.Type, 0, len(members)-count+1)
	for _, m := range members {
		obj, ok := m.(*types.Object)
		if !ok {
			out = append(out, m)
			continue
		}
		if merged == nil {
			merged = &types.Object{Props: append([]types.Property(nil), obj.Props...), Index: obj.Index}
			out = append(out, merged)
			continue
		}
		n.mergeInto(merged, obj)
	}
	return out
}

func (n *normalizer) mergeInto(dst, src *types.Object) {
	for _, sp := range src.Props {
		i := propIndex(dst, sp.Name)
		if i < 0 {
			dst.Props = append(dst.Props, sp)
			continue
		}
		dp := &dst.Props[i]
		if !types.Identical(dp.Type, sp.Type) {
			dp.Type = n.intersection([]types.Type{dp.Type, sp.Type})
		}
		dp.Optional = dp.Optional && sp.Optional
		dp.Readonly = dp.Readonly || sp.Readonly
	}
	switch {
	case dst.Index == nil:
		dst.Index = src.Index
	case src.Index != nil && !types.Identical(dst.Index.Value, src.Index.Value):
		dst.Index = &types.IndexSignature{
			Key:   dst.Index.Key,
			Value: n.intersection([]types.Type{dst.Index.Value, src.Index.Value}),
		}
	}
}

func propIndex(o *types.Object, name string) int {
	for i, p := range o.Props {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func appendUnique(ts []types.Type, t types.Type) []types.Type {
	for _, existing := range ts {
		if types.Identical(existing, t) {
			return ts
		}
	}
	return append(ts, t)
}
