package checker

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-set/v3"

	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

type typePair struct {
	source, target types.Type
}

// relation holds the state of one top-level assignability query.
type relation struct {
	c *Checker
	// stack holds the object pairs currently being compared and refs the
	// reference pairs. Meeting one again closes a cycle and is assumed to
	// hold.
	stack      *set.Set[typePair]
	refs       []typePair
	depth      int
	reasons    []string // innermost first
	tooComplex bool
}

func (c *Checker) newRelation() *relation {
	return &relation{c: c, stack: set.New[typePair](16)}
}

// IsAssignable reports whether a value of type source may be used where
// target is expected. It never fails: unresolvable or over-deep inputs
// answer false and leave a diagnostic behind.
func (c *Checker) IsAssignable(source, target types.Type) bool {
	return c.newRelation().assignable(source, target)
}

// Assign is IsAssignable with an explanation.
func (c *Checker) Assign(source, target types.Type) error {
	r := c.newRelation()
	if r.assignable(source, target) {
		return nil
	}
	reasons := make([]string, 0, len(r.reasons))
	for i := len(r.reasons) - 1; i >= 0; i-- {
		reasons = append(reasons, r.reasons[i])
	}
	return &MismatchError{Source: source, Target: target, Reasons: reasons}
}

func (r *relation) fail(format string, args ...interface{}) bool {
	r.reasons = append(r.reasons, fmt.Sprintf(format, args...))
	return false
}

// attempt runs fn and discards any reasons it left behind when it succeeds.
func (r *relation) attempt(fn func() bool) bool {
	mark := len(r.reasons)
	if fn() {
		r.reasons = r.reasons[:mark]
		return true
	}
	return false
}

func (r *relation) assignable(s, t types.Type) bool {
	if s == nil {
		s = types.Unknown
	}
	if t == nil {
		t = types.Unknown
	}
	if s == t {
		return true
	}

	if r.depth >= r.c.opts.MaxDepth {
		if !r.tooComplex {
			r.tooComplex = true
			r.c.tooComplex(diag.StageAssign, t)
		}
		return r.fail("comparison exceeds depth bound %d", r.c.opts.MaxDepth)
	}
	r.depth++
	defer func() { r.depth-- }()

	// any is the deliberate escape hatch in both directions. These rules
	// never look inside an operand, so they hold for references that fail
	// to expand.
	if types.IsPrimitive(s, types.KindAny) || types.IsPrimitive(t, types.KindAny) {
		return true
	}
	if types.IsPrimitive(t, types.KindUnknown) || types.IsPrimitive(s, types.KindNever) {
		return true
	}

	if isReference(s) || isReference(t) {
		return r.viaReference(s, t)
	}

	if types.IsPrimitive(s, types.KindUnknown) {
		return r.fail("unknown is only assignable to unknown and any")
	}
	if types.IsPrimitive(t, types.KindNever) {
		return r.fail("nothing is assignable to never")
	}
	if !r.c.opts.StrictNullChecks && types.IsNullish(s) {
		return true
	}

	if su, ok := s.(*types.Union); ok {
		ns := r.c.normalizeOperand(su, r.depth)
		if nu, ok := ns.(*types.Union); ok {
			for _, m := range nu.Members {
				if !r.assignable(m, t) {
					return r.fail("union member %s is not assignable to %s", m, t)
				}
			}
			return true
		}
		return r.assignable(ns, t)
	}
	if tu, ok := t.(*types.Union); ok {
		nt := r.c.normalizeOperand(tu, r.depth)
		if nu, ok := nt.(*types.Union); ok {
			mark := len(r.reasons)
			for _, m := range nu.Members {
				if r.attempt(func() bool { return r.assignable(s, m) }) {
					return true
				}
				r.reasons = r.reasons[:mark]
			}
			return r.fail("%s is not assignable to any member of %s", s, t)
		}
		return r.assignable(s, nt)
	}
	if ti, ok := t.(*types.Intersection); ok {
		nt := r.c.normalizeOperand(ti, r.depth)
		if ni, ok := nt.(*types.Intersection); ok {
			for _, m := range ni.Members {
				if !r.assignable(s, m) {
					return r.fail("not assignable to intersection member %s", m)
				}
			}
			return true
		}
		return r.assignable(s, nt)
	}
	if si, ok := s.(*types.Intersection); ok {
		ns := r.c.normalizeOperand(si, r.depth)
		if ni, ok := ns.(*types.Intersection); ok {
			mark := len(r.reasons)
			for _, m := range ni.Members {
				if r.attempt(func() bool { return r.assignable(m, t) }) {
					return true
				}
				r.reasons = r.reasons[:mark]
			}
			if merged, ok := r.c.mergeMembers(ni, r.depth); ok {
				return r.assignable(merged, t)
			}
			return r.fail("no member of %s is assignable to %s", s, t)
		}
		return r.assignable(ns, t)
	}

	switch t := t.(type) {
	case *types.Primitive:
		return r.toPrimitive(s, t)
	case *types.Literal:
		if sl, ok := s.(*types.Literal); ok && sl.Value == t.Value {
			return true
		}
		return r.fail("%s is not the literal %s", s, t)
	case *types.Object:
		return r.toObject(s, t)
	case *types.Array:
		return r.toArray(s, t)
	case *types.Tuple:
		return r.toTuple(s, t)
	case *types.Function:
		return r.toFunction(s, t)
	}
	return r.fail("%s is not assignable to %s", s, t)
}

func isReference(t types.Type) bool {
	switch t.(type) {
	case *types.Named, *types.Generic:
		return true
	}
	return false
}

// viaReference expands Named and Generic operands. The pair stays on the
// stack while the expansion is compared, which is what closes cycles.
// Pairs are matched structurally: normalization rebuilds nested generic
// applications, so the same reference pair rarely comes back as the same
// pointers.
func (r *relation) viaReference(s, t types.Type) bool {
	if types.Identical(s, t) {
		return true
	}
	for _, p := range r.refs {
		if types.Identical(p.source, s) && types.Identical(p.target, t) {
			return true
		}
	}
	r.refs = append(r.refs, typePair{s, t})
	defer func() { r.refs = r.refs[:len(r.refs)-1] }()

	rs, err := r.expand(s)
	if err != nil {
		return r.fail("%v", err)
	}
	rt, err := r.expand(t)
	if err != nil {
		return r.fail("%v", err)
	}
	return r.assignable(rs, rt)
}

func (r *relation) expand(t types.Type) (types.Type, error) {
	switch n := t.(type) {
	case *types.Named:
		def := n.Resolve()
		if def == nil {
			return nil, fmt.Errorf("type %s is declared but never defined", n.Name)
		}
		return def, nil
	case *types.Generic:
		return r.c.apply(n.Utility, n.Base, n.Args, r.depth)
	}
	return t, nil
}

func (r *relation) toPrimitive(s types.Type, t *types.Primitive) bool {
	switch s := s.(type) {
	case *types.Primitive:
		if s.Kind == t.Kind {
			return true
		}
		if t.Kind == types.KindVoid && s.Kind == types.KindUndefined {
			return true
		}
	case *types.Literal:
		if s.Base().Kind == t.Kind {
			return true
		}
	}
	return r.fail("%s is not assignable to %s", s, t)
}

func (r *relation) toObject(s types.Type, t *types.Object) bool {
	if types.IsNullish(s) || types.IsPrimitive(s, types.KindVoid) {
		return r.fail("%s is not an object", s)
	}
	if len(t.Props) == 0 && t.Index == nil {
		return true
	}

	so, ok := r.c.apparent(s)
	if !ok {
		return r.fail("%s has no properties", s)
	}

	if obj, isObj := s.(*types.Object); isObj {
		key := typePair{s, t}
		if r.stack.Contains(key) {
			return true
		}
		r.stack.Insert(key)
		defer r.stack.Remove(key)
		so = obj
	}

	for _, tp := range t.Props {
		sp, found := so.Prop(tp.Name)
		if !found {
			if tp.Optional {
				continue
			}
			return r.fail("property %q is missing in %s", tp.Name, s)
		}
		if sp.Optional && !tp.Optional {
			return r.fail("property %q is optional in %s but required in %s", tp.Name, s, t)
		}
		want := tp.Type
		if tp.Optional {
			want = types.Optional(tp.Type)
		}
		if !r.assignable(sp.Type, want) {
			return r.fail("in property %q", tp.Name)
		}
	}

	if t.Index != nil {
		for _, sp := range so.Props {
			if !indexApplies(t.Index.Key, sp.Name) {
				continue
			}
			if !r.assignable(sp.Type, t.Index.Value) {
				return r.fail("property %q does not satisfy index signature %s", sp.Name, t.Index.Value)
			}
		}
		if so.Index != nil && !r.assignable(so.Index.Value, t.Index.Value) {
			return r.fail("index signature value %s is not assignable to %s", so.Index.Value, t.Index.Value)
		}
	}
	return true
}

// indexApplies reports whether a property named name is constrained by an
// index signature with the given key type.
func indexApplies(key types.Type, name string) bool {
	if types.IsPrimitive(key, types.KindNumber) {
		_, err := strconv.ParseFloat(name, 64)
		return err == nil
	}
	return true
}

func (r *relation) toArray(s types.Type, t *types.Array) bool {
	switch s := s.(type) {
	case *types.Array:
		if s.Readonly && !t.Readonly {
			return r.fail("%s is readonly and cannot be used as mutable %s", s, t)
		}
		// Element comparison is covariant even for mutable arrays.
		if !r.assignable(s.Elem, t.Elem) {
			return r.fail("in array element")
		}
		return true
	case *types.Tuple:
		if s.Readonly && !t.Readonly {
			return r.fail("%s is readonly and cannot be used as mutable %s", s, t)
		}
		for i, e := range s.Elems {
			if !r.assignable(e, t.Elem) {
				return r.fail("in tuple element %d", i)
			}
		}
		return true
	}
	return r.fail("%s is not an array", s)
}

func (r *relation) toTuple(s types.Type, t *types.Tuple) bool {
	st, ok := s.(*types.Tuple)
	if !ok {
		return r.fail("%s is not a tuple", s)
	}
	if st.Readonly && !t.Readonly {
		return r.fail("%s is readonly and cannot be used as mutable %s", s, t)
	}
	if len(st.Elems) != len(t.Elems) {
		return r.fail("tuple has %d elements but %d are required", len(st.Elems), len(t.Elems))
	}
	for i := range st.Elems {
		if !r.assignable(st.Elems[i], t.Elems[i]) {
			return r.fail("in tuple element %d", i)
		}
	}
	return true
}

func (r *relation) toFunction(s types.Type, t *types.Function) bool {
	sf, ok := s.(*types.Function)
	if !ok {
		return r.fail("%s is not callable", s)
	}
	bivariant := sf.Method || t.Method

	for i, sp := range sf.Params {
		var supplied types.Type
		switch {
		case i < len(t.Params):
			supplied = t.Params[i].Type
		case t.Rest != nil:
			supplied = t.Rest
		default:
			if !sp.Optional {
				return r.fail("parameter %d is required but the target supplies only %d", i, len(t.Params))
			}
			continue
		}
		if !r.param(sp.Type, supplied, bivariant) {
			return r.fail("in parameter %d", i)
		}
	}
	if sf.Rest != nil {
		for i := len(sf.Params); i < len(t.Params); i++ {
			if !r.param(sf.Rest, t.Params[i].Type, bivariant) {
				return r.fail("in rest parameter at position %d", i)
			}
		}
		if t.Rest != nil && !r.param(sf.Rest, t.Rest, bivariant) {
			return r.fail("in rest parameter")
		}
	}

	tr := t.Return
	if tr == nil || types.IsPrimitive(tr, types.KindVoid) {
		return true
	}
	sr := sf.Return
	if sr == nil {
		sr = types.Void
	}
	if !r.assignable(sr, tr) {
		return r.fail("in return type")
	}
	return true
}

// param compares a source parameter with the argument type the target will
// pass. Plain function values are contravariant; method-shaped signatures
// accept either direction.
func (r *relation) param(sourceParam, targetArg types.Type, bivariant bool) bool {
	if !bivariant {
		return r.assignable(targetArg, sourceParam)
	}
	return r.attempt(func() bool { return r.assignable(targetArg, sourceParam) }) ||
		r.assignable(sourceParam, targetArg)
}
