package types

import "github.com/hashicorp/go-set/v3"

// maxIdentityDepth bounds Identical on pathological trees that never pass
// through a Named reference.
const maxIdentityDepth = 256

type typePair struct {
	a, b Type
}

type identity struct {
	seen  *set.Set[typePair]
	depth int
}

// Identical reports structural equality. Union and intersection members are
// compared as sets; property order is ignored. Comparisons that revisit a
// pair of references already being compared are assumed equal, so recursive
// types terminate.
func Identical(a, b Type) bool {
	id := &identity{seen: set.New[typePair](8)}
	return id.equal(a, b)
}

func (id *identity) equal(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	_, aNamed := a.(*Named)
	_, bNamed := b.(*Named)
	if aNamed || bNamed {
		return id.equalNamed(a, b)
	}

	if id.depth >= maxIdentityDepth {
		return false
	}
	id.depth++
	defer func() { id.depth-- }()

	switch a := a.(type) {
	case *Primitive:
		b, ok := b.(*Primitive)
		return ok && a.Kind == b.Kind
	case *Literal:
		b, ok := b.(*Literal)
		return ok && a.Value == b.Value
	case *Object:
		b, ok := b.(*Object)
		if !ok || len(a.Props) != len(b.Props) {
			return false
		}
		for _, pa := range a.Props {
			pb, found := b.Prop(pa.Name)
			if !found || pa.Optional != pb.Optional || pa.Readonly != pb.Readonly {
				return false
			}
			if !id.equal(pa.Type, pb.Type) {
				return false
			}
		}
		if (a.Index == nil) != (b.Index == nil) {
			return false
		}
		if a.Index != nil {
			return id.equal(a.Index.Key, b.Index.Key) && id.equal(a.Index.Value, b.Index.Value)
		}
		return true
	case *Array:
		b, ok := b.(*Array)
		return ok && a.Readonly == b.Readonly && id.equal(a.Elem, b.Elem)
	case *Tuple:
		b, ok := b.(*Tuple)
		if !ok || a.Readonly != b.Readonly || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !id.equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case *Function:
		b, ok := b.(*Function)
		if !ok || a.Method != b.Method || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if a.Params[i].Optional != b.Params[i].Optional || !id.equal(a.Params[i].Type, b.Params[i].Type) {
				return false
			}
		}
		if (a.Rest == nil) != (b.Rest == nil) {
			return false
		}
		if a.Rest != nil && !id.equal(a.Rest, b.Rest) {
			return false
		}
		return id.equal(orVoid(a.Return), orVoid(b.Return))
	case *Union:
		b, ok := b.(*Union)
		return ok && id.sameMembers(a.Members, b.Members)
	case *Intersection:
		b, ok := b.(*Intersection)
		return ok && id.sameMembers(a.Members, b.Members)
	case *Generic:
		b, ok := b.(*Generic)
		if !ok || a.Utility != b.Utility || len(a.Args) != len(b.Args) {
			return false
		}
		if !id.equal(a.Base, b.Base) {
			return false
		}
		for i := range a.Args {
			if !id.equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (id *identity) equalNamed(a, b Type) bool {
	an, aNamed := a.(*Named)
	bn, bNamed := b.(*Named)
	if aNamed && bNamed && an.arena == bn.arena && an.ID == bn.ID {
		return true
	}

	key := typePair{a, b}
	if id.seen.Contains(key) {
		return true
	}
	id.seen.Insert(key)
	defer id.seen.Remove(key)

	if aNamed {
		if a = an.Resolve(); a == nil {
			return false
		}
	}
	if bNamed {
		if b = bn.Resolve(); b == nil {
			return false
		}
	}
	return id.equal(a, b)
}

func (id *identity) sameMembers(as, bs []Type) bool {
	for _, a := range as {
		if !id.containsMember(bs, a) {
			return false
		}
	}
	for _, b := range bs {
		if !id.containsMember(as, b) {
			return false
		}
	}
	return true
}

func (id *identity) containsMember(ts []Type, t Type) bool {
	for _, m := range ts {
		if id.equal(m, t) {
			return true
		}
	}
	return false
}

func orVoid(t Type) Type {
	if t == nil {
		return Void
	}
	return t
}
