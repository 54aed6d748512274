package types

import "fmt"

// TypeID is a stable index into an Arena.
type TypeID int

// Named is a reference to a declared type held in an Arena. It is the only
// way to express a self-referential type: the reference is created by
// Declare before its definition exists, so the definition may mention it.
type Named struct {
	ID    TypeID
	Name  string
	arena *Arena
}

func (n *Named) String() string { return n.Name }
func (n *Named) isType()        {}

// Resolve returns the definition the reference points to, or nil if it has
// not been defined yet.
func (n *Named) Resolve() Type {
	if n.arena == nil {
		return nil
	}
	return n.arena.Lookup(n.ID)
}

// Arena owns named type definitions.
type Arena struct {
	names []*Named
	defs  []Type
	index map[string]TypeID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{index: make(map[string]TypeID)}
}

// Declare reserves a name and returns a reference to it. Declaring an
// existing name returns the existing reference.
func (a *Arena) Declare(name string) *Named {
	if id, ok := a.index[name]; ok {
		return a.names[id]
	}
	n := &Named{ID: TypeID(len(a.names)), Name: name, arena: a}
	a.names = append(a.names, n)
	a.defs = append(a.defs, nil)
	a.index[name] = n.ID
	return n
}

// Define sets the definition for a declared reference.
func (a *Arena) Define(n *Named, t Type) error {
	if n.arena != a || int(n.ID) >= len(a.defs) {
		return fmt.Errorf("type %s does not belong to this arena", n.Name)
	}
	if t == n {
		return fmt.Errorf("type %s cannot be defined as itself", n.Name)
	}
	a.defs[n.ID] = t
	return nil
}

// DeclareAs declares and defines a name in one step.
func (a *Arena) DeclareAs(name string, t Type) *Named {
	n := a.Declare(name)
	a.defs[n.ID] = t
	return n
}

// Lookup returns the definition for id.
func (a *Arena) Lookup(id TypeID) Type {
	if int(id) < 0 || int(id) >= len(a.defs) {
		return nil
	}
	return a.defs[id]
}

// Get finds a declared reference by name.
func (a *Arena) Get(name string) (*Named, bool) {
	id, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.names[id], true
}

// Undefined returns the names that were declared but never defined.
func (a *Arena) Undefined() []string {
	var missing []string
	for i, def := range a.defs {
		if def == nil {
			missing = append(missing, a.names[i].Name)
		}
	}
	return missing
}

// Len returns the number of declared names.
func (a *Arena) Len() int { return len(a.names) }
