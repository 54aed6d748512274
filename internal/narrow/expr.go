package narrow

import (
	"fmt"

	"github.com/malphas-lang/shapecheck/internal/types"
)

// Expr is a value-producing expression supplied by the host front-end.
type Expr interface {
	String() string
	exprNode()
}

// Ident references a binding by name.
type Ident struct {
	Name string
}

// Const is a value of a known static type, usually a literal.
type Const struct {
	Type types.Type
}

// Typeof is the expression typeof X.
type Typeof struct {
	X Expr
}

// Instanceof is X instanceof C, where Class is the instance type of C.
type Instanceof struct {
	X     Expr
	Class types.Type
}

// IsArray is Array.isArray(X).
type IsArray struct {
	X Expr
}

// Member is X.Name, or X?.Name when Optional.
type Member struct {
	X        Expr
	Name     string
	Optional bool
}

// Not is !X.
type Not struct {
	X Expr
}

// Op is a binary operator.
type Op string

const (
	OpStrictEq    Op = "==="
	OpStrictNotEq Op = "!=="
	OpEq          Op = "=="
	OpNotEq       Op = "!="
	OpAnd         Op = "&&"
	OpOr          Op = "||"
	OpNullish     Op = "??"
)

// Binary is X Op Y.
type Binary struct {
	Op   Op
	X, Y Expr
}

// Cond is Test ? Then : Else.
type Cond struct {
	Test, Then, Else Expr
}

func (*Ident) exprNode()      {}
func (*Const) exprNode()      {}
func (*Typeof) exprNode()     {}
func (*Instanceof) exprNode() {}
func (*IsArray) exprNode()    {}
func (*Member) exprNode()     {}
func (*Not) exprNode()        {}
func (*Binary) exprNode()     {}
func (*Cond) exprNode()       {}

func (e *Ident) String() string  { return e.Name }
func (e *Const) String() string  { return e.Type.String() }
func (e *Typeof) String() string { return "typeof " + e.X.String() }
func (e *Instanceof) String() string {
	return fmt.Sprintf("%s instanceof %s", e.X, e.Class)
}
func (e *IsArray) String() string { return "Array.isArray(" + e.X.String() + ")" }
func (e *Member) String() string {
	if e.Optional {
		return e.X.String() + "?." + e.Name
	}
	return e.X.String() + "." + e.Name
}
func (e *Not) String() string    { return "!" + e.X.String() }
func (e *Binary) String() string { return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y) }
func (e *Cond) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", e.Test, e.Then, e.Else)
}

// ValidOp reports whether op is a supported binary operator.
func ValidOp(op string) bool {
	switch Op(op) {
	case OpStrictEq, OpStrictNotEq, OpEq, OpNotEq, OpAnd, OpOr, OpNullish:
		return true
	}
	return false
}
