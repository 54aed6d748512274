package narrow

import (
	"errors"
	"fmt"

	"github.com/malphas-lang/shapecheck/internal/checker"
	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// Stmt is a statement in a function body.
type Stmt interface {
	stmtNode()
}

// Let declares a binding. Without an annotation the declared type is the
// initialiser's type widened under Policy.
type Let struct {
	Name       string
	Annotation types.Type
	Init       Expr
	Policy     types.WideningPolicy
}

// If is if (Cond) { Then } else { Else }.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Case is one switch clause matching any of Values. Clauses do not fall
// through.
type Case struct {
	Values []types.LiteralValue
	Body   []Stmt
}

// Switch dispatches on Subject, typically x or x.kind.
type Switch struct {
	Subject    Expr
	Cases      []Case
	Default    []Stmt
	HasDefault bool
}

// Return returns Value, or undefined when Value is nil.
type Return struct {
	Value Expr
}

// Inspect records the type of Expr at its position.
type Inspect struct {
	Label string
	Expr  Expr
}

func (*Let) stmtNode()     {}
func (*If) stmtNode()      {}
func (*Switch) stmtNode()  {}
func (*Return) stmtNode()  {}
func (*Inspect) stmtNode() {}

// Param is a function parameter with its declared type.
type Param struct {
	Name string
	Type types.Type
}

// Function is a function body to check. A nil Return accepts anything.
type Function struct {
	Name   string
	Params []Param
	Return types.Type
	Body   []Stmt
}

// Observation is the type recorded by an Inspect statement.
type Observation struct {
	Label string
	Type  types.Type
}

// Report is the outcome of CheckFunction. Diagnostics go to the checker.
type Report struct {
	Observations []Observation
	FallsThrough bool
}

// Observed returns the type recorded for label. When a label is visited more
// than once the last observation wins.
func (r *Report) Observed(label string) (types.Type, bool) {
	for i := len(r.Observations) - 1; i >= 0; i-- {
		if r.Observations[i].Label == label {
			return r.Observations[i].Type, true
		}
	}
	return nil, false
}

// CheckFunction walks fn's body, narrowing bindings through if and switch
// statements. Return values are checked against the declared return type,
// and a body that can end without returning is reported when that type
// excludes undefined: as NON_EXHAUSTIVE when an unhandled switch residual
// is the cause, MISSING_RETURN otherwise.
func (e *Engine) CheckFunction(fn *Function) *Report {
	scope := NewScope(nil)
	for _, p := range fn.Params {
		scope.Insert(Declare(p.Name, p.Type))
	}
	w := &walker{e: e, fn: fn, report: &Report{}}
	if !w.block(scope, fn.Body) {
		w.report.FallsThrough = true
		w.fallOff()
	}
	return w.report
}

type walker struct {
	e      *Engine
	fn     *Function
	report *Report
	// pending is the residual of a non-exhaustive switch that was the last
	// statement walked.
	pending *checker.ExhaustiveResult
}

// block walks stmts in a child scope and reports whether every path through
// them returns.
func (w *walker) block(parent *Scope, stmts []Stmt) bool {
	s := NewScope(parent)
	var restores []func()
	defer func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}()

	for _, st := range stmts {
		w.pending = nil
		switch st := st.(type) {
		case *Let:
			w.let(s, st)
		case *Inspect:
			w.report.Observations = append(w.report.Observations, Observation{Label: st.Label, Type: w.e.TypeOf(s, st.Expr)})
		case *Return:
			w.ret(s, st)
			return true
		case *If:
			thenReturns := w.branch(s, st.Cond, true, st.Then)
			elseReturns := w.branch(s, st.Cond, false, st.Else)
			// A switch left unfinished inside a branch does not end this block.
			w.pending = nil
			switch {
			case thenReturns && elseReturns:
				return true
			case thenReturns:
				restores = append(restores, w.e.pushFacts(s, w.e.Refine(s, st.Cond, false)))
			case elseReturns:
				restores = append(restores, w.e.pushFacts(s, w.e.Refine(s, st.Cond, true)))
			}
		case *Switch:
			returns, after := w.switchStmt(s, st)
			if returns {
				return true
			}
			restores = append(restores, w.e.pushFacts(s, after))
		}
	}
	return false
}

func (w *walker) branch(s *Scope, guard Expr, branch bool, body []Stmt) bool {
	var returns bool
	_ = w.e.Branch(s, guard, branch, func(s *Scope) error {
		returns = w.block(s, body)
		return nil
	})
	return returns
}

func (w *walker) let(s *Scope, st *Let) {
	var init types.Type = types.Undefined
	if st.Init != nil {
		init = w.e.TypeOf(s, st.Init)
	}
	if st.Annotation == nil {
		s.Insert(NewBinding(st.Name, init, types.InferenceContext{Policy: st.Policy}))
		return
	}
	w.mismatch(init, st.Annotation)
	s.Insert(Declare(st.Name, st.Annotation))
}

func (w *walker) ret(s *Scope, st *Return) {
	var value types.Type = types.Undefined
	if st.Value != nil {
		value = w.e.TypeOf(s, st.Value)
	}
	if w.fn.Return != nil {
		w.mismatch(value, w.fn.Return)
	}
}

func (w *walker) mismatch(source, target types.Type) {
	err := w.e.c.Assign(source, target)
	var me *checker.MismatchError
	if errors.As(err, &me) {
		w.e.c.Reporter.Add(me.Diagnostic())
	}
}

// switchStmt walks every clause and reports whether all paths return. The
// returned facts hold on the path that leaves the switch when every clause
// returned.
func (w *walker) switchStmt(s *Scope, st *Switch) (bool, Facts) {
	cov := w.coverage(s, st.Subject, w.e.TypeOf(s, st.Subject))

	allReturn := true
	var handled []types.LiteralValue
	for _, cs := range st.Cases {
		if len(cs.Values) == 0 {
			continue
		}
		if !w.branch(s, anyOf(st.Subject, cs.Values), true, cs.Body) {
			allReturn = false
		}
		handled = append(handled, cs.Values...)
		if cov != nil {
			for _, v := range cs.Values {
				cov.Handle(v)
			}
		}
	}

	rest := noneOf(st.Subject, handled)
	if st.HasDefault {
		var returns bool
		if rest == nil {
			returns = w.block(s, st.Default)
		} else {
			returns = w.branch(s, rest, true, st.Default)
		}
		w.pending = nil
		return allReturn && returns, Facts{}
	}

	// Only this switch's own residual may explain a fall-off.
	w.pending = nil
	if cov != nil {
		res := checker.ExhaustiveResult{
			Exhaustive:    cov.Exhaustive(),
			Residual:      cov.Residual(),
			Discriminator: cov.Discriminator(),
		}
		if res.Exhaustive {
			return allReturn, Facts{}
		}
		w.pending = &res
	}
	if allReturn && rest != nil {
		return false, w.e.Refine(s, rest, true)
	}
	return false, Facts{}
}

// coverage starts exhaustiveness tracking for a switch subject: x.kind over
// a union discriminated by kind, or x over a union of literals.
func (w *walker) coverage(s *Scope, subject Expr, subjectType types.Type) *checker.Coverage {
	c := w.e.c
	if m, ok := subject.(*Member); ok {
		x, ok := m.X.(*Ident)
		if !ok {
			return nil
		}
		b := s.Lookup(x.Name)
		if b == nil {
			return nil
		}
		cov, ok := c.NewCoverageOn(b.Current(), m.Name)
		if !ok {
			return nil
		}
		return cov
	}
	cov, ok := c.NewCoverage(subjectType)
	if !ok || cov.Discriminator() != "" {
		return nil
	}
	return cov
}

func (w *walker) fallOff() {
	ret := w.fn.Return
	c := w.e.c
	if ret == nil || c.IsAssignable(types.Undefined, ret) {
		return
	}
	if w.pending != nil && c.ReportNonExhaustive(*w.pending, ret, diag.Span{}) {
		return
	}
	c.Reporter.Add(diag.Diagnostic{
		Stage:    diag.StageExhaustive,
		Severity: diag.SeverityError,
		Code:     diag.CodeMissingReturn,
		Message:  fmt.Sprintf("function %s lacks an ending return statement and its return type %s does not include undefined", w.fn.Name, ret),
	})
}

// anyOf builds subject === v1 || subject === v2 ...
func anyOf(subject Expr, values []types.LiteralValue) Expr {
	var guard Expr
	for _, v := range values {
		eq := &Binary{Op: OpStrictEq, X: subject, Y: &Const{Type: types.NewLiteral(v)}}
		if guard == nil {
			guard = eq
			continue
		}
		guard = &Binary{Op: OpOr, X: guard, Y: eq}
	}
	return guard
}

// noneOf builds subject !== v1 && subject !== v2 ..., or nil for no values.
func noneOf(subject Expr, values []types.LiteralValue) Expr {
	var guard Expr
	for _, v := range values {
		ne := &Binary{Op: OpStrictNotEq, X: subject, Y: &Const{Type: types.NewLiteral(v)}}
		if guard == nil {
			guard = ne
			continue
		}
		guard = &Binary{Op: OpAnd, X: guard, Y: ne}
	}
	return guard
}
