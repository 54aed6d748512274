package checker

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-set/v3"

	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// Variant is one case of a union that can be handled by matching a literal.
type Variant struct {
	Value types.LiteralValue
	Type  types.Type
}

// DiscriminatedUnion is a union of object types sharing a property whose
// type is a distinct literal per member.
type DiscriminatedUnion struct {
	Discriminator string
	Variants      []Variant
}

// Discriminant detects whether t is a discriminated union. The first
// property of the first member that qualifies is chosen.
func (c *Checker) Discriminant(t types.Type) (*DiscriminatedUnion, bool) {
	u, objects, ok := c.objectUnion(t)
	if !ok {
		return nil, false
	}
	for _, name := range objects[0].Names() {
		if du, ok := discriminate(u, objects, name); ok {
			return du, true
		}
	}
	return nil, false
}

// DiscriminantBy is Discriminant restricted to the property name. It lets
// a switch on any qualifying property be checked, not only the first.
func (c *Checker) DiscriminantBy(t types.Type, name string) (*DiscriminatedUnion, bool) {
	u, objects, ok := c.objectUnion(t)
	if !ok {
		return nil, false
	}
	return discriminate(u, objects, name)
}

// objectUnion resolves t to a union whose members are all object types.
func (c *Checker) objectUnion(t types.Type) (*types.Union, []*types.Object, bool) {
	st, err := c.structural(t, 0)
	if err != nil {
		return nil, nil, false
	}
	u, ok := st.(*types.Union)
	if !ok {
		return nil, nil, false
	}

	objects := make([]*types.Object, len(u.Members))
	for i, m := range u.Members {
		sm, err := c.structural(m, 1)
		if err != nil {
			return nil, nil, false
		}
		obj, ok := sm.(*types.Object)
		if !ok {
			return nil, nil, false
		}
		objects[i] = obj
	}
	return u, objects, true
}

// discriminate checks that name is required in every member and holds a
// literal that no other member shares.
func discriminate(u *types.Union, objects []*types.Object, name string) (*DiscriminatedUnion, bool) {
	seen := set.New[types.LiteralValue](len(objects))
	variants := make([]Variant, 0, len(objects))
	for i, obj := range objects {
		p, found := obj.Prop(name)
		if !found || p.Optional {
			return nil, false
		}
		lit, ok := literalOf(p.Type)
		if !ok || !seen.Insert(lit.Value) {
			return nil, false
		}
		variants = append(variants, Variant{Value: lit.Value, Type: u.Members[i]})
	}
	return &DiscriminatedUnion{Discriminator: name, Variants: variants}, true
}

func literalOf(t types.Type) (*types.Literal, bool) {
	r, ok := types.Resolve(t, 64)
	if !ok {
		return nil, false
	}
	lit, ok := r.(*types.Literal)
	return lit, ok
}

// Coverage accumulates the discriminator values handled by one switch or
// if-chain. It is created per analysis and discarded afterwards.
type Coverage struct {
	c             *Checker
	discriminator string
	variants      []Variant
	handled       *set.Set[types.LiteralValue]
}

// NewCoverage starts coverage tracking for t. It accepts discriminated
// unions and unions of literals (boolean counts as true | false); other
// types report false.
func (c *Checker) NewCoverage(t types.Type) (*Coverage, bool) {
	cov := &Coverage{c: c, handled: set.New[types.LiteralValue](8)}
	if du, ok := c.Discriminant(t); ok {
		cov.discriminator = du.Discriminator
		cov.variants = du.Variants
		return cov, true
	}
	variants, ok := c.literalVariants(t)
	if !ok {
		return nil, false
	}
	cov.variants = variants
	return cov, true
}

// NewCoverageOn starts coverage tracking for a switch on property name of
// t. It reports false unless name discriminates t.
func (c *Checker) NewCoverageOn(t types.Type, name string) (*Coverage, bool) {
	du, ok := c.DiscriminantBy(t, name)
	if !ok {
		return nil, false
	}
	return &Coverage{
		c:             c,
		discriminator: du.Discriminator,
		variants:      du.Variants,
		handled:       set.New[types.LiteralValue](8),
	}, true
}

func (c *Checker) literalVariants(t types.Type) ([]Variant, bool) {
	st, err := c.structural(t, 0)
	if err != nil {
		return nil, false
	}
	var variants []Variant
	for _, m := range types.Members(st) {
		switch m := m.(type) {
		case *types.Literal:
			variants = append(variants, Variant{Value: m.Value, Type: m})
		case *types.Primitive:
			if m.Kind != types.KindBoolean {
				return nil, false
			}
			variants = append(variants,
				Variant{Value: types.BoolValue(true), Type: types.BoolLit(true)},
				Variant{Value: types.BoolValue(false), Type: types.BoolLit(false)},
			)
		default:
			return nil, false
		}
	}
	return variants, len(variants) > 0
}

// Handle records v as handled. It reports whether v matched a variant that
// was not already handled.
func (cov *Coverage) Handle(v types.LiteralValue) bool {
	for _, variant := range cov.variants {
		if variant.Value == v {
			return cov.handled.Insert(v)
		}
	}
	return false
}

// Variant returns the member selected by v.
func (cov *Coverage) Variant(v types.LiteralValue) (types.Type, bool) {
	for _, variant := range cov.variants {
		if variant.Value == v {
			return variant.Type, true
		}
	}
	return nil, false
}

// Residual returns the normalized union of the members not yet handled.
func (cov *Coverage) Residual() types.Type {
	var rest []types.Type
	for _, variant := range cov.variants {
		if !cov.handled.Contains(variant.Value) {
			rest = append(rest, variant.Type)
		}
	}
	return cov.c.Normalize(&types.Union{Members: rest})
}

// Exhaustive reports whether every member has been handled.
func (cov *Coverage) Exhaustive() bool {
	return types.IsNever(cov.Residual())
}

// Discriminator returns the property the coverage dispatches on, or "" for
// unions of literals.
func (cov *Coverage) Discriminator() string { return cov.discriminator }

// Handled returns the handled values in a stable order.
func (cov *Coverage) Handled() []types.LiteralValue {
	values := cov.handled.Slice()
	sort.Slice(values, func(i, j int) bool {
		return values[i].String() < values[j].String()
	})
	return values
}

// ExhaustiveResult is the outcome of CheckExhaustive.
type ExhaustiveResult struct {
	Exhaustive    bool
	Residual      types.Type
	Discriminator string
}

// CheckExhaustive computes which members of t remain once the handled
// literals are removed. Types that are neither discriminated unions nor
// literal unions are their own residual.
func (c *Checker) CheckExhaustive(t types.Type, handled []types.LiteralValue) ExhaustiveResult {
	cov, ok := c.NewCoverage(t)
	if !ok {
		residual := c.Normalize(t)
		return ExhaustiveResult{Exhaustive: types.IsNever(residual), Residual: residual}
	}
	for _, v := range handled {
		cov.Handle(v)
	}
	residual := cov.Residual()
	return ExhaustiveResult{
		Exhaustive:    types.IsNever(residual),
		Residual:      residual,
		Discriminator: cov.discriminator,
	}
}

// ReportNonExhaustive records a NON_EXHAUSTIVE diagnostic when res leaves
// members unhandled and the enclosing function's return type does not
// admit undefined. It reports whether a diagnostic was added.
func (c *Checker) ReportNonExhaustive(res ExhaustiveResult, declaredReturn types.Type, span diag.Span) bool {
	if res.Exhaustive {
		return false
	}
	if declaredReturn == nil || c.IsAssignable(types.Undefined, declaredReturn) {
		return false
	}
	d := diag.Diagnostic{
		Stage:    diag.StageExhaustive,
		Severity: diag.SeverityError,
		Code:     diag.CodeNonExhaustive,
		Message:  fmt.Sprintf("not all cases are handled; %s remains", res.Residual),
		Span:     span,
	}
	if res.Discriminator != "" {
		d = d.WithNote(fmt.Sprintf("discriminated on property %q", res.Discriminator))
	}
	d = d.WithHelp(fmt.Sprintf("handle %s or add a default branch", res.Residual))
	c.Reporter.Add(d)
	return true
}
