// Package suite loads YAML check suites and runs them against the checker.
package suite

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/shapecheck/internal/narrow"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// Kind selects what a check exercises.
type Kind string

const (
	KindAssignable Kind = "assignable"
	KindNormalize  Kind = "normalize"
	KindUtility    Kind = "utility"
	KindExhaustive Kind = "exhaustive"
	KindNarrow     Kind = "narrow"
	KindTypeof     Kind = "typeof"
	KindFunction   Kind = "function"
)

// ErrInvalidSuite is wrapped by every decoding error.
var ErrInvalidSuite = errors.New("invalid suite")

// Suite is a decoded check file.
type Suite struct {
	Path  string
	Arena *types.Arena
	// StrictNullChecks overrides the runner option when set.
	StrictNullChecks *bool
	Checks           []*Check
}

// Check is one decoded expectation. Which fields are set depends on Kind.
type Check struct {
	Name string
	Kind Kind
	Line int

	Source, Target types.Type // assignable
	Type           types.Type // normalize, exhaustive
	Utility        string     // utility
	Base           types.Type
	Args           []types.Type
	Handled        []types.LiteralValue // exhaustive
	Binding        *narrow.Binding      // narrow
	Guard          narrow.Expr
	Branch         bool
	Scope          []*narrow.Binding // typeof
	Expr           narrow.Expr
	Function       *narrow.Function // function

	ExpectBool     *bool
	ExpectType     string
	ExpectError    string
	Residual       *string
	Codes          []string
	ExpectObserved map[string]string
}

type fileSpec struct {
	Options struct {
		StrictNullChecks *bool `yaml:"strict_null_checks"`
	} `yaml:"options"`
	Types  yaml.Node   `yaml:"types"`
	Checks []yaml.Node `yaml:"checks"`
}

type checkSpec struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	Source   yaml.Node         `yaml:"source"`
	Target   yaml.Node         `yaml:"target"`
	Type     yaml.Node         `yaml:"type"`
	Utility  string            `yaml:"utility"`
	Base     yaml.Node         `yaml:"base"`
	Args     yaml.Node         `yaml:"args"`
	Handled  yaml.Node         `yaml:"handled"`
	Binding  yaml.Node         `yaml:"binding"`
	Guard    yaml.Node         `yaml:"guard"`
	Branch   *bool             `yaml:"branch"`
	Scope    yaml.Node         `yaml:"scope"`
	Expr     yaml.Node         `yaml:"expr"`
	Function yaml.Node         `yaml:"function"`
	Expect   yaml.Node         `yaml:"expect"`
	Error    string            `yaml:"error"`
	Residual *string           `yaml:"residual"`
	Codes    []string          `yaml:"codes"`
	Observed map[string]string `yaml:"observed"`
}

// LoadFile reads and decodes a suite from path.
func LoadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse decodes a suite from YAML.
func Parse(data []byte) (*Suite, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSuite, err)
	}

	d := &decoder{arena: types.NewArena()}
	if err := d.declare(&spec.Types); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSuite, err)
	}
	if missing := d.arena.Undefined(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: types declared but not defined: %v", ErrInvalidSuite, missing)
	}

	s := &Suite{Arena: d.arena, StrictNullChecks: spec.Options.StrictNullChecks}
	for i := range spec.Checks {
		node := &spec.Checks[i]
		var cs checkSpec
		if err := node.Decode(&cs); err != nil {
			return nil, fmt.Errorf("%w: check %d: %w", ErrInvalidSuite, i+1, err)
		}
		c, err := d.check(&cs)
		if err != nil {
			name := cs.Name
			if name == "" {
				name = strconv.Itoa(i + 1)
			}
			return nil, fmt.Errorf("%w: check %s: %w", ErrInvalidSuite, name, err)
		}
		c.Line = node.Line
		if c.Name == "" {
			c.Name = fmt.Sprintf("%s#%d", c.Kind, i+1)
		}
		s.Checks = append(s.Checks, c)
	}
	return s, nil
}

func (d *decoder) check(cs *checkSpec) (*Check, error) {
	c := &Check{
		Name:           cs.Name,
		Kind:           Kind(cs.Kind),
		Utility:        cs.Utility,
		ExpectError:    cs.Error,
		Residual:       cs.Residual,
		Codes:          cs.Codes,
		ExpectObserved: cs.Observed,
	}
	if err := c.expect(&cs.Expect); err != nil {
		return nil, err
	}

	var err error
	switch c.Kind {
	case KindAssignable:
		if c.Source, err = d.typ(&cs.Source); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		if c.Target, err = d.typ(&cs.Target); err != nil {
			return nil, fmt.Errorf("target: %w", err)
		}
		if c.ExpectBool == nil {
			return nil, fmt.Errorf("assignable checks expect true or false")
		}

	case KindNormalize:
		if c.Type, err = d.typ(&cs.Type); err != nil {
			return nil, err
		}

	case KindUtility:
		if c.Base, err = d.typ(&cs.Base); err != nil {
			return nil, fmt.Errorf("base: %w", err)
		}
		if !isZero(&cs.Args) {
			if c.Args, err = d.typeList(&cs.Args); err != nil {
				return nil, fmt.Errorf("args: %w", err)
			}
		}

	case KindExhaustive:
		if c.Type, err = d.typ(&cs.Type); err != nil {
			return nil, err
		}
		if c.Handled, err = literalValues(&cs.Handled); err != nil {
			return nil, fmt.Errorf("handled: %w", err)
		}

	case KindNarrow:
		if c.Binding, err = d.binding(&cs.Binding); err != nil {
			return nil, err
		}
		if c.Guard, err = d.expr(&cs.Guard); err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
		c.Branch = cs.Branch == nil || *cs.Branch

	case KindTypeof:
		if !isZero(&cs.Scope) {
			pairs, err := mappingPairs(&cs.Scope)
			if err != nil {
				return nil, err
			}
			for _, p := range pairs {
				t, err := d.typ(p[1])
				if err != nil {
					return nil, fmt.Errorf("scope %s: %w", p[0].Value, err)
				}
				c.Scope = append(c.Scope, narrow.Declare(p[0].Value, t))
			}
		}
		if c.Expr, err = d.expr(&cs.Expr); err != nil {
			return nil, fmt.Errorf("expr: %w", err)
		}

	case KindFunction:
		if c.Function, err = d.functionBody(&cs.Function); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown check kind %q", cs.Kind)
	}
	return c, nil
}

// expect reads `expect:` as a boolean or as the expected rendering of a type.
func (c *Check) expect(n *yaml.Node) error {
	if isZero(n) {
		return nil
	}
	if n.Kind != yaml.ScalarNode {
		return nodeErr(n, "expect must be a scalar")
	}
	if n.Tag == "!!bool" {
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		c.ExpectBool = &b
		return nil
	}
	c.ExpectType = n.Value
	return nil
}

func (d *decoder) binding(n *yaml.Node) (*narrow.Binding, error) {
	if isZero(n) {
		return nil, fmt.Errorf("narrow checks need a binding")
	}
	name := field(n, "name")
	if name == nil {
		return nil, nodeErr(n, "binding needs a name")
	}
	t, err := d.typ(field(n, "type"))
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", name.Value, err)
	}
	if policy := field(n, "policy"); policy != nil {
		p, err := parsePolicy(policy.Value)
		if err != nil {
			return nil, nodeErr(policy, "%v", err)
		}
		return narrow.NewBinding(name.Value, t, types.InferenceContext{Policy: p}), nil
	}
	return narrow.Declare(name.Value, t), nil
}

func (d *decoder) functionBody(n *yaml.Node) (*narrow.Function, error) {
	if isZero(n) {
		return nil, fmt.Errorf("function checks need a function")
	}
	fn := &narrow.Function{}
	if name := field(n, "name"); name != nil {
		fn.Name = name.Value
	}
	if params := field(n, "params"); params != nil {
		pairs, err := mappingPairs(params)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			t, err := d.typ(p[1])
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", p[0].Value, err)
			}
			fn.Params = append(fn.Params, narrow.Param{Name: p[0].Value, Type: t})
		}
	}
	if ret := field(n, "return"); ret != nil {
		t, err := d.typ(ret)
		if err != nil {
			return nil, fmt.Errorf("return: %w", err)
		}
		fn.Return = t
	}
	body, err := d.stmts(field(n, "body"))
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}
