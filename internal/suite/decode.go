package suite

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/shapecheck/internal/narrow"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// decoder turns YAML nodes into types, expressions and statements. Names
// that are not primitives resolve against the arena.
type decoder struct {
	arena *types.Arena
}

func nodeErr(n *yaml.Node, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

func isZero(n *yaml.Node) bool {
	return n == nil || n.Kind == 0
}

// mappingPairs returns the key/value pairs of a mapping node in order.
func mappingPairs(n *yaml.Node) ([][2]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeErr(n, "expected a mapping")
	}
	pairs := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return pairs, nil
}

func field(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// declare registers every name under a types: mapping before any
// definition is decoded, so definitions may refer to each other.
func (d *decoder) declare(n *yaml.Node) error {
	if isZero(n) {
		return nil
	}
	pairs, err := mappingPairs(n)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		d.arena.Declare(p[0].Value)
	}
	for _, p := range pairs {
		t, err := d.typ(p[1])
		if err != nil {
			return fmt.Errorf("type %s: %w", p[0].Value, err)
		}
		named, _ := d.arena.Get(p[0].Value)
		if err := d.arena.Define(named, t); err != nil {
			return err
		}
	}
	return nil
}

// typ decodes a type. Scalars are primitive names, declared names or
// literals ('"a"', 42, true); mappings select a constructor by key.
func (d *decoder) typ(n *yaml.Node) (types.Type, error) {
	if isZero(n) {
		return nil, fmt.Errorf("missing type")
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return d.scalarType(n)
	case yaml.SequenceNode:
		return nil, nodeErr(n, "a type cannot be a sequence; use union or tuple")
	case yaml.MappingNode:
	default:
		return nil, nodeErr(n, "unsupported node")
	}

	readonly := false
	if ro := field(n, "readonly"); ro != nil {
		readonly = ro.Value == "true"
	}

	switch {
	case field(n, "literal") != nil:
		v, err := literalValue(field(n, "literal"))
		if err != nil {
			return nil, err
		}
		return types.NewLiteral(v), nil
	case field(n, "object") != nil || field(n, "index") != nil:
		return d.object(n)
	case field(n, "array") != nil:
		elem, err := d.typ(field(n, "array"))
		if err != nil {
			return nil, err
		}
		return &types.Array{Elem: elem, Readonly: readonly}, nil
	case field(n, "tuple") != nil:
		elems, err := d.typeList(field(n, "tuple"))
		if err != nil {
			return nil, err
		}
		return &types.Tuple{Elems: elems, Readonly: readonly}, nil
	case field(n, "union") != nil:
		members, err := d.typeList(field(n, "union"))
		if err != nil {
			return nil, err
		}
		return types.NewUnion(members...), nil
	case field(n, "intersection") != nil:
		members, err := d.typeList(field(n, "intersection"))
		if err != nil {
			return nil, err
		}
		return types.NewIntersection(members...), nil
	case field(n, "function") != nil:
		return d.function(field(n, "function"))
	case field(n, "apply") != nil:
		return d.apply(field(n, "apply"))
	}
	return nil, nodeErr(n, "unknown type constructor")
}

func (d *decoder) scalarType(n *yaml.Node) (types.Type, error) {
	switch n.Tag {
	case "!!int", "!!float", "!!bool":
		v, err := literalValue(n)
		if err != nil {
			return nil, err
		}
		return types.NewLiteral(v), nil
	case "!!null":
		return types.Null, nil
	}

	s := strings.TrimSpace(n.Value)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil, nodeErr(n, "bad string literal %s", s)
		}
		return types.StringLit(unquoted), nil
	}
	if p, ok := types.PrimitiveOf(types.PrimitiveKind(s)); ok {
		return p, nil
	}
	if named, ok := d.arena.Get(s); ok {
		return named, nil
	}
	return nil, nodeErr(n, "unknown type %q", s)
}

func (d *decoder) typeList(n *yaml.Node) ([]types.Type, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErr(n, "expected a list of types")
	}
	out := make([]types.Type, 0, len(n.Content))
	for _, item := range n.Content {
		t, err := d.typ(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// object decodes `object: {name: T, name?: T, readonly name: T}` with an
// optional sibling `index: {key: T, value: T}`.
func (d *decoder) object(n *yaml.Node) (types.Type, error) {
	obj := &types.Object{}
	if props := field(n, "object"); props != nil && props.Kind != yaml.ScalarNode {
		pairs, err := mappingPairs(props)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			name := p[0].Value
			prop := types.Property{}
			if rest, ok := strings.CutPrefix(name, "readonly "); ok {
				prop.Readonly = true
				name = strings.TrimSpace(rest)
			}
			if base, ok := strings.CutSuffix(name, "?"); ok {
				prop.Optional = true
				name = base
			}
			prop.Name = name
			t, err := d.typ(p[1])
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			prop.Type = t
			obj.Props = append(obj.Props, prop)
		}
	}
	if idx := field(n, "index"); idx != nil {
		key, err := d.typ(field(idx, "key"))
		if err != nil {
			return nil, fmt.Errorf("index key: %w", err)
		}
		value, err := d.typ(field(idx, "value"))
		if err != nil {
			return nil, fmt.Errorf("index value: %w", err)
		}
		obj.Index = &types.IndexSignature{Key: key, Value: value}
	}
	return obj, nil
}

func (d *decoder) function(n *yaml.Node) (types.Type, error) {
	fn := &types.Function{}
	if params := field(n, "params"); params != nil {
		if params.Kind != yaml.SequenceNode {
			return nil, nodeErr(params, "params must be a list")
		}
		for i, p := range params.Content {
			t, err := d.typ(field(p, "type"))
			if err != nil {
				return nil, fmt.Errorf("parameter %d: %w", i, err)
			}
			param := types.Param{Type: t}
			if name := field(p, "name"); name != nil {
				param.Name = name.Value
			}
			if opt := field(p, "optional"); opt != nil {
				param.Optional = opt.Value == "true"
			}
			fn.Params = append(fn.Params, param)
		}
	}
	if rest := field(n, "rest"); rest != nil {
		t, err := d.typ(rest)
		if err != nil {
			return nil, fmt.Errorf("rest: %w", err)
		}
		fn.Rest = t
	}
	if ret := field(n, "return"); ret != nil {
		t, err := d.typ(ret)
		if err != nil {
			return nil, fmt.Errorf("return: %w", err)
		}
		fn.Return = t
	}
	if m := field(n, "method"); m != nil {
		fn.Method = m.Value == "true"
	}
	return fn, nil
}

func (d *decoder) apply(n *yaml.Node) (types.Type, error) {
	utility := field(n, "utility")
	if utility == nil {
		return nil, nodeErr(n, "apply needs a utility")
	}
	base, err := d.typ(field(n, "base"))
	if err != nil {
		return nil, fmt.Errorf("%s base: %w", utility.Value, err)
	}
	var args []types.Type
	if a := field(n, "args"); a != nil {
		if args, err = d.typeList(a); err != nil {
			return nil, err
		}
	}
	return types.Apply(utility.Value, base, args...), nil
}

// literalValue decodes a scalar into a literal constant: strings, numbers
// and booleans by YAML tag.
func literalValue(n *yaml.Node) (types.LiteralValue, error) {
	if n.Kind != yaml.ScalarNode {
		return types.LiteralValue{}, nodeErr(n, "literal must be a scalar")
	}
	switch n.Tag {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return types.LiteralValue{}, nodeErr(n, "bad number %q", n.Value)
		}
		return types.NumberValue(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return types.LiteralValue{}, nodeErr(n, "bad boolean %q", n.Value)
		}
		return types.BoolValue(b), nil
	}
	return types.StringValue(n.Value), nil
}

func literalValues(n *yaml.Node) ([]types.LiteralValue, error) {
	if isZero(n) {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		v, err := literalValue(n)
		if err != nil {
			return nil, err
		}
		return []types.LiteralValue{v}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErr(n, "expected a list of literals")
	}
	out := make([]types.LiteralValue, 0, len(n.Content))
	for _, item := range n.Content {
		v, err := literalValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// expr decodes an expression. A scalar is an identifier; mappings select
// the expression form by key, with operators such as "&&" as keys for
// binary expressions.
func (d *decoder) expr(n *yaml.Node) (narrow.Expr, error) {
	if isZero(n) {
		return nil, fmt.Errorf("missing expression")
	}
	if n.Kind == yaml.ScalarNode {
		return &narrow.Ident{Name: n.Value}, nil
	}
	pairs, err := mappingPairs(n)
	if err != nil {
		return nil, err
	}
	if len(pairs) != 1 {
		return nil, nodeErr(n, "an expression mapping must have exactly one key")
	}
	key, val := pairs[0][0].Value, pairs[0][1]

	switch key {
	case "const":
		t, err := d.typ(val)
		if err != nil {
			return nil, err
		}
		return &narrow.Const{Type: t}, nil
	case "typeof":
		x, err := d.expr(val)
		if err != nil {
			return nil, err
		}
		return &narrow.Typeof{X: x}, nil
	case "isArray":
		x, err := d.expr(val)
		if err != nil {
			return nil, err
		}
		return &narrow.IsArray{X: x}, nil
	case "not":
		x, err := d.expr(val)
		if err != nil {
			return nil, err
		}
		return &narrow.Not{X: x}, nil
	case "instanceof":
		x, err := d.expr(field(val, "x"))
		if err != nil {
			return nil, err
		}
		class, err := d.typ(field(val, "class"))
		if err != nil {
			return nil, err
		}
		return &narrow.Instanceof{X: x, Class: class}, nil
	case "member", "optional":
		x, err := d.expr(field(val, "x"))
		if err != nil {
			return nil, err
		}
		name := field(val, "name")
		if name == nil {
			return nil, nodeErr(val, "member needs a name")
		}
		return &narrow.Member{X: x, Name: name.Value, Optional: key == "optional"}, nil
	case "cond":
		test, err := d.expr(field(val, "test"))
		if err != nil {
			return nil, err
		}
		then, err := d.expr(field(val, "then"))
		if err != nil {
			return nil, err
		}
		els, err := d.expr(field(val, "else"))
		if err != nil {
			return nil, err
		}
		return &narrow.Cond{Test: test, Then: then, Else: els}, nil
	}

	if !narrow.ValidOp(key) {
		return nil, nodeErr(pairs[0][0], "unknown expression %q", key)
	}
	if val.Kind != yaml.SequenceNode || len(val.Content) != 2 {
		return nil, nodeErr(val, "operator %s takes two operands", key)
	}
	x, err := d.expr(val.Content[0])
	if err != nil {
		return nil, err
	}
	y, err := d.expr(val.Content[1])
	if err != nil {
		return nil, err
	}
	return &narrow.Binary{Op: narrow.Op(key), X: x, Y: y}, nil
}

func (d *decoder) stmts(n *yaml.Node) ([]narrow.Stmt, error) {
	if isZero(n) || n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErr(n, "expected a list of statements")
	}
	out := make([]narrow.Stmt, 0, len(n.Content))
	for _, item := range n.Content {
		st, err := d.stmt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (d *decoder) stmt(n *yaml.Node) (narrow.Stmt, error) {
	pairs, err := mappingPairs(n)
	if err != nil {
		return nil, err
	}
	if len(pairs) != 1 {
		return nil, nodeErr(n, "a statement mapping must have exactly one key")
	}
	key, val := pairs[0][0].Value, pairs[0][1]

	switch key {
	case "let":
		st := &narrow.Let{}
		name := field(val, "name")
		if name == nil {
			return nil, nodeErr(val, "let needs a name")
		}
		st.Name = name.Value
		if ann := field(val, "type"); ann != nil {
			if st.Annotation, err = d.typ(ann); err != nil {
				return nil, err
			}
		}
		if init := field(val, "init"); init != nil {
			if st.Init, err = d.expr(init); err != nil {
				return nil, err
			}
		}
		if policy := field(val, "policy"); policy != nil {
			if st.Policy, err = parsePolicy(policy.Value); err != nil {
				return nil, nodeErr(policy, "%v", err)
			}
		}
		return st, nil

	case "if":
		cond, err := d.expr(field(val, "cond"))
		if err != nil {
			return nil, err
		}
		then, err := d.stmts(field(val, "then"))
		if err != nil {
			return nil, err
		}
		els, err := d.stmts(field(val, "else"))
		if err != nil {
			return nil, err
		}
		return &narrow.If{Cond: cond, Then: then, Else: els}, nil

	case "switch":
		subject, err := d.expr(field(val, "subject"))
		if err != nil {
			return nil, err
		}
		st := &narrow.Switch{Subject: subject}
		if cases := field(val, "cases"); cases != nil {
			for _, c := range cases.Content {
				values, err := literalValues(field(c, "values"))
				if err != nil {
					return nil, err
				}
				body, err := d.stmts(field(c, "body"))
				if err != nil {
					return nil, err
				}
				st.Cases = append(st.Cases, narrow.Case{Values: values, Body: body})
			}
		}
		if def := field(val, "default"); def != nil {
			st.HasDefault = true
			if st.Default, err = d.stmts(def); err != nil {
				return nil, err
			}
		}
		return st, nil

	case "return":
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			return &narrow.Return{}, nil
		}
		x, err := d.expr(val)
		if err != nil {
			return nil, err
		}
		return &narrow.Return{Value: x}, nil

	case "inspect":
		label := field(val, "label")
		if label == nil {
			return nil, nodeErr(val, "inspect needs a label")
		}
		x, err := d.expr(field(val, "expr"))
		if err != nil {
			return nil, err
		}
		return &narrow.Inspect{Label: label.Value, Expr: x}, nil
	}
	return nil, nodeErr(pairs[0][0], "unknown statement %q", key)
}

func parsePolicy(s string) (types.WideningPolicy, error) {
	switch s {
	case "", "mutable", "let":
		return types.WidenMutable, nil
	case "preserve", "const":
		return types.PreserveLiterals, nil
	case "as-const":
		return types.AsConst, nil
	}
	return 0, fmt.Errorf("unknown widening policy %q", s)
}
