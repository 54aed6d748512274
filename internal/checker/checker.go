// Package checker implements the structural relations over types: assignability,
// union/intersection normalization, utility transforms and exhaustiveness.
package checker

import (
	"log/slog"

	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// DefaultMaxDepth bounds recursion in every relation the checker computes.
const DefaultMaxDepth = 100

// Options configures a Checker.
type Options struct {
	// MaxDepth bounds recursive comparison and normalization. Exceeding it
	// without closing a cycle is reported as TYPE_TOO_COMPLEX.
	MaxDepth int
	// StrictNullChecks keeps null and undefined out of every type that does
	// not name them. When false they are assignable to everything.
	StrictNullChecks bool
	Logger           *slog.Logger
}

// DefaultOptions returns the options used by NewDefault.
func DefaultOptions() Options {
	return Options{
		MaxDepth:         DefaultMaxDepth,
		StrictNullChecks: true,
	}
}

// Checker answers structural queries about types. A Checker is not safe for
// concurrent use; independent checks should use independent Checkers.
type Checker struct {
	opts     Options
	log      *slog.Logger
	Reporter *diag.Reporter
}

// New creates a checker with the given options.
func New(opts Options) *Checker {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		opts:     opts,
		log:      logger,
		Reporter: diag.NewReporter(),
	}
}

// NewDefault creates a checker with DefaultOptions.
func NewDefault() *Checker {
	return New(DefaultOptions())
}

// Options returns the checker configuration.
func (c *Checker) Options() Options { return c.opts }

// Logger returns the logger the checker reports to.
func (c *Checker) Logger() *slog.Logger { return c.log }

// Diagnostics returns everything reported so far.
func (c *Checker) Diagnostics() []diag.Diagnostic {
	return c.Reporter.Diagnostics()
}

// resolve follows Named references and evaluates Generic applications until
// it reaches a structural type.
func (c *Checker) resolve(t types.Type, depth int) (types.Type, error) {
	for hops := 0; ; hops++ {
		if depth+hops > c.opts.MaxDepth {
			return t, c.tooComplex(diag.StageUtility, t)
		}
		switch n := t.(type) {
		case *types.Named:
			def := n.Resolve()
			if def == nil {
				return t, newUtilityError(ErrInvalidArgument, "", "type %s is declared but never defined", n.Name)
			}
			t = def
		case *types.Generic:
			ev, err := c.apply(n.Utility, n.Base, n.Args, depth+hops+1)
			if err != nil {
				return t, err
			}
			t = ev
		default:
			return t, nil
		}
	}
}
