package checker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/malphas-lang/shapecheck/internal/diag"
	"github.com/malphas-lang/shapecheck/internal/types"
)

// Error taxonomy. Every error returned by the checker wraps one of these.
var (
	ErrUnsupportedUtility = errors.New("unsupported utility")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnknownProperty    = errors.New("unknown property")
	ErrTypeTooComplex     = errors.New("type too complex")
)

// UtilityError is returned by ApplyUtility and by evaluation of Generic types.
type UtilityError struct {
	Kind    error // one of the Err* sentinels
	Utility string
	Detail  string
}

func (e *UtilityError) Error() string {
	if e.Utility == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Utility, e.Kind, e.Detail)
}

func (e *UtilityError) Unwrap() error { return e.Kind }

func newUtilityError(kind error, utility string, format string, args ...interface{}) *UtilityError {
	return &UtilityError{Kind: kind, Utility: utility, Detail: fmt.Sprintf(format, args...)}
}

// MismatchError explains why a source type is not assignable to a target.
type MismatchError struct {
	Source types.Type
	Target types.Type
	// Reasons lists the failing path, outermost first.
	Reasons []string
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("type %s is not assignable to type %s", e.Source, e.Target)
	if len(e.Reasons) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(e.Reasons, ": ")
}

// Diagnostic converts the mismatch into a TYPE_MISMATCH diagnostic.
func (e *MismatchError) Diagnostic() diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageAssign,
		Severity: diag.SeverityError,
		Code:     diag.CodeTypeMismatch,
		Message:  fmt.Sprintf("type %s is not assignable to type %s", e.Source, e.Target),
	}
	for _, r := range e.Reasons {
		d = d.WithProofStep(r, diag.Span{})
	}
	return d
}

func codeFor(err error) diag.Code {
	switch {
	case errors.Is(err, ErrUnsupportedUtility):
		return diag.CodeUnsupportedUtility
	case errors.Is(err, ErrUnknownProperty):
		return diag.CodeUnknownProperty
	case errors.Is(err, ErrTypeTooComplex):
		return diag.CodeTypeTooComplex
	default:
		return diag.CodeInvalidArgument
	}
}

// reportUtilityError records err as a diagnostic. TYPE_TOO_COMPLEX is
// already reported where the bound was hit.
func (c *Checker) reportUtilityError(err error) {
	if errors.Is(err, ErrTypeTooComplex) {
		return
	}
	c.Reporter.Error(diag.StageUtility, codeFor(err), "%s", err.Error())
}

// tooComplex reports that the depth bound was exceeded while processing t.
func (c *Checker) tooComplex(stage diag.Stage, t types.Type) error {
	c.log.Debug("depth bound exceeded", "stage", stage, "type", t.String(), "max_depth", c.opts.MaxDepth)
	c.Reporter.Add(diag.Diagnostic{
		Stage:    stage,
		Severity: diag.SeverityError,
		Code:     diag.CodeTypeTooComplex,
		Message:  fmt.Sprintf("type %s exceeds the recursion depth bound of %d", t, c.opts.MaxDepth),
		Help:     "break the recursion with a named type so the cycle can be detected",
	})
	return newUtilityError(ErrTypeTooComplex, "", "depth bound %d exceeded at %s", c.opts.MaxDepth, t)
}
