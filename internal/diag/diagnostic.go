package diag

import "fmt"

// Stage identifies which checker component produced the diagnostic.
type Stage string

const (
	StageAssign     Stage = "assign"
	StageNormalize  Stage = "normalize"
	StageUtility    Stage = "utility"
	StageNarrow     Stage = "narrow"
	StageExhaustive Stage = "exhaustive"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// ProofStep represents a step in a proof chain (e.g., "in property `email`").
// This helps explain why a relation failed by showing the path to the
// offending component.
type ProofStep struct {
	Message string // The reasoning step
	Span    Span   // Optional span where this step comes from
}

// Code is a stable identifier for a diagnostic.
type Code string

const (
	CodeUnsupportedUtility Code = "TYPE_UNSUPPORTED_UTILITY"
	CodeInvalidArgument    Code = "TYPE_INVALID_ARGUMENT"
	CodeUnknownProperty    Code = "TYPE_UNKNOWN_PROPERTY"
	CodeTypeTooComplex     Code = "TYPE_TOO_COMPLEX"
	CodeTypeMismatch       Code = "TYPE_MISMATCH"
	CodeNonExhaustive      Code = "TYPE_NON_EXHAUSTIVE"
	CodeMissingReturn      Code = "TYPE_MISSING_RETURN"
	CodeUndefinedBinding   Code = "TYPE_UNDEFINED_BINDING"
	CodeUnresolvedType     Code = "TYPE_UNRESOLVED"
)

// Span represents a location supplied by the host front-end. The checker
// never invents spans; zero spans are valid and simply not printed.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// Diagnostic is a structured checker result surfaced to the host.
type Diagnostic struct {
	Stage      Stage
	Severity   Severity
	Code       Code
	Message    string
	Span       Span
	Notes      []string    // Additional notes to display
	Help       string      // Help text
	ProofChain []ProofStep // Path that led to the failure, outermost first
}

func (d Diagnostic) String() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s: %s[%s]: %s", d.Span, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
}

// WithSpan returns a new diagnostic attached to span.
func (d Diagnostic) WithSpan(span Span) Diagnostic {
	d.Span = span
	return d
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithHelp adds help text to the diagnostic.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// WithProofStep adds a step to the proof chain.
func (d Diagnostic) WithProofStep(message string, span Span) Diagnostic {
	d.ProofChain = append(d.ProofChain, ProofStep{
		Message: message,
		Span:    span,
	})
	return d
}

// WithProofChain adds multiple proof steps at once.
func (d Diagnostic) WithProofChain(steps []ProofStep) Diagnostic {
	d.ProofChain = append(d.ProofChain, steps...)
	return d
}
