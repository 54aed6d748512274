package diag

import (
	"fmt"
	"sort"
)

// Reporter collects diagnostics during a check.
type Reporter struct {
	diagnostics []Diagnostic
}

// NewReporter creates a new diagnostic reporter.
func NewReporter() *Reporter {
	return &Reporter{
		diagnostics: make([]Diagnostic, 0),
	}
}

// Add appends a fully built diagnostic.
func (r *Reporter) Add(d Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
}

// Report adds a diagnostic to the collection.
func (r *Reporter) Report(stage Stage, severity Severity, code Code, format string, args ...interface{}) Diagnostic {
	d := Diagnostic{
		Stage:    stage,
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
	r.diagnostics = append(r.diagnostics, d)
	return d
}

// Error reports an error.
func (r *Reporter) Error(stage Stage, code Code, format string, args ...interface{}) Diagnostic {
	return r.Report(stage, SeverityError, code, format, args...)
}

// Warning reports a warning.
func (r *Reporter) Warning(stage Stage, code Code, format string, args ...interface{}) Diagnostic {
	return r.Report(stage, SeverityWarning, code, format, args...)
}

// Diagnostics returns all collected diagnostics, sorted by position. Ties
// keep report order.
func (r *Reporter) Diagnostics() []Diagnostic {
	sorted := make([]Diagnostic, len(r.diagnostics))
	copy(sorted, r.diagnostics)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Line != sorted[j].Span.Line {
			return sorted[i].Span.Line < sorted[j].Span.Line
		}
		return sorted[i].Span.Column < sorted[j].Span.Column
	})

	return sorted
}

// HasErrors returns true if any errors have been reported.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasCode reports whether a diagnostic with code was reported.
func (r *Reporter) HasCode(code Code) bool {
	for _, d := range r.diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Reset drops all collected diagnostics.
func (r *Reporter) Reset() {
	r.diagnostics = r.diagnostics[:0]
}
