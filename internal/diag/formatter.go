package diag

import (
	"fmt"
	"io"
	"strings"
)

// Formatter renders diagnostics in a compiler-style layout:
//
//	error[TYPE_MISMATCH]: type { id: number } is not assignable to type User
//	  --> suite.yaml:12:3
//	  = note: property "name" is missing
//	help: ...
type Formatter struct {
	w      io.Writer
	indent string
}

// NewFormatter creates a formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// Indent prefixes every rendered line with prefix.
func (f *Formatter) Indent(prefix string) *Formatter {
	return &Formatter{w: f.w, indent: prefix}
}

// Format writes d.
func (f *Formatter) Format(d Diagnostic) {
	f.printHeader(d)
	if d.Span.IsValid() {
		f.printf("  --> %s\n", d.Span)
	}
	f.printNotes(d)
}

// FormatAll writes every diagnostic in ds, separated by blank lines.
func (f *Formatter) FormatAll(ds []Diagnostic) {
	for i, d := range ds {
		if i > 0 {
			f.printf("\n")
		}
		f.Format(d)
	}
}

// Render formats d as a string.
func (d Diagnostic) Render() string {
	var sb strings.Builder
	NewFormatter(&sb).Format(d)
	return sb.String()
}

func (f *Formatter) printf(format string, args ...interface{}) {
	fmt.Fprintf(f.w, f.indent+format, args...)
}

// printHeader prints severity[CODE]: message.
func (f *Formatter) printHeader(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = string(SeverityError)
	}

	if d.Code != "" {
		f.printf("%s[%s]: %s\n", severity, d.Code, d.Message)
	} else {
		f.printf("%s: %s\n", severity, d.Message)
	}
}

// printNotes prints the proof chain, then notes, then help.
func (f *Formatter) printNotes(d Diagnostic) {
	for _, step := range d.ProofChain {
		f.printf("  = note: %s\n", step.Message)
		if step.Span.IsValid() {
			f.printf("           at %s\n", step.Span)
		}
	}

	for _, note := range d.Notes {
		f.printf("  = note: %s\n", note)
	}

	if d.Help != "" {
		f.printf("help: %s\n", d.Help)
	}
}
