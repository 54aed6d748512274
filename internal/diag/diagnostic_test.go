package diag_test

import (
	"bytes"
	"testing"

	"github.com/malphas-lang/shapecheck/internal/diag"
)

func TestDiagnosticString(t *testing.T) {
	d := diag.Diagnostic{
		Stage:    diag.StageAssign,
		Severity: diag.SeverityError,
		Code:     diag.CodeTypeMismatch,
		Message:  "type number is not assignable to type string",
	}

	if got, want := d.String(), "error[TYPE_MISMATCH]: type number is not assignable to type string"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	spanned := d.WithSpan(diag.Span{Filename: "a.yaml", Line: 3, Column: 5})
	if got, want := spanned.String(), "a.yaml:3:5: error[TYPE_MISMATCH]: type number is not assignable to type string"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if d.Span.IsValid() {
		t.Fatalf("WithSpan must not modify the receiver")
	}
}

func TestDiagnosticBuilders(t *testing.T) {
	d := diag.Diagnostic{Code: diag.CodeNonExhaustive}.
		WithNote("discriminated on property \"kind\"").
		WithHelp("add a default branch").
		WithProofStep("in property \"kind\"", diag.Span{}).
		WithProofChain([]diag.ProofStep{{Message: "in union member 2"}})

	if len(d.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(d.Notes))
	}
	if d.Help != "add a default branch" {
		t.Fatalf("unexpected help %q", d.Help)
	}
	if len(d.ProofChain) != 2 || d.ProofChain[1].Message != "in union member 2" {
		t.Fatalf("unexpected proof chain %+v", d.ProofChain)
	}
}

func TestReporter(t *testing.T) {
	r := diag.NewReporter()
	if r.HasErrors() {
		t.Fatalf("new reporter has errors")
	}

	r.Warning(diag.StageNarrow, diag.CodeUnknownProperty, "property %q does not exist", "x")
	if r.HasErrors() {
		t.Fatalf("a warning is not an error")
	}

	r.Add(diag.Diagnostic{Severity: diag.SeverityError, Code: diag.CodeTypeMismatch, Span: diag.Span{Line: 2, Column: 1}})
	r.Error(diag.StageUtility, diag.CodeInvalidArgument, "bad")
	r.Add(diag.Diagnostic{Severity: diag.SeverityError, Code: diag.CodeMissingReturn, Span: diag.Span{Line: 1, Column: 4}})

	if !r.HasErrors() {
		t.Fatalf("expected errors")
	}
	if !r.HasCode(diag.CodeInvalidArgument) || r.HasCode(diag.CodeTypeTooComplex) {
		t.Fatalf("HasCode mismatch")
	}

	ds := r.Diagnostics()
	want := []diag.Code{diag.CodeUnknownProperty, diag.CodeInvalidArgument, diag.CodeMissingReturn, diag.CodeTypeMismatch}
	if len(ds) != len(want) {
		t.Fatalf("expected %d diagnostics, got %d", len(want), len(ds))
	}
	for i, code := range want {
		if ds[i].Code != code {
			t.Fatalf("diagnostic %d: expected %s, got %s", i, code, ds[i].Code)
		}
	}

	r.Reset()
	if len(r.Diagnostics()) != 0 {
		t.Fatalf("Reset left diagnostics behind")
	}
}

func TestFormatter(t *testing.T) {
	d := diag.Diagnostic{
		Severity: diag.SeverityError,
		Code:     diag.CodeTypeMismatch,
		Message:  "type {} is not assignable to type User",
		Span:     diag.Span{Filename: "s.yaml", Line: 4, Column: 2},
		Help:     "add the missing properties",
	}.WithProofStep("property \"id\" is missing", diag.Span{})

	var buf bytes.Buffer
	diag.NewFormatter(&buf).Indent("> ").Format(d)

	want := "> error[TYPE_MISMATCH]: type {} is not assignable to type User\n" +
		">   --> s.yaml:4:2\n" +
		">   = note: property \"id\" is missing\n" +
		"> help: add the missing properties\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}

	if got := (diag.Diagnostic{Message: "plain"}).Render(); got != "error: plain\n" {
		t.Fatalf("unexpected render %q", got)
	}
}
