// Package diagnostics is the single observable failure channel (§7): every
// semantic, TAC-generation, and MIPS-generation error surfaces as a
// Diagnostic, rendered to stderr for the CLI or to a JSON array for the HTTP
// server. Modeled on the teacher repo's internal/errors.SentraError (typed
// error + SourceLocation + call stack + source line), but MIPS/TAC-stage
// errors indicate compiler bugs (§7.3) rather than user mistakes, so those
// two kinds additionally capture a real stack trace via github.com/pkg/errors
// instead of hand-rolling a call-stack recorder.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"compiscript/internal/ast"
)

type Kind string

const (
	KindLexer    Kind = "lexer"
	KindParser   Kind = "parser"
	KindSemantic Kind = "semantic"
	KindTAC      Kind = "tac"
	KindMIPS     Kind = "mips"
)

// Diagnostic is one reported failure or warning.
type Diagnostic struct {
	Kind     Kind
	Message  string
	Line     int
	Column   int
	Length   int
	Warning  bool
	cause    error // non-nil for TAC/MIPS diagnostics: stack-wrapped via pkg/errors
}

func (d *Diagnostic) Error() string {
	var sb strings.Builder
	sev := "error"
	if d.Warning {
		sev = "warning"
	}
	fmt.Fprintf(&sb, "%s[%s]: %s", sev, d.Kind, d.Message)
	if d.Line > 0 {
		fmt.Fprintf(&sb, " (line %d, column %d)", d.Line, d.Column)
	}
	return sb.String()
}

func (d *Diagnostic) Unwrap() error { return d.cause }

// NewSemanticError reports an external-collaborator (semantic analyzer)
// failure: undeclared identifier, incompatible assignment, misuse of
// break/continue, duplicate declaration, constructor arity mismatch, etc.
// Not a compiler bug, so no stack trace is attached.
func NewSemanticError(message string, loc ast.SourceLocation) *Diagnostic {
	return &Diagnostic{Kind: KindSemantic, Message: message, Line: loc.Line, Column: loc.Column}
}

// NewTACError reports a §7.2 TAC-generation failure: unregistered callee,
// arity mismatch, unsupported operator on a typed operand, non-assignable
// target. These still stem from compiler logic bugs surfacing invalid
// input it should have rejected earlier, so a stack trace is attached.
func NewTACError(message string, loc ast.SourceLocation) *Diagnostic {
	return &Diagnostic{
		Kind: KindTAC, Message: message, Line: loc.Line, Column: loc.Column,
		cause: errors.WithStack(errors.New(message)),
	}
}

// NewMIPSError reports a §7.3 register-allocation or label-resolution
// failure. These should never occur given correct TAC and indicate compiler
// bugs, so a full stack trace always rides along.
func NewMIPSError(message string) *Diagnostic {
	return &Diagnostic{
		Kind: KindMIPS, Message: message,
		cause: errors.WithStack(errors.New(message)),
	}
}

// NewWarning reports a non-fatal diagnostic (e.g. a TAC validator finding,
// or a peephole-optimizer notice).
func NewWarning(kind Kind, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: message, Warning: true}
}

// StackTrace renders the captured stack trace (TAC/MIPS diagnostics only);
// empty for semantic diagnostics or warnings.
func (d *Diagnostic) StackTrace() string {
	if d.cause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", d.cause)
}

// Bag collects diagnostics across a compilation unit and answers whether
// compilation should abort (any non-warning entry).
type Bag struct {
	Items []*Diagnostic
}

func (b *Bag) Add(d *Diagnostic) { b.Items = append(b.Items, d) }

func (b *Bag) HasErrors() bool {
	for _, d := range b.Items {
		if !d.Warning {
			return true
		}
	}
	return false
}

func (b *Bag) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range b.Items {
		if !d.Warning {
			out = append(out, d)
		}
	}
	return out
}

func (b *Bag) Warnings() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range b.Items {
		if d.Warning {
			out = append(out, d)
		}
	}
	return out
}
