// Package diagnostic implements the error-as-value model described by the
// core: every failure, from a bad literal to a catalog inconsistency, is a
// Diagnostic carrying a stable code, a human message, and enough source
// context to render underlined in place. Diagnostics compose with errors.Is
// and errors.As instead of being matched by string.
package diagnostic

import (
	"fmt"
	"strings"
)

// Code is a stable, persisted identifier for a class of diagnostic. Codes
// are never renumbered or reused once shipped, since they are written into
// CDC-adjacent logs and tooling keys off them.
type Code string

const (
	CodeNamespaceExists     Code = "CA_001"
	CodeTxnConflict         Code = "TXN_001"
	CodeTxnTooLarge         Code = "TXN_003"
	CodeNumberInvalid       Code = "NUMBER_001"
	CodeNumberOutOfRange    Code = "NUMBER_002"
	CodeBlobInvalidLength   Code = "BLOB_001"
	CodeBlobInvalidEncoding Code = "BLOB_002"
	CodeBlobTooLarge        Code = "BLOB_003"
	CodeBlobTruncated       Code = "BLOB_004"
	CodePolicyDenied        Code = "POLICY_001"
	CodePolicyUndefined     Code = "POLICY_002"
	CodeTakeNegative        Code = "TAKE_001"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Fragment is a slice of source text plus its position, attached to a
// diagnostic so it can be rendered underlined in place.
type Fragment struct {
	Text   string
	Line   int
	Column int
}

// Diagnostic is a structured error value. It is never used for expected
// control flow outside the engine boundary, the one place errors are
// inspected rather than simply propagated to the caller.
type Diagnostic struct {
	Code     Code
	Message  string
	Fragment Fragment
	Label    string
	Help     string
	Notes    []string
	Cause    error
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Code, d.Message)
	if d.Fragment.Text != "" {
		fmt.Fprintf(&b, " (at %d:%d: %q)", d.Fragment.Line, d.Fragment.Column, d.Fragment.Text)
	}
	if d.Label != "" {
		fmt.Fprintf(&b, " [%s]", d.Label)
	}
	if d.Cause != nil {
		fmt.Fprintf(&b, ": %v", d.Cause)
	}
	return b.String()
}

func (d *Diagnostic) Unwrap() error {
	return d.Cause
}

// New builds a diagnostic with the given code and message.
func New(code Code, message string) *Diagnostic {
	return &Diagnostic{Code: code, Message: message}
}

// Wrap builds a diagnostic that carries an underlying error as its cause.
func Wrap(code Code, message string, cause error) *Diagnostic {
	return &Diagnostic{Code: code, Message: message, Cause: cause}
}

// WithFragment attaches source position information and returns the same
// diagnostic for chaining.
func (d *Diagnostic) WithFragment(f Fragment) *Diagnostic {
	d.Fragment = f
	return d
}

// WithLabel attaches a short inline label.
func (d *Diagnostic) WithLabel(label string) *Diagnostic {
	d.Label = label
	return d
}

// WithHelp attaches a longer remediation hint.
func (d *Diagnostic) WithHelp(help string) *Diagnostic {
	d.Help = help
	return d
}

// WithNotes appends free-form notes.
func (d *Diagnostic) WithNotes(notes ...string) *Diagnostic {
	d.Notes = append(d.Notes, notes...)
	return d
}

// Internal builds an INTERNAL_ERROR diagnostic for unreachable invariant
// violations ("catalog inconsistency" and friends) and always logs it at
// error level before returning, matching the taxonomy's "Internal: always
// logged" propagation rule.
func Internal(message string, cause error) *Diagnostic {
	d := &Diagnostic{Code: CodeInternal, Message: message, Cause: cause}
	logInternal(d)
	return d
}

// logInternal starts as a no-op and is replaced at startup via
// SetInternalLogger, so diagnostic does not import log (log does not depend
// on diagnostic; callers wire the hook at startup).
var logInternal = func(d *Diagnostic) {}

// SetInternalLogger installs the function called whenever Internal
// constructs a diagnostic. cmd/reifydb-admin's main calls this once after
// log.Init so every internal diagnostic is logged; until some caller
// installs a logger, Internal logs nothing.
func SetInternalLogger(fn func(d *Diagnostic)) {
	logInternal = fn
}
