// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/modhost/pkg/unitmod"
)

type (
	// ActionableError is a user-facing error: what was attempted, on which
	// unit or resource, why it failed and what to try next.
	//
	// Build one with ErrorContext:
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load configuration").
	//		WithResource("~/.config/modhost/config.cue").
	//		WithSuggestion("Run 'modhost config init' to create one").
	//		WithIssue(issue.ConfigLoadFailedId).
	//		Wrap(originalErr).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "load units" or "reload greeter".
		Operation string
		// Unit names the unit involved (optional).
		Unit string
		// Resource is the file or path involved (optional).
		Resource string
		// Suggestions are hints shown below the message (optional).
		Suggestions []string
		// Cause is the underlying error (optional).
		Cause error
		// Issue points at the catalog entry with longer guidance (optional).
		Issue Id
		// Fault classifies the failure. FaultNone when it is not a unit fault.
		Fault unitmod.FaultKind
	}

	// ErrorContext builds an ActionableError step by step. It may be kept
	// and reused; every Build copies the accumulated fields.
	ErrorContext struct {
		err ActionableError
	}
)

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation wraps err with an operation. It returns nil for a nil err.
func WrapWithOperation(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// Error renders "failed to <operation> [<unit>]: <resource>: <cause>".
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Unit != "" {
		fmt.Fprintf(&msg, " [%s]", e.Unit)
	}
	for _, part := range []string{e.Resource, causeText(e.Cause)} {
		if part != "" {
			msg.WriteString(": ")
			msg.WriteString(part)
		}
	}
	return msg.String()
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Unwrap returns the underlying cause error for use with errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format returns the message followed by one bulleted line per suggestion.
// A unit fault adds a pointer to 'modhost explain'. Verbose output also
// numbers every error in the cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	hints := e.Suggestions
	if e.Fault != unitmod.FaultNone {
		hints = append(hints[:len(hints):len(hints)], fmt.Sprintf("Run 'modhost explain %s' for details", e.Fault))
	}
	if len(hints) > 0 {
		msg.WriteString("\n")
		for _, hint := range hints {
			msg.WriteString("\n  • ")
			msg.WriteString(hint)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}
	return msg.String()
}

// Guide returns the linked catalog issue, or nil.
func (e *ActionableError) Guide() *Issue {
	if e.Issue == 0 {
		return nil
	}
	return Get(e.Issue)
}

// HasSuggestions returns true if the error has any suggestions.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// WithOperation sets the operation being performed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.err.Operation = op
	return c
}

// WithUnit sets the unit involved.
func (c *ErrorContext) WithUnit(name string) *ErrorContext {
	c.err.Unit = name
	return c
}

// WithResource sets the file or path involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.err.Resource = res
	return c
}

// WithSuggestion appends a suggestion.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.err.Suggestions = append(c.err.Suggestions, sug)
	return c
}

// WithIssue links the error to a catalog issue.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.err.Issue = id
	return c
}

// WithFault classifies the error as a unit fault and links the matching
// catalog issue unless one is already set.
func (c *ErrorContext) WithFault(kind unitmod.FaultKind) *ErrorContext {
	c.err.Fault = kind
	if id, ok := faultIssues[kind]; ok && c.err.Issue == 0 {
		c.err.Issue = id
	}
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.err.Cause = err
	return c
}

// Build returns the ActionableError, or nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.err.Operation == "" {
		return nil
	}
	ae := c.err
	ae.Suggestions = append([]string(nil), c.err.Suggestions...)
	return &ae
}

// BuildError is Build returning the error interface, so that a missing
// operation yields an untyped nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
