// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/invowk/modhost/pkg/unitmod"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "load units"}, "failed to load units"},
		{"with resource", &ActionableError{Operation: "load units", Resource: "./units"}, "failed to load units: ./units"},
		{
			"with cause",
			&ActionableError{Operation: "parse config", Cause: errors.New("syntax error at line 5")},
			"failed to parse config: syntax error at line 5",
		},
		{
			"with unit",
			&ActionableError{Operation: "reload unit", Unit: "greeter", Cause: errors.New("origin gone")},
			"failed to reload unit [greeter]: origin gone",
		},
		{
			"full context",
			&ActionableError{Operation: "load units", Unit: "greeter", Resource: "./units", Cause: errors.New("file not found")},
			"failed to load units [greeter]: ./units: file not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("specific error")
	err := fmt.Errorf("outer: %w", &ActionableError{Operation: "test", Cause: sentinel})
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the cause through ActionableError")
	}
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Operation != "test" {
		t.Errorf("errors.As = %+v", ae)
	}
	if (&ActionableError{Operation: "x"}).Unwrap() != nil {
		t.Error("Unwrap() without cause should be nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	chain := fmt.Errorf("read unit.json: %w", errors.New("permission denied"))
	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "suggestions are bulleted",
			err:      &ActionableError{Operation: "load units", Suggestions: []string{"Check the path", "Run with -v"}},
			contains: []string{"failed to load units", "\n\n  • Check the path", "\n  • Run with -v"},
		},
		{
			name:     "fault adds explain hint",
			err:      &ActionableError{Operation: "load units", Fault: unitmod.DependencyFault},
			contains: []string{"  • Run 'modhost explain dependency' for details"},
		},
		{
			name:     "chain hidden without verbose",
			err:      &ActionableError{Operation: "inspect unit", Cause: chain},
			excludes: []string{"Error chain:"},
		},
		{
			name:     "chain numbered with verbose",
			err:      &ActionableError{Operation: "inspect unit", Cause: chain},
			verbose:  true,
			contains: []string{"Error chain:", "1. read unit.json: permission denied", "2. permission denied"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() lacks %q:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() contains %q:\n%s", s, got)
				}
			}
		})
	}
}

func TestActionableError_FormatKeepsSuggestions(t *testing.T) {
	t.Parallel()

	sugs := make([]string, 1, 4)
	sugs[0] = "only"
	err := &ActionableError{Operation: "x", Suggestions: sugs, Fault: unitmod.NamespaceFault}
	_ = err.Format(false)
	if len(err.Suggestions) != 1 || sugs[:2][1] != "" {
		t.Errorf("Format() modified the suggestions: %v", sugs[:2])
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("parse error")
	ae := NewErrorContext().
		WithOperation("parse manifest").
		WithUnit("greeter").
		WithResource("greeter/unit.json").
		WithSuggestion("Check the JSON syntax").
		Wrap(cause).
		Build()
	if ae == nil {
		t.Fatal("Build() = nil")
	}
	if ae.Operation != "parse manifest" || ae.Unit != "greeter" || ae.Resource != "greeter/unit.json" {
		t.Errorf("fields = %+v", ae)
	}
	if len(ae.Suggestions) != 1 || !errors.Is(ae, cause) || !ae.HasSuggestions() {
		t.Errorf("suggestions/cause = %+v", ae)
	}

	if NewErrorContext().WithResource("some/path").Build() != nil {
		t.Error("Build() without operation should be nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %#v, want untyped nil", err)
	}
	if NewErrorContext().WithOperation("x").BuildError() == nil {
		t.Error("BuildError() with operation = nil")
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("reload unit").WithSuggestion("first")
	first := ctx.Wrap(errors.New("error 1")).Build()
	second := ctx.WithSuggestion("second").Wrap(errors.New("error 2")).Build()

	if first.Cause.Error() != "error 1" || len(first.Suggestions) != 1 {
		t.Errorf("first = %+v", first)
	}
	if second.Cause.Error() != "error 2" || len(second.Suggestions) != 2 {
		t.Errorf("second = %+v", second)
	}
}

func TestErrorContext_WithIssue(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("load configuration").
		WithIssue(ConfigLoadFailedId).
		Build()
	if guide := err.Guide(); guide == nil || guide.Id() != ConfigLoadFailedId {
		t.Errorf("Guide() = %v", guide)
	}
	if (&ActionableError{Operation: "x"}).Guide() != nil {
		t.Error("Guide() without issue should be nil")
	}
}

func TestErrorContext_WithFault(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().WithOperation("validate unit").WithFault(unitmod.InstantiationFault).Build()
	if err.Fault != unitmod.InstantiationFault || err.Issue != InstantiationFailedId {
		t.Errorf("err = %+v", err)
	}

	pinned := NewErrorContext().
		WithOperation("validate unit").
		WithIssue(SearchPathMissingId).
		WithFault(unitmod.DiscoveryFault).
		Build()
	if pinned.Issue != SearchPathMissingId {
		t.Errorf("WithFault replaced an explicit issue: %v", pinned.Issue)
	}
}

func TestWrapWithOperation(t *testing.T) {
	t.Parallel()

	cause := errors.New("original error")
	err := WrapWithOperation(cause, "locate configuration directory")
	if err == nil || err.Operation != "locate configuration directory" || !errors.Is(err, cause) {
		t.Errorf("WrapWithOperation() = %+v", err)
	}
	if WrapWithOperation(nil, "test") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
}
