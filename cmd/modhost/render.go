// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/internal/issue"
	"github.com/invowk/modhost/internal/lifecycle"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitmod"
)

// glamourStyle is the glamour style used for issue help.
const glamourStyle = "dark"

// formatErrorForDisplay formats an error for user display. ActionableErrors
// get their suggestions; verbose adds the error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints err, then the linked issue help in verbose mode.
func renderError(w io.Writer, err error, verbose bool) {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	if !verbose {
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if guide := ae.Guide(); guide != nil {
			if rendered, rerr := guide.Render(glamourStyle); rerr == nil {
				fmt.Fprint(w, rendered)
			}
		}
	}
}

func renderDiagnostics(w io.Writer, diags []discovery.Diagnostic) {
	for _, d := range diags {
		style := WarningStyle
		if d.Severity == discovery.SeverityError {
			style = ErrorStyle
		}
		line := style.Render(string(d.Severity)) + " " + d.Code
		if d.Path != "" {
			line += " " + SubtitleStyle.Render(d.Path)
		}
		line += ": " + d.Message
		if d.Cause != nil {
			line += ": " + d.Cause.Error()
		}
		fmt.Fprintln(w, line)
	}
}

// renderReport prints the units of rep with their state and status, then
// the phase errors.
func renderReport(w io.Writer, rep *lifecycle.Report) {
	if len(rep.Units) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no units discovered)"))
		return
	}

	t := table.New().
		Headers("UNIT", "VERSION", "STATE", "STATUS", "CAUSE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for _, u := range rep.Units {
		cause := ""
		if u.Cause != nil {
			cause = u.Cause.Error()
		}
		t.Row(u.Name, u.Version, u.State.String(), statusText(u.Status), cause)
	}
	fmt.Fprintln(w, t.Render())

	for _, pe := range rep.PhaseErrors {
		fmt.Fprintf(w, "%s %s %s: %v\n", WarningStyle.Render("hook failed"), UnitStyle.Render(pe.Unit), pe.Phase, pe.Err)
	}
}

func statusText(s unitmod.LoadStatus) string {
	switch {
	case s == unitmod.LoadSuccess:
		return SuccessStyle.Render(s.String())
	case s.IsFailure():
		return ErrorStyle.Render(s.String())
	default:
		return s.String()
	}
}

// renderFault prints a transformation fault as a bordered card.
func renderFault(w io.Writer, f *transform.Fault) {
	var b strings.Builder
	b.WriteString(ErrorStyle.Render("Transformation fault") + "\n")
	fmt.Fprintf(&b, "class:       %s\n", f.Class)
	if f.Entry != "" {
		fmt.Fprintf(&b, "transformer: %s\n", f.Entry)
	}
	if f.Owner != "" {
		fmt.Fprintf(&b, "unit:        %s\n", UnitStyle.Render(f.Owner))
	}
	b.WriteString(f.Error() + "\n")
	b.WriteString(SubtitleStyle.Render("The batch was rolled back. Run 'modhost explain transformation' for help."))
	fmt.Fprintln(w, faultCardStyle.Render(b.String()))
}
