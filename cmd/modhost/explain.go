// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/modhost/internal/issue"
	"github.com/invowk/modhost/pkg/unitmod"
)

func newExplainCommand(app *App) *cobra.Command {
	var plain bool

	explainCmd := &cobra.Command{
		Use:   "explain [fault]",
		Short: "Explain a fault kind",
		Long: `Explain a fault kind and how to fix it. Without an argument, list the
fault kinds. Kinds: ` + faultKindList() + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, k := range unitmod.FaultKinds() {
					fatal := ""
					if k.Fatal() {
						fatal = ErrorStyle.Render(" (aborts the batch)")
					}
					fmt.Fprintf(app.stdout, "%s%s\n", UnitStyle.Render(k.String()), fatal)
				}
				return nil
			}

			kind, err := unitmod.ParseFaultKind(args[0])
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("explain fault").
					WithResource(args[0]).
					WithSuggestion("Use one of: " + faultKindList()).
					Wrap(err).
					BuildError()
			}
			guide := issue.ForFault(kind)
			if plain {
				fmt.Fprintln(app.stdout, strings.TrimSpace(string(guide.MarkdownMsg())))
				return nil
			}
			rendered, err := guide.Render(glamourStyle)
			if err != nil {
				return fmt.Errorf("render help: %w", err)
			}
			fmt.Fprint(app.stdout, rendered)
			return nil
		},
	}
	explainCmd.Flags().BoolVar(&plain, "plain", false, "print raw markdown")
	return explainCmd
}

func faultKindList() string {
	kinds := unitmod.FaultKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
