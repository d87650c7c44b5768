// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/modhost/internal/builtin"
	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/internal/issue"
	"github.com/invowk/modhost/internal/lifecycle"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitcode"
	"github.com/invowk/modhost/pkg/unitmod"
)

// check is one line of validate output.
type check struct {
	name  string
	fault unitmod.FaultKind
	err   error
}

func newValidateCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <unit-location>",
		Short: "Check a unit directory or archive without loading it",
		Long: `Check a unit directory or .zip archive without loading it: the manifest,
the entrypoint class and factory, the code modifiers, the mixin
configuration and the access rule files.

Dependencies are listed but not checked, since they are only resolved
within a batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), app, flags, args[0])
		},
	}
}

func runValidate(ctx context.Context, app *App, flags *rootFlagValues, location string) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	h, err := app.newHost(cfg, nil)
	if err != nil {
		return err
	}

	desc, origin, err := h.discoverer.Inspect(location)
	if err != nil {
		fmt.Fprintf(app.stdout, "%s manifest: %v\n", ErrorStyle.Render("✗"), err)
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%s is not a readable unit", location)}
	}

	checks := validateUnit(desc, origin, app.Registry, unitcode.Prefixes(cfg.ProtectedPrefixes))

	fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render(desc.Name), SubtitleStyle.Render(desc.Version+" "+desc.Origin))
	var firstFailed *check
	failed := 0
	for i, c := range checks {
		if c.err != nil {
			failed++
			if firstFailed == nil {
				firstFailed = &checks[i]
			}
			fmt.Fprintf(app.stdout, "%s %s: %v\n", ErrorStyle.Render("✗"), c.name, c.err)
			continue
		}
		fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), c.name)
	}
	if len(desc.Dependencies) > 0 {
		fmt.Fprintf(app.stdout, "%s depends on %s\n", SubtitleStyle.Render("•"), strings.Join(desc.Dependencies, ", "))
	}

	if failed > 0 {
		err := issue.NewErrorContext().
			WithOperation("validate unit").
			WithUnit(desc.Name).
			WithResource(firstFailed.name).
			WithFault(firstFailed.fault).
			Wrap(fmt.Errorf("%d check(s) failed, first: %w", failed, firstFailed.err)).
			BuildError()
		renderError(app.stderr, err, flags.verbose)
		return &ExitError{Code: ExitFailure, Err: err}
	}
	return nil
}

// validateUnit runs the checks LoadBatch would fail on, short of resolution
// and instantiation.
func validateUnit(desc *unitmod.Descriptor, origin discovery.Origin, reg *unitapi.Registry, protected unitcode.Prefixes) []check {
	var checks []check
	if desc.Status().IsFailure() {
		return append(checks, check{name: "manifest", fault: desc.Status().Fault(), err: desc.Cause()})
	}
	checks = append(checks, check{name: "manifest"})

	checks = append(checks, check{name: "entrypoint class " + desc.Entrypoint, fault: unitmod.InstantiationFault, err: entrypointClass(desc.Entrypoint, origin, protected)})
	var factoryErr error
	if _, ok := reg.Entrypoint(desc.Entrypoint); !ok {
		factoryErr = lifecycle.ErrNoFactory
	}
	checks = append(checks, check{name: "entrypoint factory", fault: unitmod.InstantiationFault, err: factoryErr})

	for _, id := range desc.CodeModifiers {
		var err error
		if _, ok := reg.CodeModifier(id); !ok {
			err = lifecycle.ErrUnknownCodeModifier
		}
		checks = append(checks, check{name: "code modifier " + id, fault: unitmod.InstantiationFault, err: err})
	}

	if desc.MixinConfig != "" {
		checks = append(checks, check{name: "mixin config " + desc.MixinConfig, fault: unitmod.TransformationFault, err: readAndParse(origin, desc.MixinConfig, func(data []byte) error {
			cfg, err := transform.ParseMixinConfig(data, desc.MixinConfig)
			if err != nil {
				return err
			}
			_, err = cfg.Entries(desc.Name)
			return err
		})})
	}
	for _, path := range []string{desc.AccessWidener, desc.ReversibleAccessSetter} {
		if path == "" {
			continue
		}
		checks = append(checks, check{name: "access rules " + path, fault: unitmod.TransformationFault, err: readAndParse(origin, path, func(data []byte) error {
			_, err := transform.ParseAccessRules(bytes.NewReader(data), path)
			return err
		})})
	}
	return checks
}

func entrypointClass(id string, origin discovery.Origin, protected unitcode.Prefixes) error {
	var (
		raw []byte
		err error
	)
	if protected.Match(id) {
		raw, err = platformClass(id)
	} else {
		raw, err = origin.ReadFile(unitcode.ResourcePath(id))
	}
	if err != nil {
		return err
	}
	cls, err := unitcode.DecodeClass(raw)
	if err != nil {
		return err
	}
	if !cls.Implements(unitapi.CapabilityInterface) {
		return fmt.Errorf("%w: %s does not list %s", lifecycle.ErrWrongShape, cls.Name, unitapi.CapabilityInterface)
	}
	return nil
}

func readAndParse(origin discovery.Origin, path string, parse func([]byte) error) error {
	data, err := origin.ReadFile(path)
	if err != nil {
		return err
	}
	return parse(data)
}

// platformClass returns the encoded built-in class id.
func platformClass(id string) ([]byte, error) {
	src, err := builtin.Platform()
	if err != nil {
		return nil, err
	}
	return src.ReadFile(unitcode.ResourcePath(id))
}
