// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/internal/namespace"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitcode"
	"github.com/invowk/modhost/pkg/unitmod"
)

// unitSetup is the unitapi.Setup handed to factories.
type unitSetup struct {
	desc     *unitmod.Descriptor
	ns       *namespace.Namespace
	pipeline *transform.Pipeline
	logger   *log.Logger
}

var _ unitapi.Setup = (*unitSetup)(nil)

func (s *unitSetup) Name() string { return s.desc.Name }

func (s *unitSetup) Logger() *log.Logger { return s.logger }

func (s *unitSetup) Resolve(id string) (*unitcode.Class, error) {
	if err := s.pipeline.CheckReentry(s.desc.Name, id); err != nil {
		return nil, err
	}
	return s.ns.ResolveClass(id)
}

func (s *unitSetup) AddTransformer(spec unitapi.TransformerSpec) error {
	if err := s.pipeline.CheckReentry(s.desc.Name, ""); err != nil {
		return err
	}
	entry, err := transform.FromSpec(s.desc.Name, spec)
	if err != nil {
		return err
	}
	if err := s.pipeline.Add(entry); err != nil {
		return fmt.Errorf("unit %s: %w", s.desc.Name, err)
	}
	return nil
}
