// SPDX-License-Identifier: MPL-2.0

package unitmod

import (
	_ "embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/invowk/modhost/pkg/cueutil"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

// ErrUnsupportedManifest is returned by Decode for file names it does not
// know how to read.
var ErrUnsupportedManifest = errors.New("unsupported manifest format")

// ManifestNames lists the manifest file names searched at a unit root, in
// fallback order.
var ManifestNames = []string{"unit.cue", "unit.json", "unit.toml", "unit.yaml"}

type (
	// Manifest is the raw, undefaulted content of a unit manifest.
	Manifest struct {
		Name                   string               `json:"name,omitempty" toml:"name" yaml:"name"`
		Entrypoint             string               `json:"entrypoint,omitempty" toml:"entrypoint" yaml:"entrypoint"`
		Version                string               `json:"version,omitempty" toml:"version" yaml:"version"`
		Authors                []string             `json:"authors,omitempty" toml:"authors" yaml:"authors"`
		CodeModifiers          []string             `json:"codeModifiers,omitempty" toml:"codeModifiers" yaml:"codeModifiers"`
		Dependencies           []string             `json:"dependencies,omitempty" toml:"dependencies" yaml:"dependencies"`
		MixinConfig            string               `json:"mixinConfig,omitempty" toml:"mixinConfig" yaml:"mixinConfig"`
		AccessWidener          string               `json:"accessWidener,omitempty" toml:"accessWidener" yaml:"accessWidener"`
		ReversibleAccessSetter string               `json:"reversibleAccessSetter,omitempty" toml:"reversibleAccessSetter" yaml:"reversibleAccessSetter"`
		ExternalDependencies   ExternalDependencies `json:"externalDependencies,omitempty" toml:"externalDependencies" yaml:"externalDependencies"`
	}

	// ExternalDependencies are hints about artifacts a unit needs from
	// outside the loader (resolved by external tooling, never by modhost).
	ExternalDependencies struct {
		Repositories []Repository `json:"repositories,omitempty" toml:"repositories" yaml:"repositories"`
		Artifacts    []string     `json:"artifacts,omitempty" toml:"artifacts" yaml:"artifacts"`
	}

	// Repository names an artifact repository.
	Repository struct {
		Name string `json:"name" toml:"name" yaml:"name"`
		URL  string `json:"url" toml:"url" yaml:"url"`
	}
)

// IsManifestName reports whether name is one of ManifestNames.
func IsManifestName(name string) bool {
	for _, n := range ManifestNames {
		if n == name {
			return true
		}
	}
	return false
}

// Decode reads a raw manifest. The format is selected by the extension of
// filename. A decode error means the candidate is unreadable; validation of
// the decoded content is Parse's job and never fails.
func Decode(data []byte, filename string) (*Manifest, error) {
	ext := strings.ToLower(path.Ext(filename))

	switch ext {
	case ".cue", ".json":
		result, err := cueutil.ParseAndDecode[Manifest](manifestSchema, data, "#Manifest",
			cueutil.WithFilename(filename))
		if err != nil {
			return nil, err
		}
		return result.Value, nil

	case ".toml":
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
			return nil, err
		}
		var m Manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return &m, nil

	case ".yaml", ".yml":
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, filename); err != nil {
			return nil, err
		}
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return &m, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedManifest, filename)
	}
}
