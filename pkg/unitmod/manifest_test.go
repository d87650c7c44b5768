// SPDX-License-Identifier: MPL-2.0

package unitmod

import (
	"errors"
	"slices"
	"testing"
)

func TestDecode_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{
			name:     "json",
			filename: "unit.json",
			data: `{
				"name": "alpha",
				"entrypoint": "alpha.Entry",
				"version": "1.0.0",
				"dependencies": ["base"],
				"externalDependencies": {"repositories": [{"name": "central", "url": "https://repo.example"}], "artifacts": ["g:a:1"]},
				"customKey": true
			}`,
		},
		{
			name:     "cue",
			filename: "unit.cue",
			data: `
name:         "alpha"
entrypoint:   "alpha.Entry"
version:      "1.0.0"
dependencies: ["base"]
externalDependencies: {
	repositories: [{name: "central", url: "https://repo.example"}]
	artifacts: ["g:a:1"]
}
`,
		},
		{
			name:     "toml",
			filename: "unit.toml",
			data: `
name = "alpha"
entrypoint = "alpha.Entry"
version = "1.0.0"
dependencies = ["base"]

[externalDependencies]
artifacts = ["g:a:1"]

[[externalDependencies.repositories]]
name = "central"
url = "https://repo.example"
`,
		},
		{
			name:     "yaml",
			filename: "unit.yaml",
			data: `
name: alpha
entrypoint: alpha.Entry
version: 1.0.0
dependencies: [base]
externalDependencies:
  repositories:
    - name: central
      url: https://repo.example
  artifacts: ["g:a:1"]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := Decode([]byte(tt.data), tt.filename)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if m.Name != "alpha" || m.Entrypoint != "alpha.Entry" || m.Version != "1.0.0" {
				t.Errorf("unexpected manifest %+v", m)
			}
			if !slices.Equal(m.Dependencies, []string{"base"}) {
				t.Errorf("Dependencies = %v", m.Dependencies)
			}
			ext := m.ExternalDependencies
			if len(ext.Repositories) != 1 || ext.Repositories[0].URL != "https://repo.example" {
				t.Errorf("Repositories = %+v", ext.Repositories)
			}
			if !slices.Equal(ext.Artifacts, []string{"g:a:1"}) {
				t.Errorf("Artifacts = %v", ext.Artifacts)
			}
		})
	}
}

func TestDecode_MissingFieldsAreNotDecodeErrors(t *testing.T) {
	t.Parallel()

	m, err := Decode([]byte(`{"name": "no-entry"}`), "unit.json")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	d := Parse(m, "", WithLogger(quietLogger()))
	if d.Status() != NoEntrypoint {
		t.Errorf("Status() = %v, want NoEntrypoint", d.Status())
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{name: "broken json", filename: "unit.json", data: `{"name": `},
		{name: "wrong type", filename: "unit.json", data: `{"name": 12}`},
		{name: "broken toml", filename: "unit.toml", data: `name = `},
		{name: "broken yaml", filename: "unit.yaml", data: "name: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Decode([]byte(tt.data), tt.filename); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDecode_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`name=x`), "unit.ini")
	if !errors.Is(err, ErrUnsupportedManifest) {
		t.Errorf("err = %v, want ErrUnsupportedManifest", err)
	}
}

func TestIsManifestName(t *testing.T) {
	t.Parallel()

	for _, name := range ManifestNames {
		if !IsManifestName(name) {
			t.Errorf("IsManifestName(%q) = false", name)
		}
	}
	if IsManifestName("unit.xml") {
		t.Error("IsManifestName(unit.xml) = true")
	}
}
