// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/pkg/unitmod"
)

func newTestDiscoverer() *Discoverer {
	return New(WithLogger(log.New(io.Discard)))
}

// writeUnitDir creates dir with the given files (slash-separated names).
func writeUnitDir(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return dir
}

// writeUnitZip creates a zip archive at path with the given files.
func writeUnitZip(t *testing.T, path string, files map[string]string) string {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return path
}

func jsonManifest(name, version string) string {
	return `{"name": "` + name + `", "entrypoint": "` + name + `.Entry", "version": "` + version + `"}`
}

func proto(origin string) unitmod.Prototype {
	return unitmod.Prototype{Origin: origin, Enabled: true}
}
