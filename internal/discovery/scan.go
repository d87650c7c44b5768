// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/invowk/modhost/pkg/unitmod"
)

// Scan enumerates the unit candidates in the search paths: the immediate
// subdirectories and zip archives of each path, in lexical order, search
// paths in the given order. A search path containing glob metacharacters is
// expanded with doublestar first. Candidates whose name is listed in
// disabled are returned with Enabled unset.
func Scan(searchPaths, disabled []string) ([]unitmod.Prototype, []Diagnostic) {
	var (
		protos []unitmod.Prototype
		diags  []Diagnostic
		seen   = map[string]bool{}
	)

	for _, sp := range searchPaths {
		dirs, err := expand(sp)
		if err != nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeSearchPathMissing,
				Message:  "search path could not be read",
				Path:     sp,
				Cause:    err,
			})
			continue
		}

		for _, dir := range dirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeSearchPathMissing,
					Message:  "search path could not be read",
					Path:     dir,
					Cause:    err,
				})
				continue
			}
			for _, entry := range entries {
				name, ok := candidateName(entry)
				if !ok {
					continue
				}
				location := filepath.Join(dir, entry.Name())
				if seen[location] {
					continue
				}
				seen[location] = true
				protos = append(protos, unitmod.Prototype{
					Origin:  location,
					Name:    name,
					Enabled: !slices.Contains(disabled, name),
				})
			}
		}
	}
	return protos, diags
}

var errNotDir = errors.New("not a directory")

// expand resolves a search path to absolute directories.
func expand(searchPath string) ([]string, error) {
	abs, err := filepath.Abs(searchPath)
	if err != nil {
		return nil, err
	}
	if !strings.ContainsAny(searchPath, "*?[{") {
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: %w", abs, errNotDir)
		}
		return []string{abs}, nil
	}

	matches, err := doublestar.FilepathGlob(abs)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", searchPath, fs.ErrNotExist)
	}
	return out, nil
}

func candidateName(entry fs.DirEntry) (string, bool) {
	name := entry.Name()
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	if entry.IsDir() {
		return name, true
	}
	if strings.EqualFold(filepath.Ext(name), ZipExt) {
		return strings.TrimSuffix(name, filepath.Ext(name)), true
	}
	return "", false
}
