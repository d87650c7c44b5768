// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ZipExt is the file extension of archived units.
const ZipExt = ".zip"

// ErrNotUnit is returned by Open for locations that are neither a directory
// nor a zip archive.
var ErrNotUnit = errors.New("not a unit directory or zip archive")

type (
	// Origin provides the files of one unit. Names are slash-separated and
	// relative to the unit root.
	Origin interface {
		// Location is the path the origin was opened from.
		Location() string
		// ReadFile returns the content of name, or an error wrapping
		// fs.ErrNotExist.
		ReadFile(name string) ([]byte, error)
		// FS exposes the origin as a read-only file system.
		FS() fs.FS
	}

	// DirOrigin is a unit laid out in a directory.
	DirOrigin struct {
		location string
		fsys     fs.FS
	}

	// ZipOrigin is a unit packed in a zip archive. The archive is read into
	// memory when opened so the file on disk may be replaced while the unit
	// is live.
	ZipOrigin struct {
		location string
		reader   *zip.Reader
	}
)

// Open opens location as a DirOrigin or ZipOrigin.
func Open(location string) (Origin, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, err
	}
	switch {
	case info.IsDir():
		return OpenDir(location), nil
	case strings.EqualFold(filepath.Ext(location), ZipExt):
		return OpenZip(location)
	default:
		return nil, fmt.Errorf("%s: %w", location, ErrNotUnit)
	}
}

// OpenDir returns the DirOrigin rooted at dir.
func OpenDir(dir string) *DirOrigin {
	return &DirOrigin{location: dir, fsys: os.DirFS(dir)}
}

// OpenZip reads the archive at path.
func OpenZip(path string) (*ZipOrigin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ZipOrigin{location: path, reader: r}, nil
}

// Location implements Origin.
func (o *DirOrigin) Location() string { return o.location }

// ReadFile implements Origin.
func (o *DirOrigin) ReadFile(name string) ([]byte, error) { return fs.ReadFile(o.fsys, name) }

// FS implements Origin.
func (o *DirOrigin) FS() fs.FS { return o.fsys }

// Location implements Origin.
func (o *ZipOrigin) Location() string { return o.location }

// ReadFile implements Origin.
func (o *ZipOrigin) ReadFile(name string) ([]byte, error) { return fs.ReadFile(o.reader, name) }

// FS implements Origin.
func (o *ZipOrigin) FS() fs.FS { return o.reader }
