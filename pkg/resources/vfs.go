// Package resources loads description files, mapper files and property sets
// by resource path or by URL.
//
// Resource paths are resolved through a list of VFS implementations: the
// ones installed by the vfsImpl setting first, in installation order, then
// the loader's default VFS.
package resources

import (
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// VFS is a read-only file system abstraction resources are resolved against.
type VFS interface {
	// Valid reports whether the implementation can be used in this process.
	Valid() bool
	// Open opens the named resource.
	Open(name string) (io.ReadCloser, error)
	// List returns the resource paths directly under dir.
	List(dir string) ([]string, error)
}

// OSVFS resolves relative resources against Root on the local file system.
// Absolute paths are opened as given.
type OSVFS struct {
	Root string
}

// NewOSVFS returns a VFS rooted at root ("." when empty).
func NewOSVFS(root string) *OSVFS {
	if root == "" {
		root = "."
	}
	return &OSVFS{Root: root}
}

// Valid always returns true.
func (v *OSVFS) Valid() bool { return true }

func (v *OSVFS) resolve(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(v.Root, filepath.FromSlash(name))
}

// Open opens the named file.
func (v *OSVFS) Open(name string) (io.ReadCloser, error) {
	return os.Open(v.resolve(name)) //nolint:gosec // resource paths come from the description
}

// List returns the entries of dir.
func (v *OSVFS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(v.resolve(dir))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, path.Join(filepath.ToSlash(dir), e.Name()))
	}
	return out, nil
}

// FSVFS serves resources from an fs.FS such as an embed.FS.
type FSVFS struct {
	FS fs.FS
}

// NewFSVFS wraps fsys.
func NewFSVFS(fsys fs.FS) *FSVFS {
	return &FSVFS{FS: fsys}
}

// Valid reports whether a file system is set.
func (v *FSVFS) Valid() bool { return v.FS != nil }

func fsName(name string) string {
	name = strings.TrimPrefix(path.Clean(filepath.ToSlash(name)), "/")
	if name == "" {
		return "."
	}
	return name
}

// Open opens the named resource.
func (v *FSVFS) Open(name string) (io.ReadCloser, error) {
	return v.FS.Open(fsName(name))
}

// List returns the entries of dir.
func (v *FSVFS) List(dir string) ([]string, error) {
	entries, err := fs.ReadDir(v.FS, fsName(dir))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, path.Join(fsName(dir), e.Name()))
	}
	return out, nil
}
