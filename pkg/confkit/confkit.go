// Package confkit holds the small helpers shared by every config loader:
// path resolution, split-file sections and .env bootstrap.
package confkit

import (
	"os"
	"path/filepath"
)

// ResolvePath expands environment variables in file and, when the result is
// relative, joins it onto base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory of the main config file path.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// Section is a config block that lives in its own file, referenced from the
// main config by File.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File (resolved against base) with loader and stores the
// result in Value. An empty File leaves the section untouched.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}

// Configured reports whether the section was loaded.
func (s *Section[T]) Configured() bool {
	return s != nil && s.Value != nil
}
