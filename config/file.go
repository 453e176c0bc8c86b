// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// FileOpenError is returned when a config file can not be opened.
type FileOpenError struct {
	Path  string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e FileOpenError) Error() string {
	return fmt.Sprintf("failed to open config file %s: %s", e.Path, e.Cause)
}

// Unwrap implements the implicit interface for usage with [errors.Is] and [errors.As].
func (e FileOpenError) Unwrap() error {
	return e.Cause
}

// FileReader is an [io.ReadCloser] which opens its file on the first Read.
type FileReader struct {
	fsys fs.FS
	path string

	openOnce sync.Once
	file     fs.File
	openErr  error
}

// NewFileReader returns a [FileReader] for path within fsys.
func NewFileReader(fsys fs.FS, path string) *FileReader {
	return &FileReader{
		fsys: fsys,
		path: path,
	}
}

// Read implements the [io.Reader] interface.
func (r *FileReader) Read(b []byte) (int, error) {
	r.openOnce.Do(func() {
		f, err := r.fsys.Open(r.path)
		if err != nil {
			r.openErr = FileOpenError{Path: r.path, Cause: err}
			return
		}
		r.file = f
	})
	if r.openErr != nil {
		return 0, r.openErr
	}
	if r.file == nil {
		return 0, io.EOF
	}
	return r.file.Read(b)
}

// Close implements the [io.Closer] interface.
func (r *FileReader) Close() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	return err
}

// FromYamlFile returns a [Source] which reads YAML from path within fsys.
func FromYamlFile(fsys fs.FS, path string) Decoded {
	return FromYaml(NewFileReader(fsys, path))
}
