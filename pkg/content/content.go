// Package content reads files served by the content routes.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"unicode/utf8"
)

// ErrNotFound is returned when the requested file does not exist.
var ErrNotFound = errors.New("file not found")

// File is a file read for serving.
type File struct {
	Path string
	Data []byte

	// Text is true when Data decoded as UTF-8. Binary files are returned
	// untouched with Text false.
	Text bool
}

// Read reads path. Every call goes to the filesystem; nothing is cached.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &File{
		Path: path,
		Data: data,
		Text: utf8.Valid(data),
	}, nil
}

// String returns the file contents as text.
func (f *File) String() string {
	return string(f.Data)
}
