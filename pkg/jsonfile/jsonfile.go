// Package jsonfile implements the single-file JSON store behind /api/file.
//
// Files are plain JSON documents on disk. Writes and merges take an exclusive
// lock on the file so two pages saving settings at once cannot interleave.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// HomeToken is replaced by the user's home directory in file names.
const HomeToken = "$HOME"

var (
	// ErrNotFound is returned when the file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrNotObject is returned when a merge target or patch is not a JSON object.
	ErrNotObject = errors.New("JSON document is not an object")

	// ErrNoMatch is returned when a JSONPath selects nothing.
	ErrNoMatch = errors.New("path matched nothing")
)

// DecodeError reports malformed JSON.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ExpandHome replaces every $HOME in name with the user's home directory.
func ExpandHome(name string) (string, error) {
	if !strings.Contains(name, HomeToken) {
		return name, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", HomeToken, err)
	}
	return strings.ReplaceAll(name, HomeToken, home), nil
}

// Decode parses one JSON document, keeping numbers exact.
func Decode(r io.Reader, source string) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &DecodeError{Path: source, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &DecodeError{Path: source, Err: errors.New("trailing data after JSON document")}
	}
	return doc, nil
}

// Read loads and parses path.
func Read(path string) (any, error) {
	data, err := lockedfile.Read(path)
	if err != nil {
		return nil, wrapPathErr(path, err)
	}
	return Decode(bytes.NewReader(data), path)
}

// Select applies a JSONPath expression to doc and returns the first match.
func Select(doc any, expr string) (any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", expr, err)
	}
	results := x.Get(doc)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, expr)
	}
	return results[0], nil
}

// Write replaces path with doc, creating the file if needed.
func Write(path string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := lockedfile.Write(path, bytes.NewReader(data), 0o644); err != nil {
		return wrapPathErr(path, err)
	}
	return nil
}

// Merge copies the top-level keys of patch into the object stored at path.
// The read-modify-write happens under the file lock. A missing file is
// ErrNotFound and is not created.
func Merge(path string, patch map[string]any) (err error) {
	f, err := lockedfile.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return wrapPathErr(path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = wrapPathErr(path, closeErr)
		}
	}()

	old, err := io.ReadAll(f)
	if err != nil {
		return wrapPathErr(path, err)
	}
	doc, err := Decode(bytes.NewReader(old), path)
	if err != nil {
		return err
	}
	existing, ok := doc.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotObject, path)
	}
	for k, v := range patch {
		existing[k] = v
	}
	data, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := f.Truncate(0); err != nil {
		return wrapPathErr(path, err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return wrapPathErr(path, err)
	}
	return nil
}

// Delete removes path.
func Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return wrapPathErr(path, err)
	}
	return nil
}

func wrapPathErr(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) || errors.Is(err, ErrNotObject) {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
