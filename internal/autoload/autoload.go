// Package autoload picks the start page of an application directory.
package autoload

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern matches the file names that are opened automatically when a
// directory is given without a start URL.
const Pattern = "{index,main}.{sh,run,htm,html,sh.htm,sh.html}"

// DefaultURL is the start URL when none is given.
const DefaultURL = "/"

// Find returns "./<name>" for the first regular file in dir whose name
// matches Pattern, in lexical order, or "" when none does.
func Find(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("autoload %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := doublestar.Match(Pattern, e.Name()); ok {
			return "./" + e.Name(), nil
		}
	}
	return "", nil
}

// Resolve returns the start URL for url after the process moved into dir.
// Only the default URL is replaced, and only when dir holds a start file.
func Resolve(dir, url string) (string, error) {
	if url != DefaultURL || dir == "" {
		return url, nil
	}
	found, err := Find(dir)
	if err != nil {
		return "", err
	}
	if found == "" {
		return url, nil
	}
	return found, nil
}
