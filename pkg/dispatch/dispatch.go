package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/biglinux/bigbashview/pkg/logging"
	"github.com/biglinux/bigbashview/pkg/script"
)

// ErrRepairFailed is returned when an exec bit could not be added.
var ErrRepairFailed = errors.New("cannot make script executable")

// Target is a resolved compat-mode request.
type Target struct {
	// Path is the normalized path handed to the reader or executor.
	Path string
	Rule Rule
}

// Dispatcher resolves compat-mode content identifiers. Relative paths are
// resolved against the process working directory.
type Dispatcher struct {
	root  *script.RootFlag
	log   *slog.Logger
	chmod func(string, os.FileMode) error
}

// New creates a Dispatcher that raises root when an exec bit cannot be
// repaired.
func New(root *script.RootFlag, log *slog.Logger) *Dispatcher {
	if root == nil {
		root = &script.RootFlag{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{root: root, log: log, chmod: os.Chmod}
}

// Resolve normalizes name, repairs a missing exec bit on script files and
// classifies the result.
func (d *Dispatcher) Resolve(name string) Target {
	path := Normalize(name)

	if err := repairExecutable(path, d.chmod); err != nil {
		if d.root.Set() {
			d.log.Warn("switching to explicit shell execution", "path", path, "error", err)
		}
	}

	return Target{Path: path, Rule: Classify(path)}
}

// Normalize turns an identifier that names a file in the working directory
// into a "./"-relative path. Identifiers that already start with "." only
// lose their first character.
func Normalize(name string) string {
	if name == "" {
		return name
	}
	relative := name[1:]
	if !isRegular(relative) {
		return name
	}
	if strings.HasPrefix(name, ".") {
		return relative
	}
	return "./" + relative
}

// RepairExecutable adds the owner exec bit to an existing script file that
// is not executable. It is a no-op for other files.
func RepairExecutable(path string) error {
	return repairExecutable(path, os.Chmod)
}

func repairExecutable(path string, chmod func(string, os.FileMode) error) error {
	if !IsExecutable(path) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if unix.Access(path, unix.X_OK) == nil {
		return nil
	}
	if err := chmod(path, info.Mode()|0o100); err != nil {
		return fmt.Errorf("%w: %w", ErrRepairFailed, err)
	}
	return nil
}

func isRegular(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
