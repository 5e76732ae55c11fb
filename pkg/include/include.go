// Package include expands <?include KIND ARGS ?> directives in served text.
//
// KIND "html" inlines another file, expanding its directives in turn. The
// script kinds (bash, php, python, node) run ARGS through the matching
// interpreter and inline its combined output. Unknown kinds are left as they
// are. Expansion is textual and nothing is memoized: a directive that appears
// twice runs twice.
package include

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/biglinux/bigbashview/pkg/content"
	"github.com/biglinux/bigbashview/pkg/logging"
)

// DefaultMaxDepth is the default limit on nested html includes.
const DefaultMaxDepth = 16

var directive = regexp.MustCompile(`(?s)<\?include (\w+)(.*?)\?>`)

// Interpreter runs the body of a script directive.
type Interpreter struct {
	// Label names the language in error messages.
	Label string

	// Argv is the interpreter invocation; the script body is appended.
	Argv []string
}

// DefaultInterpreters maps directive kinds to their interpreters.
func DefaultInterpreters() map[string]Interpreter {
	return map[string]Interpreter{
		"bash":   {Label: "bash", Argv: []string{"bash", "-c"}},
		"php":    {Label: "PHP", Argv: []string{"php", "-r"}},
		"python": {Label: "Python", Argv: []string{"python", "-c"}},
		"node":   {Label: "Node.js", Argv: []string{"node", "-e"}},
	}
}

// RunFunc runs argv and returns its combined stdout and stderr.
type RunFunc func(ctx context.Context, argv []string) ([]byte, error)

func runCombined(ctx context.Context, argv []string) ([]byte, error) {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
}

// Preprocessor expands include directives.
type Preprocessor struct {
	dir          string
	maxDepth     int
	interpreters map[string]Interpreter
	run          RunFunc
	log          *slog.Logger
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithDir resolves relative html includes against dir instead of the
// process working directory.
func WithDir(dir string) Option {
	return func(p *Preprocessor) {
		p.dir = dir
	}
}

// WithMaxDepth limits html include nesting. Zero means unlimited, in which
// case a file that includes itself recurses until the process runs out of
// stack.
func WithMaxDepth(depth int) Option {
	return func(p *Preprocessor) {
		p.maxDepth = depth
	}
}

// WithInterpreters replaces the kind to interpreter table.
func WithInterpreters(interpreters map[string]Interpreter) Option {
	return func(p *Preprocessor) {
		p.interpreters = interpreters
	}
}

// WithRunner replaces how interpreter processes are run.
func WithRunner(run RunFunc) Option {
	return func(p *Preprocessor) {
		if run != nil {
			p.run = run
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Preprocessor) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Preprocessor.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		maxDepth:     DefaultMaxDepth,
		interpreters: DefaultInterpreters(),
		run:          runCombined,
		log:          logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process expands every directive in text. Failures of included scripts and
// missing include files become inline messages; only unexpected I/O errors
// are returned.
func (p *Preprocessor) Process(ctx context.Context, text string) (string, error) {
	return p.process(ctx, text, 0)
}

func (p *Preprocessor) process(ctx context.Context, text string, depth int) (string, error) {
	matches := directive.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(text[last:m[0]])
		last = m[1]

		kind := text[m[2]:m[3]]
		args := strings.TrimSpace(text[m[4]:m[5]])

		expanded, err := p.expand(ctx, kind, args, text[m[0]:m[1]], depth)
		if err != nil {
			return "", err
		}
		out.WriteString(expanded)
	}
	out.WriteString(text[last:])
	return out.String(), nil
}

func (p *Preprocessor) expand(ctx context.Context, kind, args, original string, depth int) (string, error) {
	if kind == "html" {
		return p.includeFile(ctx, args, depth)
	}
	interp, ok := p.interpreters[kind]
	if !ok {
		return original, nil
	}
	return p.includeScript(ctx, interp, args), nil
}

func (p *Preprocessor) includeFile(ctx context.Context, name string, depth int) (string, error) {
	path, err := p.resolve(name)
	if err != nil {
		return "", err
	}
	if p.maxDepth > 0 && depth >= p.maxDepth {
		p.log.Warn("include depth limit exceeded", "path", path, "limit", p.maxDepth)
		return "Include depth limit exceeded: " + path, nil
	}

	f, err := content.Read(path)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return fmt.Sprintf("File %s not found", path), nil
		}
		return "", fmt.Errorf("include %s: %w", path, err)
	}
	if !f.Text {
		return f.String(), nil
	}

	text, _, err := transform.String(unicode.UTF8BOM.NewDecoder(), f.String())
	if err != nil {
		return "", fmt.Errorf("include %s: %w", path, err)
	}
	return p.process(ctx, text, depth+1)
}

func (p *Preprocessor) includeScript(ctx context.Context, interp Interpreter, body string) string {
	argv := append(append([]string(nil), interp.Argv...), body)
	out, err := p.run(ctx, argv)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && len(out) == 0 {
			out = []byte(err.Error())
		}
		p.log.Debug("include script failed", "interpreter", argv[0], "error", err)
		return fmt.Sprintf("Error executing %s script: %s", interp.Label, out)
	}
	return string(out)
}

func (p *Preprocessor) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir := p.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve include %s: %w", name, err)
		}
		dir = wd
	}
	return filepath.Join(dir, name), nil
}
