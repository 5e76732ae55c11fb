// Package dispatch classifies compat-mode paths by suffix.
//
// A path is matched against an ordered rule table; the first rule whose
// pattern matches the path's last element decides the response content type
// and whether the file is served or run as a script. Compound suffixes such
// as .sh.css sit above their generic counterparts so they never fall through.
package dispatch

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/biglinux/bigbashview/pkg/httputil"
)

// Handler says how a classified path is served.
type Handler int

const (
	// Content serves the file through the content reader.
	Content Handler = iota
	// Script runs the file through the script executor.
	Script
)

func (h Handler) String() string {
	if h == Script {
		return "script"
	}
	return "content"
}

// Rule maps a glob over the last path element to a content type and handler.
type Rule struct {
	Pattern     string
	ContentType string
	Handler     Handler
}

// Rules is the dispatch table in priority order.
var Rules = []Rule{
	{Pattern: "*.sh.css", ContentType: httputil.ContentTypeCSS, Handler: Script},
	{Pattern: "*.sh.js", ContentType: httputil.ContentTypeJS, Handler: Script},
	{Pattern: "*.txt", ContentType: httputil.ContentTypePlain, Handler: Content},
	{Pattern: "*.css", ContentType: httputil.ContentTypeCSS, Handler: Content},
	{Pattern: "*.js", ContentType: httputil.ContentTypeJS, Handler: Content},
	{Pattern: "*.{svg,svgz}", ContentType: httputil.ContentTypeSVG, Handler: Content},
	{Pattern: "*.{sh,sh.html,sh.htm,sh.php,sh.py,sh.lua,sh.rb,sh.pl,sh.lisp,sh.jl,run}", ContentType: httputil.ContentTypeHTML, Handler: Script},
	{Pattern: "*.{htm,html}", ContentType: httputil.ContentTypeHTML, Handler: Content},
}

// Fallback applies when no rule matches.
var Fallback = Rule{Pattern: "*", ContentType: httputil.ContentTypeHTML, Handler: Content}

// executablePattern lists every suffix whose file should carry an exec bit.
const executablePattern = "*.{sh,sh.html,sh.htm,sh.php,sh.py,sh.lua,sh.rb,sh.pl,sh.lisp,sh.jl,run,sh.js,sh.css}"

// Classify returns the first rule matching path, or Fallback.
func Classify(path string) Rule {
	base := lastElem(path)
	for _, r := range Rules {
		if match(r.Pattern, base) {
			return r
		}
	}
	return Fallback
}

// IsFallback reports whether r is the catch-all rule.
func (r Rule) IsFallback() bool {
	return r.Pattern == Fallback.Pattern
}

// IsExecutable reports whether path carries one of the script suffixes.
func IsExecutable(path string) bool {
	return match(executablePattern, lastElem(path))
}

func lastElem(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func match(pattern, name string) bool {
	if name == "" {
		return false
	}
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
