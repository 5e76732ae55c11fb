package server

import "strings"

// Option tokens recognized in the path prefix.
const (
	OptionPlain = "plain"
	OptionClose = "close"
)

const optionSeparator = "$"

// Options is the part of a route path before the "$" separator.
type Options struct {
	raw     string
	present bool
}

// SplitOptions splits name on its first "$". Without a separator the whole
// name is the content identifier and there are no options.
func SplitOptions(name string) (Options, string) {
	opts, content, found := strings.Cut(name, optionSeparator)
	if !found {
		return Options{}, name
	}
	return Options{raw: opts, present: true}, content
}

// Present reports whether the path had an options prefix at all.
func (o Options) Present() bool {
	return o.present
}

// Has reports whether token occurs in the options prefix. Tokens are free
// text, so "plain,close" and "/closeplain" both carry both tokens.
func (o Options) Has(token string) bool {
	return o.present && strings.Contains(o.raw, token)
}

// String returns the raw options prefix.
func (o Options) String() string {
	return o.raw
}
