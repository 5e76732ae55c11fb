package script

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Reserved variables injected into every script environment.
const (
	EnvIP   = "bbv_ip"
	EnvPort = "bbv_port"
)

// Address is the loopback address the server is bound to.
type Address struct {
	IP   string
	Port int
}

// String returns ip:port.
func (a Address) String() string {
	return a.IP + ":" + strconv.Itoa(a.Port)
}

// Overlay maps environment variable names to values derived from a query.
type Overlay map[string]string

// ParseQuery parses a raw query string leniently. Malformed pairs are dropped
// and reported through the returned error, the rest is kept.
func ParseQuery(raw string) (url.Values, error) {
	values, err := url.ParseQuery(raw)
	if values == nil {
		values = url.Values{}
	}
	return values, err
}

// OverlayFromQuery builds an overlay with one entry per query key. Multiple
// values are joined with ";" after escaping any ";" they contain. Blank
// values are dropped, and a key left without values gets no entry. Keys that
// cannot be environment variable names are skipped.
func OverlayFromQuery(q url.Values) Overlay {
	overlay := make(Overlay, len(q))
	for key, values := range q {
		if !validName(key) {
			continue
		}
		kept := values[:0:0]
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue
		}
		overlay[key] = JoinValues(kept)
	}
	return overlay
}

// JoinValues joins values with ";" escaping literal ";" as "\;".
func JoinValues(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = strings.ReplaceAll(v, ";", `\;`)
	}
	return strings.Join(escaped, ";")
}

// Environ returns the overlay as sorted KEY=value entries.
func (o Overlay) Environ() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+o[k])
	}
	return env
}

// BuildEnv layers base, then the overlay, then the reserved address
// variables. Later layers replace earlier entries of the same name.
func BuildEnv(base []string, overlay Overlay, addr Address) []string {
	layers := [][]string{
		base,
		overlay.Environ(),
		{EnvIP + "=" + addr.IP, EnvPort + "=" + strconv.Itoa(addr.Port)},
	}

	index := make(map[string]int)
	var env []string
	for _, layer := range layers {
		for _, kv := range layer {
			name, _, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				continue
			}
			if i, seen := index[name]; seen {
				env[i] = kv
				continue
			}
			index[name] = len(env)
			env = append(env, kv)
		}
	}
	return env
}

// CommandLine builds the shell command line for a script path and the raw
// query of the request. This is the only place where request text becomes
// shell text: the query is percent-decoded and appended after a single space,
// which is how script collections receive their positional arguments.
// Scripts that need untrusted values verbatim should read them from the
// overlay variables instead.
func CommandLine(path, rawQuery string) string {
	return path + " " + Unquote(rawQuery)
}

// Unquote percent-decodes s. Malformed escapes are kept as they are and "+"
// is not treated as a space.
func Unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "=\x00")
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
