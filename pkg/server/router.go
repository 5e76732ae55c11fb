package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/biglinux/bigbashview/pkg/httputil"
)

// request is what a route handler sees after matching.
type request struct {
	// name is the path left after the route prefix.
	name string

	// query is the raw query string, or the raw body for POST.
	query string

	opts    Options
	content string
}

type routeHandler func(w http.ResponseWriter, r *http.Request, req *request)

// route is one entry of the route table. Exact routes match only their
// pattern; prefix routes match any path that starts with it.
type route struct {
	pattern string
	exact   bool
	methods []string
	handle  routeHandler
}

func (rt *route) match(path string) (string, bool) {
	if rt.exact {
		return "", path == rt.pattern
	}
	if strings.HasPrefix(path, rt.pattern) {
		return path[len(rt.pattern):], true
	}
	return "", false
}

func (rt *route) allows(method string) bool {
	for _, m := range rt.methods {
		if m == method {
			return true
		}
	}
	return false
}

var pageMethods = []string{http.MethodGet, http.MethodPost}

// buildRoutes returns the route table in match order.
func (s *Server) buildRoutes() []route {
	return []route{
		{pattern: "/favicon.ico", exact: true, methods: pageMethods, handle: s.handleFavicon},
		{pattern: "/content", methods: pageMethods, handle: s.handleContent},
		{pattern: "/execute", methods: pageMethods, handle: s.handleExecute},
		{
			pattern: "/api/file", exact: true,
			methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			handle:  s.handleAPIFile,
		},
		{pattern: "", methods: pageMethods, handle: s.handleDefault},
	}
}

// route dispatches r to the first matching route.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	for i := range s.routes {
		rt := &s.routes[i]
		name, ok := rt.match(r.URL.Path)
		if !ok {
			continue
		}
		if !rt.allows(r.Method) {
			httputil.WriteMethodNotAllowed(w, strings.Join(rt.methods, ", "))
			return
		}

		req := &request{name: name, query: r.URL.RawQuery}
		if r.Method == http.MethodPost && rt.pattern != "/api/file" {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
			if err != nil {
				httputil.WriteText(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			req.query = string(body)
		}
		req.opts, req.content = SplitOptions(name)

		rt.handle(w, r, req)
		return
	}
	http.NotFound(w, r)
}
