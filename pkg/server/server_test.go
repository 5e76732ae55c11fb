package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biglinux/bigbashview/pkg/include"
	"github.com/biglinux/bigbashview/pkg/script"
)

const loopbackRemote = "127.0.0.1:40000"

// newTestServer returns a server whose terminator only counts calls.
func newTestServer(t *testing.T, cfg Config, opts ...Option) (*Server, *atomic.Int32) {
	t.Helper()
	var terminated atomic.Int32
	opts = append([]Option{WithTerminator(func() error {
		terminated.Add(1)
		return nil
	})}, opts...)
	s := New(cfg, opts...)
	s.addr = script.Address{IP: DefaultBindAddress, Port: 19005}
	return s, &terminated
}

func do(t *testing.T, s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = loopbackRemote
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestContentTextFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/content"+path, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestContentIsIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>same</p>"), 0o644))

	s, _ := newTestServer(t, DefaultConfig())
	first := do(t, s, http.MethodGet, "/content"+path, nil)
	second := do(t, s, http.MethodGet, "/content"+path, nil)

	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, "text/html; charset=UTF-8", first.Header().Get("Content-Type"))
}

func TestContentMissingFile(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/content/nonexistent/file.html", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "File not found", rec.Body.String())
}

func TestContentExpandsIncludes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	part := filepath.Join(dir, "part.html")
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(part, []byte("<b>part</b>"), 0o644))
	require.NoError(t, os.WriteFile(page,
		[]byte("<div><?include html "+part+"?></div><?include bash echo hi?>"), 0o644))

	runner := func(_ context.Context, argv []string) ([]byte, error) {
		return []byte("ran:" + argv[len(argv)-1]), nil
	}
	s, _ := newTestServer(t, DefaultConfig(), WithIncludeOptions(include.WithRunner(runner)))
	rec := do(t, s, http.MethodGet, "/content"+page, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<div><b>part</b></div>ran:echo hi", rec.Body.String())
}

func TestContentPlainOption(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>x</p>"), 0o644))

	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/contentplain$"+path, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=UTF-8", rec.Header().Get("Content-Type"))
}

func TestContentBinaryFallbackIsSniffed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\xff\xfe")
	require.NoError(t, os.WriteFile(path, png, 0o644))

	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/content"+path, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestExecuteEcho(t *testing.T) {
	t.Parallel()
	s, terminated := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/execute/bin/echo%20ok", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
	assert.Equal(t, "text/html; charset=UTF-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "3", rec.Header().Get("Content-Length"))
	assert.Zero(t, terminated.Load())
}

func TestExecuteEnvironmentOverlay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeScript(t, dir, "env.sh", `printf '%s|%s|%s' "$name" "$bbv_ip" "$bbv_port"`)

	s, _ := newTestServer(t, DefaultConfig())
	q := url.Values{"name": {"a", "b;c"}}
	rec := do(t, s, http.MethodGet, "/execute"+path+"?"+q.Encode(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `a;b\;c|127.0.0.1|19005`, rec.Body.String())
}

func TestExecutePostBodyIsQuery(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeScript(t, dir, "post.sh", `printf '%s' "$greeting"`)

	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodPost, "/execute"+path+"?greeting=ignored", strings.NewReader("greeting=hello"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestExecuteNonZeroExitStillServesStdout(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeScript(t, dir, "fail.sh", "echo partial; echo oops >&2; exit 3")

	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/execute"+path, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial\n", rec.Body.String())
}

func TestExecuteSpawnFailure(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, DefaultConfig(), WithScriptOptions(script.WithShell("/nonexistent/shell")))
	rec := do(t, s, http.MethodGet, "/execute/bin/echo%20ok", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "nonexistent")
}

func TestCloseOptionTerminatesAfterResponse(t *testing.T) {
	t.Parallel()
	s, terminated := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/executeclose$/bin/true", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.True(t, rec.Flushed)
	assert.Equal(t, int32(1), terminated.Load())
}

func TestCloseVeto(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CloseVeto = true
	s, terminated := newTestServer(t, cfg)

	rec := do(t, s, http.MethodGet, "/executeclose$/bin/echo%20False", nil)
	assert.Equal(t, "False\n", rec.Body.String())
	assert.Zero(t, terminated.Load())

	do(t, s, http.MethodGet, "/executeclose$/bin/echo%20True", nil)
	assert.Equal(t, int32(1), terminated.Load())
}

func TestCloseWithoutVetoIgnoresOutput(t *testing.T) {
	t.Parallel()
	s, terminated := newTestServer(t, DefaultConfig())
	do(t, s, http.MethodGet, "/executeclose$/bin/echo%20False", nil)
	assert.Equal(t, int32(1), terminated.Load())
}

func TestFavicon(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/favicon.ico", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWelcomePage(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	s, _ := newTestServer(t, cfg)

	for _, target := range []string{"/", "/plain$"} {
		rec := do(t, s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Welcome to BigBashView", target)
		assert.Contains(t, rec.Body.String(), "1.2.3", target)
		assert.Contains(t, rec.Body.String(), ProjectURL, target)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, DefaultConfig())

	rec := do(t, s, http.MethodPut, "/content/tmp/x.html", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))

	rec = do(t, s, http.MethodPatch, "/api/file?filename=x", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCompatModeDispatch(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "script.sh.css", "echo 'body{}'")
	writeScript(t, dir, "args.sh", `echo "$@"`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("p{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte("<p>page</p>"), 0o644))
	t.Chdir(dir)

	s, _ := newTestServer(t, DefaultConfig())

	tests := []struct {
		name        string
		target      string
		wantBody    string
		contentType string
	}{
		{"compound suffix runs script", "/script.sh.css", "body{}\n", "text/css; charset=UTF-8"},
		{"plain css is read", "/style.css", "p{}", "text/css; charset=UTF-8"},
		{"html is read", "/page.html", "<p>page</p>", "text/html; charset=UTF-8"},
		{"query becomes arguments", "/args.sh?one%20two", "one two\n", "text/html; charset=UTF-8"},
		{"plain option", "/plain$/page.html", "<p>page</p>", "text/plain; charset=UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
		})
	}

	rec := do(t, s, http.MethodGet, "/missing.html", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompatModeRepairsExecBit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noexec.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho fixed\n"), 0o644))
	t.Chdir(dir)

	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodGet, "/noexec.sh", nil)

	assert.Equal(t, "fixed\n", rec.Body.String())
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)
	assert.False(t, s.Root().IsSet())
}

func TestNonLoopbackRejectedEverywhere(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	jsonPath := filepath.Join(dir, "data.json")
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte("<?include bash touch "+marker+"?>"), 0o644))

	var includeRuns atomic.Int32
	runner := func(context.Context, []string) ([]byte, error) {
		includeRuns.Add(1)
		return nil, nil
	}
	s, terminated := newTestServer(t, DefaultConfig(), WithIncludeOptions(include.WithRunner(runner)))

	requests := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/favicon.ico", ""},
		{http.MethodGet, "/content" + page, ""},
		{http.MethodGet, "/executeclose$/usr/bin/touch%20" + marker, ""},
		{http.MethodPost, "/execute/usr/bin/touch", "x=" + marker},
		{http.MethodPost, "/api/file?filename=" + jsonPath, `{"a":1}`},
		{http.MethodDelete, "/api/file?filename=" + jsonPath, ""},
		{http.MethodGet, "/", ""},
		{http.MethodGet, "/anything.sh", ""},
		{http.MethodPut, "/content/x", ""},
	}
	for _, r := range requests {
		req := httptest.NewRequest(r.method, r.target, strings.NewReader(r.body))
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", r.method, r.target)
		assert.Empty(t, rec.Body.String(), "%s %s", r.method, r.target)
	}

	assert.NoFileExists(t, marker)
	assert.NoFileExists(t, jsonPath)
	assert.Zero(t, includeRuns.Load())
	assert.Zero(t, terminated.Load())
}

func TestUserAgentRequirement(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.RequireUserAgent = true
	s, _ := newTestServer(t, cfg)

	rec := do(t, s, http.MethodGet, "/favicon.ico", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/favicon.ico", nil)
	req.RemoteAddr = loopbackRemote
	req.Header.Set("User-Agent", DefaultUserAgent)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIFileRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	target := "/api/file?" + url.Values{"filename": {filepath.Join(dir, "settings.json")}}.Encode()
	s, _ := newTestServer(t, DefaultConfig())

	doc := `{"name":"bbv","nested":{"n":1.5,"list":[1,2,3]},"on":true}`
	rec := do(t, s, http.MethodPost, target, strings.NewReader(doc))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, doc, rec.Body.String())

	rec = do(t, s, http.MethodPut, target, strings.NewReader(`{"on":false,"extra":"x"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, target, nil)
	assert.JSONEq(t, `{"name":"bbv","nested":{"n":1.5,"list":[1,2,3]},"on":false,"extra":"x"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, target+"&path="+url.QueryEscape("$.nested.list"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[1,2,3]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, target+"&path="+url.QueryEscape("$.absent"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, target, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIFileErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	array := filepath.Join(dir, "array.json")
	require.NoError(t, os.WriteFile(broken, []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(array, []byte("[1]"), 0o644))
	missing := filepath.Join(dir, "missing.json")

	s, _ := newTestServer(t, DefaultConfig())
	at := func(name string) string {
		return "/api/file?" + url.Values{"filename": {name}}.Encode()
	}

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantError  string
	}{
		{"no filename", http.MethodGet, "/api/file", "", http.StatusBadRequest, "No filename specified"},
		{"get missing", http.MethodGet, at(missing), "", http.StatusNotFound, "File " + missing + " not found"},
		{"get malformed", http.MethodGet, at(broken), "", http.StatusBadRequest, "Could not decode JSON in " + broken},
		{"post bad body", http.MethodPost, at(missing), "{", http.StatusBadRequest, "Could not decode JSON in request body"},
		{"put missing", http.MethodPut, at(missing), `{"a":1}`, http.StatusNotFound, "File " + missing + " not found"},
		{"put malformed", http.MethodPut, at(broken), `{"a":1}`, http.StatusBadRequest, "Could not decode JSON in " + broken},
		{"put onto array", http.MethodPut, at(array), `{"a":1}`, http.StatusBadRequest, "File " + array + " does not hold a JSON object"},
		{"put non-object", http.MethodPut, at(array), `[2]`, http.StatusBadRequest, "Request body must be a JSON object"},
		{"delete missing", http.MethodDelete, at(missing), "", http.StatusNotFound, "File " + missing + " not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, strings.NewReader(tt.body))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantError, got["error"])
		})
	}
	assert.NoFileExists(t, missing)
}

func TestAPIFileExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, _ := newTestServer(t, DefaultConfig())
	rec := do(t, s, http.MethodPost, "/api/file?filename=$HOME/x.json", strings.NewReader(`{"k":"v"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	data, err := os.ReadFile(filepath.Join(home, "x.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(data))
}

func TestStartServesOnLoopback(t *testing.T) {
	cfg := DefaultConfig()
	s, _ := newTestServer(t, cfg)
	s.addr = script.Address{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	addr := s.Address()
	assert.Equal(t, DefaultBindAddress, addr.IP)
	assert.GreaterOrEqual(t, addr.Port, DefaultPortStart)
	assert.LessOrEqual(t, addr.Port, DefaultPortEnd)
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyRunning)

	resp, err := http.Get(s.URL("/execute/bin/echo%20ok"))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	other, _ := newTestServer(t, cfg)
	require.NoError(t, other.Start(ctx))
	t.Cleanup(func() { _ = other.Shutdown(context.Background()) })
	assert.NotEqual(t, addr.Port, other.Address().Port)

	require.NoError(t, s.Shutdown(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Shutdown(ctx))
}

func TestStartFailsWhenRangeIsTaken(t *testing.T) {
	first, _ := newTestServer(t, Config{PortStart: 19150, PortEnd: 19199})
	ctx := context.Background()
	require.NoError(t, first.Start(ctx))
	t.Cleanup(func() { _ = first.Shutdown(ctx) })

	port := first.Address().Port
	second, _ := newTestServer(t, Config{PortStart: port, PortEnd: port})
	assert.Error(t, second.Start(ctx))
	assert.False(t, second.IsRunning())
}

func TestURLFor(t *testing.T) {
	t.Parallel()
	addr := script.Address{IP: "127.0.0.1", Port: 19000}
	assert.Equal(t, "http://127.0.0.1:19000/", URLFor(addr, ""))
	assert.Equal(t, "http://127.0.0.1:19000/index.sh", URLFor(addr, "/index.sh"))
	assert.Equal(t, "http://127.0.0.1:19000/execute$ls", URLFor(addr, "execute$ls"))
	assert.Equal(t, "http://127.0.0.1:19000/./index.sh", URLFor(addr, "./index.sh"))
	assert.Equal(t, "https://example.org/", URLFor(addr, "https://example.org/"))
}
