package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		in          string
		wantOpts    string
		wantPresent bool
		wantContent string
	}{
		{"no separator", "/tmp/page.html", "", false, "/tmp/page.html"},
		{"options and content", "plain$/tmp/page.html", "plain", true, "/tmp/page.html"},
		{"first separator only", "close$echo $HOME", "close", true, "echo $HOME"},
		{"empty options", "$ls", "", true, "ls"},
		{"empty content", "plain$", "plain", true, ""},
		{"empty", "", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, content := SplitOptions(tt.in)
			assert.Equal(t, tt.wantOpts, opts.String())
			assert.Equal(t, tt.wantPresent, opts.Present())
			assert.Equal(t, tt.wantContent, content)
		})
	}
}

func TestOptionsHas(t *testing.T) {
	t.Parallel()

	opts, _ := SplitOptions("/plain,close$x")
	assert.True(t, opts.Has(OptionPlain))
	assert.True(t, opts.Has(OptionClose))

	opts, _ = SplitOptions("closeplain$x")
	assert.True(t, opts.Has(OptionPlain))
	assert.True(t, opts.Has(OptionClose))

	opts, _ = SplitOptions("/tmp/plain/close.sh")
	assert.False(t, opts.Has(OptionPlain), "tokens outside an options prefix do not count")

	opts, _ = SplitOptions("$plain")
	assert.False(t, opts.Has(OptionPlain))
}

func TestCheckAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		remote    string
		requireUA bool
		agent     string
		wantErr   bool
	}{
		{"127.0.0.1:5555", false, "", false},
		{"127.0.0.1", false, "", false},
		{"127.0.0.2:5555", false, "", true},
		{"[::1]:5555", false, "", true},
		{"10.0.0.1:80", false, "", true},
		{"127.0.0.1:5555", true, "curl/8", true},
		{"127.0.0.1:5555", true, DefaultUserAgent, false},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.RequireUserAgent = tt.requireUA
		s := New(cfg)

		req := httptestRequest(tt.remote, tt.agent)
		err := s.checkAccess(req)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrAccessDenied, "%s %q", tt.remote, tt.agent)
		} else {
			assert.NoError(t, err, "%s %q", tt.remote, tt.agent)
		}
	}
}

func TestCheckAccess_BindAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bind    string
		remote  string
		wantErr bool
	}{
		{"::1", "[::1]:5555", false},
		{"::1", "[0:0:0:0:0:0:0:1]:5555", false},
		{"::1", "127.0.0.1:5555", true},
		{"127.0.0.1", "[::ffff:127.0.0.1]:5555", false},
		{"0.0.0.0", "0.0.0.0:5555", true},
		{"10.0.0.1", "10.0.0.1:5555", true},
		{"localhost", "127.0.0.1:5555", true},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.BindAddress = tt.bind
		s := New(cfg)

		err := s.checkAccess(httptestRequest(tt.remote, ""))
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrAccessDenied, "bind %s remote %s", tt.bind, tt.remote)
		} else {
			assert.NoError(t, err, "bind %s remote %s", tt.bind, tt.remote)
		}
	}
}

func httptestRequest(remote, agent string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	if agent != "" {
		req.Header.Set("User-Agent", agent)
	}
	return req
}
