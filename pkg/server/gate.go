package server

import (
	"errors"
	"net"
	"net/http"

	"github.com/biglinux/bigbashview/pkg/httputil"
)

// ErrAccessDenied is returned for requests from outside the loopback origin.
var ErrAccessDenied = errors.New("access denied")

// checkAccess verifies the client address and, when required, the agent.
// The peer must be a loopback address equal to BindAddress, the address the
// listener is bound to. Default 127.0.0.1; an IPv6-only desktop may set ::1.
func (s *Server) checkAccess(r *http.Request) error {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	bind := net.ParseIP(s.cfg.BindAddress)
	if peer == nil || bind == nil || !peer.IsLoopback() || !peer.Equal(bind) {
		return ErrAccessDenied
	}
	if s.cfg.RequireUserAgent && r.UserAgent() != s.cfg.UserAgent {
		return ErrAccessDenied
	}
	return nil
}

// gate rejects every request that fails checkAccess before next sees it.
func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.checkAccess(r); err != nil {
			s.log.Warn("request rejected", "remote", r.RemoteAddr, "path", r.URL.Path, "error", err)
			httputil.WriteForbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
