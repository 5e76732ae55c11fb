package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/biglinux/bigbashview/pkg/content"
	"github.com/biglinux/bigbashview/pkg/dispatch"
	"github.com/biglinux/bigbashview/pkg/httputil"
	"github.com/biglinux/bigbashview/pkg/script"
)

// closeVetoMarker in a close script's output keeps the window open when
// CloseVeto is enabled.
const closeVetoMarker = "False"

func (s *Server) handleFavicon(w http.ResponseWriter, _ *http.Request, _ *request) {
	w.WriteHeader(http.StatusOK)
}

// handleContent serves a file, expanding include directives in text files.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request, req *request) {
	f, ok := s.readFile(w, req.content)
	if !ok {
		return
	}

	rule := dispatch.Classify(req.content)
	contentType := rule.ContentType
	body := f.Data

	if f.Text {
		text, err := s.includes.Process(r.Context(), f.String())
		if err != nil {
			s.log.Error("include processing failed", "path", req.content, "error", err)
			httputil.WriteText(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		body = []byte(text)
	} else if rule.IsFallback() {
		contentType = http.DetectContentType(body)
	}

	s.writePage(w, req.opts, contentType, body)
}

// handleExecute runs the content identifier as a command line.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request, req *request) {
	s.runScript(w, r, req, req.content, httputil.ContentTypeHTML)
}

// handleDefault is compat mode: the file suffix picks the handler.
func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request, req *request) {
	if req.content == "" || req.content == "/" {
		s.writeWelcome(w)
		return
	}

	target := s.dispatcher.Resolve(req.content)
	if target.Rule.Handler == dispatch.Script {
		s.runScript(w, r, req, script.CommandLine(target.Path, req.query), target.Rule.ContentType)
		return
	}

	f, ok := s.readFile(w, target.Path)
	if !ok {
		return
	}
	s.writePage(w, req.opts, target.Rule.ContentType, f.Data)
}

// runScript executes line with the request's query overlay, writes stdout and
// honors the close option.
func (s *Server) runScript(w http.ResponseWriter, r *http.Request, req *request, line, contentType string) {
	values, err := script.ParseQuery(req.query)
	if err != nil {
		s.log.Debug("ignoring malformed query parameters", "error", err)
	}

	res, err := s.executor.Run(r.Context(), script.Command{
		Line:    line,
		Overlay: script.OverlayFromQuery(values),
		Address: s.addr,
	})
	if err != nil {
		var spawnErr *script.SpawnError
		if errors.As(err, &spawnErr) {
			s.log.Error("script could not start", "command", line, "error", err)
			httputil.WriteText(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		s.log.Warn("script interrupted", "command", line, "error", err)
	}

	var stdout []byte
	if res != nil {
		stdout = res.Stdout
	}
	s.writePage(w, req.opts, contentType, stdout)

	if req.opts.Has(OptionClose) {
		if s.cfg.CloseVeto && strings.Contains(string(stdout), closeVetoMarker) {
			s.log.Info("close vetoed by script output", "command", line)
			return
		}
		s.closeAfterResponse(w)
	}
}

// readFile reads path and writes the error response when it fails.
func (s *Server) readFile(w http.ResponseWriter, path string) (*content.File, bool) {
	f, err := content.Read(path)
	if err == nil {
		return f, true
	}
	if errors.Is(err, content.ErrNotFound) {
		httputil.WriteText(w, http.StatusNotFound, "File not found")
		return nil, false
	}
	s.log.Error("read failed", "path", path, "error", err)
	httputil.WriteText(w, http.StatusInternalServerError, "Internal Server Error")
	return nil, false
}

// writePage writes a 200 page. The plain option overrides contentType.
func (s *Server) writePage(w http.ResponseWriter, opts Options, contentType string, body []byte) {
	if opts.Has(OptionPlain) {
		contentType = httputil.ContentTypePlain
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	httputil.WriteBody(w, http.StatusOK, contentType, body)
}

// closeAfterResponse pushes the written response to the client and then
// terminates the process.
func (s *Server) closeAfterResponse(w http.ResponseWriter) {
	if err := http.NewResponseController(w).Flush(); err != nil {
		s.log.Debug("flush before close failed", "error", err)
	}
	s.log.Info("close requested, terminating")
	if err := s.terminate(); err != nil {
		s.log.Error("terminate failed", "error", err)
	}
}
