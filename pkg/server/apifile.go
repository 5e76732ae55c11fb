package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/biglinux/bigbashview/pkg/httputil"
	"github.com/biglinux/bigbashview/pkg/jsonfile"
)

// handleAPIFile implements the JSON file store: GET reads, POST replaces,
// PUT merges top-level keys and DELETE removes.
func (s *Server) handleAPIFile(w http.ResponseWriter, r *http.Request, _ *request) {
	query := r.URL.Query()
	name := query.Get("filename")
	if name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "No filename specified")
		return
	}
	path, err := jsonfile.ExpandHome(name)
	if err != nil {
		s.log.Error("cannot expand file name", "filename", name, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.apiFileGet(w, path, name, query.Get("path"))
	case http.MethodPost:
		doc, ok := s.decodeBody(w, r)
		if !ok {
			return
		}
		s.apiFileResult(w, name, jsonfile.Write(path, doc))
	case http.MethodPut:
		doc, ok := s.decodeBody(w, r)
		if !ok {
			return
		}
		patch, isObject := doc.(map[string]any)
		if !isObject {
			httputil.WriteError(w, http.StatusBadRequest, "Request body must be a JSON object")
			return
		}
		s.apiFileResult(w, name, jsonfile.Merge(path, patch))
	case http.MethodDelete:
		s.apiFileResult(w, name, jsonfile.Delete(path))
	}
}

func (s *Server) apiFileGet(w http.ResponseWriter, path, name, expr string) {
	doc, err := jsonfile.Read(path)
	if err != nil {
		s.apiFileError(w, name, err)
		return
	}
	if expr != "" {
		doc, err = jsonfile.Select(doc, expr)
		if errors.Is(err, jsonfile.ErrNoMatch) {
			httputil.WriteError(w, http.StatusNotFound, fmt.Sprintf("Path %s not found in %s", expr, name))
			return
		}
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid path %s", expr))
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// decodeBody parses the request body as one JSON document.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	doc, err := jsonfile.Decode(body, "request body")
	if err != nil {
		s.log.Debug("bad request body", "error", err)
		httputil.WriteError(w, http.StatusBadRequest, "Could not decode JSON in request body")
		return nil, false
	}
	return doc, true
}

func (s *Server) apiFileResult(w http.ResponseWriter, name string, err error) {
	if err != nil {
		s.apiFileError(w, name, err)
		return
	}
	httputil.WriteSuccess(w)
}

// apiFileError maps store errors to responses. Unexpected errors are logged
// and answered without details.
func (s *Server) apiFileError(w http.ResponseWriter, name string, err error) {
	var decodeErr *jsonfile.DecodeError
	switch {
	case errors.Is(err, jsonfile.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, fmt.Sprintf("File %s not found", name))
	case errors.As(err, &decodeErr):
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Could not decode JSON in %s", name))
	case errors.Is(err, jsonfile.ErrNotObject):
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("File %s does not hold a JSON object", name))
	default:
		s.log.Error("json file operation failed", "filename", name, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
