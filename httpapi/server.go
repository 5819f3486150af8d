// Package httpapi is the HTTP façade adapter described in spec.md §6: it
// translates JSON/REST requests into calls against the core package and is
// explicitly out of the deterministic core's own scope.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"daisy/core"
)

// Server exposes Daisy's read/prepare/run endpoints over HTTP.
type Server struct {
	Tracker *core.Tracker
	Storage *core.Storage
	Reader  core.Reader
	Log     *logrus.Entry
}

// NewServer wires a Server and its gorilla/mux router.
func NewServer(tracker *core.Tracker, storage *core.Storage, reader core.Reader, log *logrus.Logger) (*Server, *mux.Router) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		Tracker: tracker,
		Storage: storage,
		Reader:  reader,
		Log:     log.WithField("component", "httpapi"),
	}
	r := mux.NewRouter()
	r.Use(Logger(s.Log))
	Register(r, s)
	return s, r
}

// argsFromVars splits a mux wildcard capture like "1/2/3" into its segments.
// Leading and trailing slashes are trimmed first, so an empty capture or "/"
// yields nil; an empty segment between two slashes is kept.
func argsFromVars(raw string) []string {
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "/")
}

func withCtx(r *http.Request) context.Context {
	return r.Context()
}
