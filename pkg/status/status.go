// Package status serves the connection count over HTTP.
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/intel-go/fastjson"

	"github.com/jingyuanliang/echosvc/pkg/version"
)

// CountSource is satisfied by *echo.Listener.
type CountSource interface {
	ConnectionCount() int64
}

type connections struct {
	Connections int64 `json:"connections"`
}

type versionInfo struct {
	Version string `json:"version"`
}

type Server struct {
	src    CountSource
	router chi.Router
	srv    *http.Server
	ln     net.Listener
	served chan error
}

func New(src CountSource) *Server {
	s := &Server{src: src}

	r := chi.NewRouter()
	r.Get("/connections", s.connections)
	r.Get("/version", s.version)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.served = make(chan error, 1)
	go func() {
		s.served <- s.srv.Serve(ln)
	}()
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops a started server. It is a no-op if Start was never called.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	if serr := <-s.served; !errors.Is(serr, http.ErrServerClosed) {
		err = errors.Join(err, serr)
	}
	return err
}

func (s *Server) connections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, connections{Connections: s.src.ConnectionCount()})
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, versionInfo{Version: version.Version})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	body, err := fastjson.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
