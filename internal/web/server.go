// Package web serves the stored changelogs: a repository index, one page
// per repository and a JSON health check.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/kevinmichaelchen/delta/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

type Server struct {
	echo       *echo.Echo
	store      storage.Store
	log        zerolog.Logger
	httpServer *http.Server
}

func New(store storage.Store, log zerolog.Logger) (*Server, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = r

	s := &Server{
		echo:  e,
		store: store,
		log:   log,
		httpServer: &http.Server{
			Handler:      e,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}
	e.HTTPErrorHandler = s.ErrorHandler

	e.Use(
		RequestID(),
		s.ContextLogger(),
		s.RequestLogger(),
		middleware.Recover(),
		middleware.Secure(),
	)
	s.routes()

	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called. A Shutdown that happens
// first makes Start return immediately.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("starting web server")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
