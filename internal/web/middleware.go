package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kevinmichaelchen/delta/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	loggerKey    = "logger"
)

// RequestID reuses an incoming X-Request-ID or assigns a new UUID, and
// echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Set(requestIDKey, requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)
			return next(c)
		}
	}
}

func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextLogger stores a request-scoped logger carrying the request ID.
func (s *Server) ContextLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := s.log.With().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Logger()
			c.Set(loggerKey, &l)
			return next(c)
		}
	}
}

func (s *Server) getLogger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get(loggerKey).(*zerolog.Logger); ok {
		return l
	}
	return &s.log
}

// RequestLogger writes one line per request, leveled by status class.
func (s *Server) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogMethod:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			status := v.Status

			// The error handler has not written the final status yet.
			if v.Error != nil {
				var httpErr *errs.HTTPError
				var echoErr *echo.HTTPError
				if errors.As(v.Error, &httpErr) {
					status = httpErr.Status
				} else if errors.As(v.Error, &echoErr) {
					status = echoErr.Code
				}
			}

			l := s.getLogger(c)
			var e *zerolog.Event
			switch {
			case status >= 500:
				e = l.Error().Err(v.Error)
			case status >= 400:
				e = l.Warn()
			default:
				e = l.Info()
			}

			e.Dur("latency", v.Latency).
				Int("status", status).
				Str("uri", v.URI).
				Str("ip", c.RealIP()).
				Msg("request")
			return nil
		},
	})
}

// ErrorHandler maps any handler error to an errs.HTTPError. JSON routes get
// the error as JSON, pages get the error page.
func (s *Server) ErrorHandler(err error, c echo.Context) {
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &echoErr) && echoErr.Code == http.StatusNotFound:
			httpErr = errs.NewNotFoundError("Page not found")
		case errors.As(err, &echoErr):
			httpErr = &errs.HTTPError{
				Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code)),
				Message: http.StatusText(echoErr.Code),
				Status:  echoErr.Code,
			}
			if msg, ok := echoErr.Message.(string); ok {
				httpErr.Message = msg
			}
		default:
			httpErr = errs.NewInternalServerError()
		}
	}

	l := s.getLogger(c)
	if httpErr.Status >= 500 {
		l.Error().Err(err).Int("status", httpErr.Status).Str("error_code", httpErr.Code).Msg(httpErr.Message)
	}

	if c.Response().Committed {
		return
	}

	if wantsJSON(c) {
		_ = c.JSON(httpErr.Status, httpErr)
		return
	}
	if rerr := c.Render(httpErr.Status, pageError, httpErr); rerr != nil {
		l.Error().Err(rerr).Msg("rendering error page")
		_ = c.String(httpErr.Status, httpErr.Message)
	}
}

func wantsJSON(c echo.Context) bool {
	if c.Path() == statusPath {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
