// internal/server/handlers.go
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/avivl/lockkeeper/internal/lock"
	"github.com/avivl/lockkeeper/internal/store"
	"github.com/labstack/echo/v4"
)

var (
	errInvalidBody    = echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	errSuffixRequired = echo.NewHTTPError(http.StatusBadRequest, "suffix is required")
	errNotInitialized = echo.NewHTTPError(http.StatusServiceUnavailable, "server is not initialized")
)

type acquireRequest struct {
	Suffix string `json:"suffix"`
	// MaxWaitMs retries a busy lock for up to this many milliseconds.
	MaxWaitMs int64 `json:"maxWaitMs,omitempty"`
}

type releaseRequest struct {
	Suffix string `json:"suffix"`
}

type batchRequest struct {
	Suffixes []string `json:"suffixes"`
}

type acquireResponse struct {
	Acquired bool   `json:"acquired"`
	Message  string `json:"message,omitempty"`
}

type checkResponse struct {
	Held bool `json:"held"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listLocks(c echo.Context) error {
	set := s.locks.Load()
	if set == nil {
		return errNotInitialized
	}
	return c.JSON(http.StatusOK, map[string][]string{"locks": set.Names()})
}

// lookup resolves the :name parameter. Failures are *echo.HTTPError.
func (s *Server) lookup(c echo.Context) (lock.Pair, error) {
	set := s.locks.Load()
	if set == nil {
		return lock.Pair{}, errNotInitialized
	}
	pair, err := set.Get(c.Param("name"))
	if err != nil {
		return lock.Pair{}, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return pair, nil
}

func (s *Server) acquire(c echo.Context) error {
	var req acquireRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if req.Suffix == "" {
		return errSuffixRequired
	}
	pair, err := s.lookup(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var (
		ok  bool
		msg string
	)
	if req.MaxWaitMs > 0 {
		ok, msg, err = pair.Single.AcquireWait(ctx, req.Suffix, time.Duration(req.MaxWaitMs)*time.Millisecond)
	} else {
		ok, msg, err = pair.Single.Acquire(ctx, req.Suffix)
	}
	return s.acquireResult(c, ok, msg, err)
}

func (s *Server) release(c echo.Context) error {
	var req releaseRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if req.Suffix == "" {
		return errSuffixRequired
	}
	pair, err := s.lookup(c)
	if err != nil {
		return err
	}

	if err := pair.Single.Release(c.Request().Context(), req.Suffix); err != nil {
		return s.storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) check(c echo.Context) error {
	pair, err := s.lookup(c)
	if err != nil {
		return err
	}

	suffix, err := pathParam(c, "suffix")
	if err != nil {
		return err
	}

	held, err := pair.Single.Check(c.Request().Context(), suffix)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, checkResponse{Held: held})
}

// pathParam returns an unescaped path parameter. echo routes on the raw path
// when the request carries escapes like %2F and leaves the parameter escaped.
func pathParam(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v, nil
	}
	unescaped, err := url.PathUnescape(v)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return unescaped, nil
}

func (s *Server) acquireBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	pair, err := s.lookup(c)
	if err != nil {
		return err
	}

	ok, msg, err := pair.Batch.Acquire(c.Request().Context(), req.Suffixes)
	return s.acquireResult(c, ok, msg, err)
}

func (s *Server) releaseBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	pair, err := s.lookup(c)
	if err != nil {
		return err
	}

	if err := pair.Batch.Release(c.Request().Context(), req.Suffixes); err != nil {
		return s.storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) acquireResult(c echo.Context, ok bool, msg string, err error) error {
	if err != nil {
		return s.storeError(c, err)
	}
	if !ok {
		return c.JSON(http.StatusConflict, acquireResponse{Acquired: false, Message: msg})
	}
	return c.JSON(http.StatusOK, acquireResponse{Acquired: true})
}

// storeError maps a lock error to a status. Backends wrap context errors as
// unreachable, so those are checked first.
func (s *Server) storeError(c echo.Context, err error) error {
	s.logger.ErrorCtx(c.Request().Context(), err)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotReachable):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
