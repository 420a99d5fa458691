package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	corsAllowMethods = "GET, PUT, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, " + HeaderIdempotencyKey
)

// CORS allows any origin and answers every preflight with an empty 200. It is
// meant for e.Pre so OPTIONS never reaches routing.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

// GzipRequestMiddleware inflates gzip-encoded request bodies. A body that is
// not valid gzip is rejected with 400. Reading more than limit inflated
// bytes fails with echo.ErrStatusRequestEntityTooLarge; a non-positive
// limit leaves the inflated size unchecked.
func GzipRequestMiddleware(limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !gzipCoded(req.Header) {
				return next(c)
			}
			zr, err := gzip.NewReader(req.Body)
			if err != nil {
				_ = req.Body.Close()
				return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
			}
			req.Body = &cappedInflater{src: req.Body, zr: zr, left: limit, capped: limit > 0}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)
			return next(c)
		}
	}
}

// gzipCoded reports whether gzip (or its x-gzip alias) is among the
// request's content codings.
func gzipCoded(h http.Header) bool {
	for _, v := range h.Values(echo.HeaderContentEncoding) {
		codings := strings.FieldsFunc(strings.ToLower(v), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if slices.Contains(codings, "gzip") || slices.Contains(codings, "x-gzip") {
			return true
		}
	}
	return false
}

// cappedInflater is the decompressed request body.
type cappedInflater struct {
	src    io.ReadCloser
	zr     *gzip.Reader
	left   int64
	capped bool
}

func (r *cappedInflater) Read(p []byte) (int, error) {
	if !r.capped {
		return r.zr.Read(p)
	}
	if r.left <= 0 {
		// A body of exactly limit bytes is fine; one more is not.
		var extra [1]byte
		n, err := r.zr.Read(extra[:])
		if n > 0 {
			return 0, echo.ErrStatusRequestEntityTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > r.left {
		p = p[:r.left]
	}
	n, err := r.zr.Read(p)
	r.left -= int64(n)
	return n, err
}

func (r *cappedInflater) Close() error {
	zerr := r.zr.Close()
	if err := r.src.Close(); err != nil {
		return err
	}
	return zerr
}
