package middleware

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"
)

// hopByHopHeaders are headers that should not be forwarded by proxies.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// EdgeHeaders returns an Echo middleware that makes a direct request look
// like one arriving through API Gateway: hop-by-hop headers are dropped and
// the X-Forwarded-* headers the edge would add are filled in when absent.
// Responses get the usual security headers.
func EdgeHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			for _, h := range hopByHopHeaders {
				req.Header.Del(h)
			}

			if req.Header.Get(echo.HeaderXForwardedFor) == "" {
				req.Header.Set(echo.HeaderXForwardedFor, c.RealIP())
			}
			if req.Header.Get(echo.HeaderXForwardedProto) == "" {
				req.Header.Set(echo.HeaderXForwardedProto, c.Scheme())
			}
			if req.Header.Get("X-Forwarded-Port") == "" {
				if _, port, err := net.SplitHostPort(req.Host); err == nil {
					req.Header.Set("X-Forwarded-Port", port)
				} else if strings.EqualFold(c.Scheme(), "https") {
					req.Header.Set("X-Forwarded-Port", "443")
				} else {
					req.Header.Set("X-Forwarded-Port", "80")
				}
			}

			err := next(c)

			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "DENY")

			return err
		}
	}
}
