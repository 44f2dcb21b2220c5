package server

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// extensionCORSMiddleware allows chrome-extension:// and moz-extension://
// origins. Preflights are answered here with the helper's {ok:true} body.
func (s *Server) extensionCORSMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		origin := c.Request().Header.Get("Origin")
		allowedOrigin := ""

		if origin != "" && s.extensionOriginAllowed(c, origin) {
			allowedOrigin = origin
		}

		if allowedOrigin != "" {
			h := c.Response().Header()
			h.Set("Vary", "Origin")
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")
			h.Set("Access-Control-Expose-Headers", "Content-Type")
		}

		if c.Request().Method == http.MethodOptions {
			if origin != "" && allowedOrigin == "" {
				return c.NoContent(http.StatusForbidden)
			}
			return c.JSON(http.StatusOK, map[string]any{"ok": true})
		}

		err := next(c)

		// Error handling may reset headers.
		if allowedOrigin != "" && c.Response().Header().Get("Access-Control-Allow-Origin") == "" {
			c.Response().Header().Set("Vary", "Origin")
			c.Response().Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		}

		return err
	}
}

func (s *Server) extensionOriginAllowed(c echo.Context, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "chrome-extension" && u.Scheme != "moz-extension" {
		return false
	}
	if len(s.allowedExtensionIDs) == 0 {
		return isLocalOrPrivateRequestHost(c)
	}
	_, ok := s.allowedExtensionIDs[u.Host]
	return ok
}

func isLocalOrPrivateRequestHost(c echo.Context) bool {
	hostHeader := strings.TrimSpace(c.Request().Host)
	if hostHeader == "" {
		return false
	}

	host := hostHeader
	if h, _, err := net.SplitHostPort(hostHeader); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

func parseIDSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
