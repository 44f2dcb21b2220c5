// Package server assembles the helper daemon's echo instance.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/action_api"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/common"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/media_api"
	"thirdcoast.systems/browserutility/cmd/helper/handlers/settings_api"
	"thirdcoast.systems/browserutility/internal/metrics"
	"thirdcoast.systems/browserutility/internal/pairing"
)

type Deps struct {
	Settings   settings_api.Store
	Dispatcher action_api.Dispatcher
	// Pairing, when set, requires a bearer token on /api routes.
	Pairing *pairing.Service

	FFmpegPath string
	// Merge overrides the ffmpeg merge runner.
	Merge  media_api.MergeFunc
	Helper media_api.HelperDeps

	AllowedExtensionIDs []string
}

type Server struct {
	*echo.Echo
	deps                Deps
	registry            *prometheus.Registry
	allowedExtensionIDs map[string]struct{}
}

func New(deps Deps) *Server {
	s := &Server{
		Echo:                echo.New(),
		deps:                deps,
		registry:            prometheus.NewRegistry(),
		allowedExtensionIDs: parseIDSet(deps.AllowedExtensionIDs),
	}

	if len(s.allowedExtensionIDs) == 0 {
		slog.Info("EXTENSION_ALLOWED_CLIENT_IDS not set; extension CORS will be allowed only on localhost/private IP")
	}

	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(s.registry)

	s.setupMiddleware()
	s.registerRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.HideBanner = true
	s.HidePort = true
	s.HTTPErrorHandler = s.handleError

	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
	s.Use(s.requestMetrics)
	s.Use(s.extensionCORSMiddleware)
}

func (s *Server) registerRoutes() {
	s.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	})
	s.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	helper := s.deps.Helper
	s.POST("/merge", media_api.HandleMerge(s.deps.FFmpegPath, s.deps.Merge))
	s.POST("/download_youtube", media_api.HandleDownloadYouTube(helper))
	s.POST("/download_manifest", media_api.HandleDownloadManifest(helper))
	s.POST("/download_page", media_api.HandleDownloadPage(helper))

	apiGroup := s.Group("/api")
	apiGroup.Use(s.requirePairToken)
	apiGroup.GET("/settings", settings_api.HandleGet(s.deps.Settings))
	apiGroup.PUT("/settings", settings_api.HandlePut(s.deps.Settings))
	apiGroup.GET("/settings/guidelines/preview", settings_api.HandleGuidelinesPreview(s.deps.Settings))
	apiGroup.POST("/actions/:action", action_api.HandleDispatch(s.deps.Dispatcher))
}

// requirePairToken checks the Authorization bearer against issued pairing
// tokens. It is a no-op when pairing is disabled.
func (s *Server) requirePairToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.deps.Pairing == nil {
			return next(c)
		}

		authHeader := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenStr == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		if _, err := s.deps.Pairing.Verify(c.Request().Context(), tokenStr); err != nil {
			if !errors.Is(err, pairing.ErrInvalidToken) {
				slog.Error("pairing token check failed", "error", err)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		return next(c)
	}
}

func (s *Server) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		} else if err != nil {
			status = http.StatusInternalServerError
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
		return err
	}
}

// handleError renders every error in the {ok:false, error} envelope.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code == http.StatusNotFound {
		msg = "Not found"
	}
	if code >= http.StatusInternalServerError {
		slog.Error("unhandled error", "path", c.Request().URL.Path, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = common.Fail(c, code, msg)
}
