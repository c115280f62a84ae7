package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"aws-gateway/internal/client"
	"aws-gateway/internal/config"
	"aws-gateway/internal/handler"
	"aws-gateway/internal/metrics"
	"aws-gateway/internal/middleware"
	"aws-gateway/internal/service"
	"aws-gateway/internal/storage"
	"aws-gateway/internal/validator"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kctx := kong.Parse(&cli,
		kong.Name("aws-gateway"),
		kong.Description("Request router and validator for API Gateway proxy events."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	// The runtime mode decides which components exist, so config is read before fx starts.
	cfg, err := config.Load(&cli)
	kctx.FatalIfErrorf(err)

	fx.New(appOptions(cfg)).Run()
}

// appOptions wires the gateway core plus the module for cfg's runtime mode.
func appOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			client.NewBackendClient,
			fx.Annotate(storage.NewS3Store, fx.As(new(storage.ObjectStore))),
			validator.New,
			service.NewUploadRelay,
			service.NewForwarder,
			service.NewGateway,
		),
		fx.Invoke(warnConfigPermissions),
		runtimeModule(cfg.Runtime.Mode),
	)
}

// runtimeModule provides what the selected mode serves. Lambda mode exposes no
// metrics endpoint, so it gets a nil *metrics.Metrics and records nothing.
func runtimeModule(mode string) fx.Option {
	if mode == config.ModeServe {
		return fx.Module("serve",
			fx.Provide(
				func() handler.Version { return handler.Version(version) },
				metrics.New,
				newEcho,
				handler.NewProxyHandler,
				handler.NewHealthHandler,
			),
			fx.Invoke(handler.RegisterRoutes, startServer),
		)
	}

	return fx.Module("lambda",
		fx.Provide(
			func() *metrics.Metrics { return nil },
			handler.NewLambdaHandler,
		),
		fx.Invoke(startLambda),
	)
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevels[strings.ToLower(cfg.Log.Level)]}

	// CloudWatch stamps every line already.
	if cfg.Runtime.Mode == config.ModeLambda {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Log.Format, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h).With("mode", cfg.Runtime.Mode)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Reading a request is capped at 30s. A write may take one full backend
	// call plus a second, so a slow backend answer is still delivered.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Upstream.TimeoutSeconds+1) * time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.EdgeHeaders())
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m, cfg.Metrics.Path))
	}

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimit(cfg.Server.RateLimit))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startLambda(lc fx.Lifecycle, h *handler.LambdaHandler, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("starting lambda runtime")
			go lambda.StartWithOptions(h.Invoke, lambda.WithContext(ctx))
			return nil
		},
		OnStop: func(_ context.Context) error {
			logger.Info("stopping lambda runtime")
			cancel()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr, "upstream", cfg.Upstream.BaseURL)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
