package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kanisafin/internal/backend"
	"kanisafin/internal/cli"
	apphttp "kanisafin/internal/http"
	applog "kanisafin/internal/log"
	"kanisafin/internal/services"
	"kanisafin/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}

	svc := services.NewRecordService(res.Gateway, res.Publisher)
	sessions := session.NewStore(session.Options{
		HashKey:  []byte(cfg.SessionHashKey),
		BlockKey: []byte(cfg.SessionBlockKey),
		MaxAge:   cfg.SessionMaxAge,
		Secure:   cfg.SecureCookies,
	})

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		Service:         svc,
		Sessions:        sessions,
		ReportCacheSize: cfg.ReportCacheSize,
		ReportCacheTTL:  cfg.ReportCacheTTL,
		CSRFKey:         []byte(cfg.CSRFKey),
		Secure:          cfg.SecureCookies,
		LoginRateLimit:  cfg.LoginRateLimit,
		TrustedProxies:  cfg.TrustedProxies,
		Ready:           res.Ping,
		Logger:          logger,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to build HTTP server", err)
	}
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting KanisaFin server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
