// Command ftp2http runs an FTP server that relays every uploaded file to an
// HTTP backend as a multipart POST.
//
// Usage:
//
//	ftp2http [-config path] [-log-level info] [-log-format text]
//	ftp2http hash [-algorithm bcrypt|argon2id] [password]
//
// A .env file in the working directory is loaded before flags are read.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ftp2http "github.com/apnarm/ftp2http"
	"github.com/apnarm/ftp2http/ftpdriver"
	"github.com/apnarm/ftp2http/internal/config"
	"github.com/apnarm/ftp2http/metrics/export/prometheus"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
)

const defaultConfigPath = "/etc/ftp2http.conf"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash" {
		os.Exit(runHash(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ftp2http", flag.ContinueOnError)
	var (
		configPath = fs.String("config", envOr("FTP2HTTP_CONFIG", defaultConfigPath), "configuration file")
		logLevel   = fs.String("log-level", envOr("FTP2HTTP_LOG_LEVEL", "info"), "debug, info, warn or error")
		logFormat  = fs.String("log-format", envOr("FTP2HTTP_LOG_FORMAT", "text"), "text or json")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	file, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load configuration", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("using configuration file", slog.String("path", *configPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, file, logger); err != nil {
		logger.Error("ftp2http stopped", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func serve(ctx context.Context, file *config.File, logger *slog.Logger) error {
	gwCfg, err := file.Gateway()
	if err != nil {
		return err
	}
	drvCfg, err := file.Driver(ctx, nil)
	if err != nil {
		return err
	}

	b := ftp2http.New().WithConfig(gwCfg).WithLogger(logger)

	if file.RedisAddr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{file.RedisAddr}})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, login throttle fails open", slog.String("error", err.Error()))
		}
		b = b.WithRedis(rdb)
	}

	if file.AuditLog != "" {
		f, err := os.OpenFile(file.AuditLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		defer func() { _ = f.Close() }()
		b = b.WithAuditSink(ftp2http.NewJSONWriterSink(f))
	}

	gw, err := b.Build()
	if err != nil {
		return err
	}
	defer gw.Close()

	drv, err := ftpdriver.New(gw, drvCfg, logger)
	if err != nil {
		return err
	}
	srv := ftpdriver.NewServer(drv)

	var metricsSrv *http.Server
	if file.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", prometheus.NewExporter(gw).Handler())
		metricsSrv = &http.Server{
			Addr:              file.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener", slog.String("error", err.Error()))
			}
		}()
		logger.Info("serving metrics", slog.String("addr", file.MetricsAddr))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("ftp2http listening",
		slog.String("addr", drvCfg.ListenAddr),
		slog.String("relay", gwCfg.Relay.URL),
		slog.Bool("tls", len(drvCfg.TLSCertPEM) > 0),
	)

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
		srv.Stop()
		err = <-errCh
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	if ctx.Err() != nil {
		return nil
	}
	return err
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
