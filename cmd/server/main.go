// Command server runs the job application tracker API.
//
// Options come from flags, the environment and an optional .env file; see
// internal/config. JWT_SECRET is the only one without a default.
//
//	JWT_SECRET=$(openssl rand -hex 32) go run ./cmd/server --port 3000
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sakif/job-tracker/internal/config"
	"github.com/sakif/job-tracker/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(logWriter(cfg), &slog.HandlerOptions{
		Level: logLevel(cfg.Dbg),
	}))
	slog.SetDefault(logger)

	srv, err := server.New(context.Background(), server.Config{
		Port:        cfg.Port,
		DBPath:      cfg.DBPath,
		Environment: cfg.Env,
		BodyLimit:   cfg.BodyLimit,
		JWTSecret:   cfg.JWT.Secret,
		JWTExpires:  cfg.JWT.Expires,
		BcryptCost:  cfg.BcryptCost,
		RateAPI:     cfg.Rate.API,
		RateAuth:    cfg.Rate.Auth,
		RateWindow:  cfg.Rate.Window,
	}, logger)
	if err != nil {
		// includes a corrupt or unreadable database image
		logger.Error("failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// logWriter returns stdout, or stdout plus a rotating file when --log.file
// is set.
func logWriter(cfg *config.Config) io.Writer {
	if cfg.Log.File == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
}

func logLevel(dbg bool) slog.Level {
	if dbg {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
