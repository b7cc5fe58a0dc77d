package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"quizdeck/internal/app"
	"quizdeck/internal/db"
	"quizdeck/internal/identity"
	"quizdeck/internal/media"

	"go.uber.org/zap"
)

func main() {
	cfg := app.LoadConfig()

	logger := newLogger(cfg.AppEnv)
	defer logger.Sync()
	log := logger.Sugar()

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.DBDSN, db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		log.Errorw("database error", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Errorw("migration error", "err", err)
		os.Exit(1)
	}

	verifier := identity.NewHTTPVerifier(cfg.IdentityServiceURL)

	var uploader media.Uploader
	if cfg.MediaBucket != "" {
		gcs, err := media.NewGCSUploader(ctx, cfg.MediaBucket)
		if err != nil {
			log.Errorw("media bucket error", "err", err)
			os.Exit(1)
		}
		uploader = gcs
	}

	r := app.NewRouter(cfg, pool, log, verifier, uploader)

	log.Infow("quizdeck web listening", "addr", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Errorw("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(env string) *zap.Logger {
	if env == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
