package app

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"quizdeck/internal/app/apiresp"
	"quizdeck/internal/app/observability"
	"quizdeck/internal/content"
	"quizdeck/internal/identity"
	"quizdeck/internal/media"
	"quizdeck/internal/report"
	"quizdeck/internal/store"
)

const maxUploadBytes = 20 << 20

func NewRouter(cfg Config, db *sql.DB, log *zap.SugaredLogger, verifier identity.Verifier, uploader media.Uploader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	collector := observability.NewCollector(db, log)
	r.Use(collector.Middleware)

	contentCfg := content.Config{Logger: log}
	if cfg.DeterministicReplacement {
		contentCfg.PickReplacement = content.LowestOrderReplacement
	}
	contentSvc := content.NewService(content.Stores{
		Modules:      store.NewPostgresModules(db),
		Exercises:    store.NewPostgresExercises(db),
		Alternatives: store.NewPostgresAlternatives(db),
		Cascade:      store.NewPostgresCascade(db),
	}, contentCfg)
	contentHandler := content.NewHandler(contentSvc)

	reportSvc := report.NewService(db)
	reportHandler := report.NewHandler(reportSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	limiter := NewIPRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(RateLimitMiddleware(limiter))
		api.Use(identity.Middleware(verifier))

		api.Get("/companies/{companyID}/modules", contentHandler.ListModules)
		api.Get("/modules/{moduleID}/exercises", contentHandler.ListExercises)
		api.Get("/exercises/{exerciseID}/alternatives", contentHandler.ListAlternatives)

		api.Post("/modules/{moduleID}/results", reportHandler.RecordResult)

		api.Group(func(admin chi.Router) {
			admin.Use(identity.RequireAdmin)

			admin.Post("/companies/{companyID}/modules", contentHandler.CreateModule)
			admin.Patch("/companies/{companyID}/modules/{id}", contentHandler.UpdateModule)
			admin.Post("/companies/{companyID}/modules/{id}/reorder", contentHandler.ReorderModule)
			admin.Delete("/companies/{companyID}/modules/{id}", contentHandler.DeleteModule)

			admin.Post("/modules/{moduleID}/exercises", contentHandler.CreateExercise)
			admin.Patch("/modules/{moduleID}/exercises/{id}", contentHandler.UpdateExercise)
			admin.Post("/modules/{moduleID}/exercises/{id}/reorder", contentHandler.ReorderExercise)
			admin.Delete("/modules/{moduleID}/exercises/{id}", contentHandler.DeleteExercise)

			admin.Post("/exercises/{exerciseID}/alternatives", contentHandler.CreateAlternative)
			admin.Patch("/exercises/{exerciseID}/alternatives/{id}", contentHandler.UpdateAlternative)
			admin.Post("/exercises/{exerciseID}/alternatives/{id}/reorder", contentHandler.ReorderAlternative)
			admin.Delete("/exercises/{exerciseID}/alternatives/{id}", contentHandler.DeleteAlternative)

			admin.Get("/modules/{moduleID}/results", reportHandler.ListResults)
			admin.Get("/modules/{moduleID}/results/summary", reportHandler.Summary)
			admin.Get("/modules/{moduleID}/results/export", reportHandler.Export)

			admin.Post("/uploads", uploadHandler(uploader))
		})
	})

	return r
}

func uploadHandler(uploader media.Uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uploader == nil {
			apiresp.WriteError(w, r, http.StatusServiceUnavailable, "media storage is not configured")
			return
		}
		contentType := r.Header.Get("Content-Type")
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
		if err != nil {
			apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		if len(data) == 0 {
			apiresp.WriteError(w, r, http.StatusBadRequest, "empty upload")
			return
		}
		url, err := uploader.Upload(r.Context(), data, contentType)
		if err != nil {
			if errors.Is(err, media.ErrUnsupportedType) {
				apiresp.WriteError(w, r, http.StatusUnsupportedMediaType, err.Error())
				return
			}
			apiresp.WriteError(w, r, http.StatusInternalServerError, "upload failed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"url": url})
	}
}
