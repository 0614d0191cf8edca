package api

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/rohits-web03/edudrive/docs"
	"github.com/rohits-web03/edudrive/internal/api/handlers"
	"github.com/rohits-web03/edudrive/internal/api/middleware"
	"github.com/rohits-web03/edudrive/internal/config"
	"github.com/rohits-web03/edudrive/internal/drive"
)

func SetupRouter(cfg config.Config, svc *drive.Service, logger zerolog.Logger) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)
	mainMux.Handle("GET /metrics", promhttp.Handler())

	// ---------- PROTECTED ROUTES ----------
	h := handlers.NewDriveHandler(svc)

	driveMux := http.NewServeMux()
	driveMux.HandleFunc("GET /drive", h.GetDrive)
	driveMux.HandleFunc("PATCH /drive", h.UpdateDrive)
	driveMux.HandleFunc("GET /drive/items", h.ListItems)
	driveMux.HandleFunc("POST /drive/duplicates", h.CheckDuplicates)

	driveMux.HandleFunc("POST /drive/folders", h.CreateFolder)
	driveMux.HandleFunc("PATCH /drive/folders/{id}", h.UpdateFolder)
	driveMux.HandleFunc("DELETE /drive/folders/{id}", h.DeleteFolder)
	driveMux.HandleFunc("POST /drive/folders/{id}/restore", h.RestoreFolder)

	driveMux.HandleFunc("POST /drive/files", h.UploadFile)
	driveMux.HandleFunc("POST /drive/files/presign", h.PresignUpload)
	driveMux.HandleFunc("POST /drive/files/complete", h.CompleteUpload)
	driveMux.HandleFunc("PATCH /drive/files/{id}", h.UpdateFile)
	driveMux.HandleFunc("DELETE /drive/files/{id}", h.DeleteFile)
	driveMux.HandleFunc("POST /drive/files/{id}/restore", h.RestoreFile)
	driveMux.HandleFunc("GET /drive/files/{id}/download", h.DownloadFile)
	driveMux.HandleFunc("POST /drive/files/{id}/copy-requests", h.RequestCopy)

	driveMux.HandleFunc("GET /drive/copy-requests", h.ListCopyRequests)
	driveMux.HandleFunc("POST /drive/copy-requests/{id}/approve", h.ApproveCopy)
	driveMux.HandleFunc("POST /drive/copy-requests/{id}/deny", h.DenyCopy)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	protected := middleware.Auth(cfg.JWTSecret)(limiter.Middleware(driveMux))

	mainMux.Handle("/api/v1/",
		http.StripPrefix("/api/v1", protected),
	)

	logger.Info().Msg("router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Metrics(handler)
	handler = middleware.Logger(logger)(handler)
	return handler
}
