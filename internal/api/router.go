package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/yemaney/filevector/docs"

	"github.com/rs/cors"
	"github.com/yemaney/filevector/internal/api/handlers"
	"github.com/yemaney/filevector/internal/api/middleware"
	"github.com/yemaney/filevector/internal/config"
	"github.com/yemaney/filevector/internal/utils"
)

func SetupRouter(
	cfg *config.Config,
	auth *handlers.AuthHandler,
	files *handlers.FileHandler,
	search *handlers.SearchHandler,
) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		utils.JSONResponse(w, http.StatusOK, map[string]string{"message": "Hello World"})
	})

	mainMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	mainMux.HandleFunc("POST /api/v1/users", auth.Register)
	mainMux.HandleFunc("POST /api/v1/login", auth.Login)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("GET /users", auth.ListUsers)
	protectedMux.HandleFunc("POST /files", files.Upload)
	protectedMux.HandleFunc("GET /search/files", search.SearchFiles)
	protectedMux.HandleFunc("GET /search/files/similar/{file_id}", search.FindSimilar)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.Auth(cfg.JWTSecret)(protectedMux),
		),
	)

	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}
