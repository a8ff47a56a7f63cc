package api

import (
	"fmt"
	"log"
	"net/http"

	_ "github.com/cloudreel/cloudreel/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/cloudreel/cloudreel/internal/api/handlers"
	"github.com/cloudreel/cloudreel/internal/api/middleware"
	"github.com/cloudreel/cloudreel/internal/config"
	"github.com/cloudreel/cloudreel/internal/media"
	"github.com/cloudreel/cloudreel/internal/repositories"
	"github.com/rs/cors"
)

// SetupRouter wires the HTTP surface. The pipeline client and video store are
// injected so the whole router can run against fakes in tests.
func SetupRouter(uploader media.Uploader, videos repositories.VideoRepository) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	mediaHandler := handlers.NewMediaHandler(uploader, videos)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("/sign-up", handlers.RegisterUser)
	authMux.HandleFunc("/login", handlers.LoginUser)
	authMux.HandleFunc("/google/login", handlers.HandleGoogleLogin)
	authMux.HandleFunc("/google/callback", handlers.HandleGoogleCallback)
	// Logout lives in the auth subtree, which is otherwise public, so it
	// carries the guard individually.
	authMux.Handle("/logout", middleware.AuthMiddleware(http.HandlerFunc(handlers.Logout)))

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	// Listing stays public: it backs the browse page and carries no guard.
	mainMux.HandleFunc("/api/v1/videos", mediaHandler.ListVideos)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("/image", mediaHandler.UploadImage)
	protectedMux.HandleFunc("/video-upload", mediaHandler.UploadVideo)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.AuthMiddleware(protectedMux),
		),
	)

	log.Println("Router initialized")
	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}
