package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cloudreel/cloudreel/internal/api"
	"github.com/cloudreel/cloudreel/internal/config"
	"github.com/cloudreel/cloudreel/internal/media"
	"github.com/cloudreel/cloudreel/internal/repositories"
)

// @title CloudReel API
// @version 1.0
// @description Upload images and videos, have Cloudinary store and transcode them, and list the processed uploads.
// @BasePath /api/v1
func main() {
	db := repositories.ConnectDatabase()

	var uploader media.Uploader
	if config.Envs.Cloudinary.Valid() {
		uploader = media.NewCloudinaryClient(config.Envs.Cloudinary, config.Envs.MaxConcurrentUploads)
	} else {
		log.Println("Cloudinary credentials missing; ingest endpoints will refuse uploads")
	}

	videos := repositories.NewVideoRepository(db)
	handler := api.SetupRouter(uploader, videos)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Envs.Port),
		Handler: handler,
		// Uploads are long-lived, so only header read and idle time are bounded.
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Starting CloudReel server on port: %s", config.Envs.Port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on port %s: %v", config.Envs.Port, err)
	}
}
