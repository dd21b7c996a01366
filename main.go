package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subburn/backend/internal/api"
	"github.com/subburn/backend/internal/auth"
	"github.com/subburn/backend/internal/burn"
	"github.com/subburn/backend/internal/config"
	"github.com/subburn/backend/internal/db"
	"github.com/subburn/backend/internal/engine"
	"github.com/subburn/backend/internal/job"
	"github.com/subburn/backend/internal/storage"
)

func main() {
	cfg := config.Load()

	// Ensure data directory exists
	os.MkdirAll(cfg.DataPath, 0755)

	// Initialize database
	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Ensure admin user exists
	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	// Upload/result storage
	store, err := storage.NewStore(cfg.DataPath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Engine: probe ffmpeg once at startup so a missing binary fails fast
	eng := engine.NewFFmpeg(cfg.FFmpegBinary, cfg.WorkPath)
	if err := eng.Load(context.Background()); err != nil {
		log.Fatalf("Failed to load engine: %v", err)
	}
	log.Printf("[engine] ready (binary=%s, workdir=%s)", cfg.FFmpegBinary, cfg.WorkPath)

	// Job queue with the burn worker
	queue := job.NewQueue(database.DB())
	defer queue.Stop()
	worker := burn.NewWorker(eng, store)
	queue.RegisterHandler(job.TypeBurn, worker.Handle)

	// Initialize JWT service
	jwtService := auth.NewJWTService(cfg.JWTSecret, 24*time.Hour)

	// Create router
	router := api.NewRouter(database, jwtService, cfg, queue, store)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: router}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
