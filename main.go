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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/firmly/dvr/internal/buffer"
	"github.com/firmly/dvr/internal/config"
	"github.com/firmly/dvr/internal/service"
	"github.com/firmly/dvr/internal/store"
	transport "github.com/firmly/dvr/internal/transport/http"
)

func main() {
	// Load .env file before reading the environment
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	log.Printf("Starting dvr-service...")
	log.Printf("External HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Internal HTTP Port: %d", cfg.InternalPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Session inactivity window: %s", cfg.SessionTimeout)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL, cfg.MaxSessionsIndex)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize session buffer registry
	registry := buffer.NewRegistry(db, cfg.SessionTimeout, cfg.StoreTimeout)

	// Initialize service
	svc := service.New(db, registry, cfg)

	// Create servers
	externalServer := transport.NewExternalServer(svc)
	internalServer := transport.NewInternalServer(registry)

	// Start external server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := externalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start external server: %v", err)
		}
	}()

	// Start internal server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.InternalPort)
		if err := internalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start internal server: %v", err)
		}
	}()

	log.Printf("Ingestion API started on port %d", cfg.HTTPPort)
	log.Printf("Buffer API started on port %d", cfg.InternalPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down dvr-service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownServer(shutdownCtx, externalServer, "external")
	shutdownServer(shutdownCtx, internalServer, "internal")

	// Drain buffered sessions so nothing accumulated is lost to the restart.
	registry.Close()

	log.Println("dvr-service stopped")
}

func shutdownServer(ctx context.Context, e *echo.Echo, name string) {
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown %s server gracefully: %v", name, err)
	}
}
