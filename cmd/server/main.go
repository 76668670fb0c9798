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

	"github.com/satvision/eurosat-api/internal/api"
	"github.com/satvision/eurosat-api/internal/classify"
	"github.com/satvision/eurosat-api/internal/config"
	"github.com/satvision/eurosat-api/internal/core"
	"github.com/satvision/eurosat-api/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL, config.AppConfig.BootstrapDefaultAdmin)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()
	if config.AppConfig.BootstrapDefaultAdmin {
		log.Println("Default admin account is enabled; change or disable it outside development")
	}

	// Pick the classifier backend: a trained ONNX model when configured,
	// otherwise the simulated placeholder.
	var classifier classify.Classifier
	if config.AppConfig.ModelPath != "" {
		onnxClassifier, err := classify.NewONNXClassifier(config.AppConfig.ModelPath)
		if err != nil {
			log.Fatalf("Failed to load model from %s: %v", config.AppConfig.ModelPath, err)
		}
		defer onnxClassifier.Close()
		classifier = onnxClassifier
		log.Printf("Loaded ONNX model from %s", config.AppConfig.ModelPath)
	} else {
		classifier = classify.NewSimulated()
		log.Println("MODEL_PATH not set, using the simulated classifier")
	}

	// Initialize session service
	classifyTimeout := time.Duration(config.AppConfig.ClassifyTimeoutSeconds) * time.Second
	sessionService := core.NewSessionService(dbStore, classifier, classifyTimeout)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(sessionService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // model inference can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
