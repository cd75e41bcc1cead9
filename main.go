package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adamspd/mcqtest/catalog"
	"github.com/adamspd/mcqtest/config"
	"github.com/adamspd/mcqtest/db"
	"github.com/adamspd/mcqtest/export"
	"github.com/adamspd/mcqtest/handlers"
	"github.com/adamspd/mcqtest/history"
	"github.com/adamspd/mcqtest/metrics"
	"github.com/adamspd/mcqtest/quiz"
	"github.com/adamspd/mcqtest/utils"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] Invalid log level %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	defer utils.SyncLogger()

	utils.LogStartup("MCQ test runner starting...")
	utils.LogStartup("Listen address: %s", cfg.ListenAddr)
	utils.LogStartup("Bank header policy: %s", cfg.BankHeader)

	// Initialize storage
	var (
		store    history.KeyValueStore
		database *db.DB
	)
	if cfg.DBPath == "" {
		utils.LogWarn("DB_PATH is empty, history and preferences will not survive a restart")
		store = db.NewMemoryStore()
	} else {
		database, err = db.InitDB(cfg.DBPath)
		if err != nil {
			utils.LogError("Failed to initialize database: %v", err)
			os.Exit(1)
		}
		store = database
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		utils.LogWarn("No subject catalog loaded from %s: %v", cfg.CatalogPath, err)
		cat = nil
	} else {
		utils.LogStartup("Catalog loaded with %d subjects", len(cat.Subjects))
	}

	m := metrics.New()
	svc := quiz.NewService(quiz.Options{
		Store:        store,
		Catalog:      cat,
		Header:       cfg.BankHeader,
		Metrics:      m,
		TickInterval: cfg.TickInterval,
		PDF:          export.PDFOptions{FontPath: cfg.PDFFont},
	})

	// Setup API routes
	utils.LogStartup("Setting up API routes...")
	router := handlers.NewRouter(svc, m, cfg.CORSOrigins)

	// Create server with timeouts
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		utils.LogShutdown("Received shutdown signal, stopping server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			utils.LogError("Error shutting down server: %v", err)
		}
	}()

	utils.LogStartup("Server ready to accept connections at http://%s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.LogError("Server failed to start: %v", err)
		os.Exit(1)
	}

	svc.Close()
	if database != nil {
		if err := database.Close(); err != nil {
			utils.LogError("Error closing database: %v", err)
		} else {
			utils.LogShutdown("Database connection closed successfully")
		}
	}
	utils.LogShutdown("Shutdown complete")
}
