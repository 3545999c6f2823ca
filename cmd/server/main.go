package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zombar/readassist/internal/agent"
	"github.com/zombar/readassist/internal/api"
	"github.com/zombar/readassist/internal/database"
	"github.com/zombar/readassist/internal/lexicon"
	"github.com/zombar/readassist/internal/ollama"
	"github.com/zombar/readassist/internal/profile"
	"github.com/zombar/readassist/internal/queue"
	"github.com/zombar/readassist/internal/simplifier"
	"github.com/zombar/readassist/pkg/logging"
	"github.com/zombar/readassist/pkg/metrics"
	"github.com/zombar/readassist/pkg/tracing"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("readassist service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("readassist")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	dbPathDefault := getEnv("DB_PATH", "readassist.db")
	ollamaURLDefault := getEnv("OLLAMA_URL", "http://localhost:11434")
	ollamaModelDefault := getEnv("OLLAMA_MODEL", ollama.DefaultModel)
	useOllamaDefault := getEnvBool("USE_OLLAMA", true)
	redisAddrDefault := getEnv("REDIS_ADDR", "")
	runWorkerDefault := getEnvBool("RUN_WORKER", true)

	var (
		port        = flag.String("port", portDefault, "Server port (env: PORT)")
		dbPath      = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		ollamaURL   = flag.String("ollama-url", ollamaURLDefault, "Ollama API URL (env: OLLAMA_URL)")
		ollamaModel = flag.String("ollama-model", ollamaModelDefault, "Ollama model to use (env: OLLAMA_MODEL)")
		useOllama   = flag.Bool("use-ollama", useOllamaDefault, "Enable Ollama for simplification (env: USE_OLLAMA)")
		redisAddr   = flag.String("redis-addr", redisAddrDefault, "Redis address for async processing, empty disables it (env: REDIS_ADDR)")
		runWorker   = flag.Bool("run-worker", runWorkerDefault, "Run the queue worker in this process (env: RUN_WORKER)")
	)
	flag.Parse()

	// Initialize database
	db, err := database.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database metrics
	dbMetrics := metrics.NewDatabaseMetrics("readassist")
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			dbMetrics.UpdateDBStats(db.Conn())
		}
	}()

	// Initialize the LLM client, falling back to rule-based
	// simplification when Ollama is unreachable or disabled.
	var llm simplifier.LLMClient
	if *useOllama {
		ollamaClient, err := ollama.New(*ollamaURL, *ollamaModel)
		if err != nil {
			logger.Warn("failed to initialize Ollama client, falling back to rule-based simplification",
				"error", err,
				"ollama_url", *ollamaURL,
				"ollama_model", *ollamaModel,
			)
		} else {
			logger.Info("Ollama client initialized", "model", *ollamaModel, "url", *ollamaURL)
			llm = ollamaClient
		}
	} else {
		logger.Info("Ollama disabled, using rule-based simplification")
	}

	businessMetrics := metrics.NewBusinessMetrics("readassist")
	profiles := profile.NewStoreWithPersister(db)

	ag := agent.New(agent.Config{
		Lexicon:  lexicon.New(),
		Profiles: profiles,
		LLM:      llm,
		Metrics:  businessMetrics,
		Logger:   logger,
	})

	// Initialize async processing when Redis is configured
	var queueClient *queue.Client
	var worker *queue.Worker
	if *redisAddr != "" {
		queueClient = queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
		defer queueClient.Close()

		if *runWorker {
			worker = queue.NewWorker(queue.WorkerConfig{
				RedisAddr:   *redisAddr,
				Concurrency: 4,
			}, db, ag)
			go func() {
				if err := worker.Start(); err != nil {
					logger.Error("queue worker failed", "error", err)
					os.Exit(1)
				}
			}()
		}
		logger.Info("async processing enabled", "redis_addr", *redisAddr, "worker", *runWorker)
	} else {
		logger.Info("async processing disabled, no Redis address configured")
	}

	// Initialize API handler
	var apiHandler http.Handler
	if queueClient != nil {
		apiHandler = api.NewHandler(db, ag, queueClient)
	} else {
		apiHandler = api.NewHandler(db, ag, nil)
	}

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware("readassist")(apiHandler),
	)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("readassist service starting",
			"port", *port,
			"database", *dbPath,
			"ollama_enabled", llm != nil,
			"ollama_url", *ollamaURL,
			"ollama_model", *ollamaModel,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if worker != nil {
		worker.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
