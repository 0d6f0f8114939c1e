package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/finsight-labs/finsight/internal/advice"
	"github.com/finsight-labs/finsight/internal/api/handlers"
	"github.com/finsight-labs/finsight/internal/api/middleware"
	"github.com/finsight-labs/finsight/internal/categorize"
	"github.com/finsight-labs/finsight/internal/config"
	"github.com/finsight-labs/finsight/internal/inference"
	infraBQ "github.com/finsight-labs/finsight/internal/infra/bigquery"
	"github.com/finsight-labs/finsight/internal/logger"
	"github.com/finsight-labs/finsight/internal/receipt"
	"github.com/finsight-labs/finsight/internal/storage"
)

func main() {
	log := logger.New()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Repositories
	txRepo, err := infraBQ.NewBigQueryTransactionRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create transaction repository")
	}
	defer txRepo.Close()

	profileRepo, err := infraBQ.NewBigQueryProfileRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create profile repository")
	}
	defer profileRepo.Close()

	// Inference and image fetching
	gemini, err := inference.NewGeminiService(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create inference service")
	}

	images, err := storage.NewImageStore(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}
	defer images.Close()

	// Domain components
	extractor := receipt.NewExtractor(gemini, log)
	engine := categorize.NewEngine(gemini, log)
	advisor := advice.NewAdvisor(gemini, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(profileRepo, log)
	transactionsHandler := handlers.NewTransactionsHandler(txRepo, log)
	aiHandler := handlers.NewAIHandler(txRepo, profileRepo, extractor, engine, advisor, images, log)
	telegramHandler := handlers.NewTelegramHandler(txRepo, profileRepo, log)

	// Router
	mux := http.NewServeMux()

	// Auth endpoints
	mux.HandleFunc("/api/auth/signup", post(authHandler.Signup))
	mux.HandleFunc("/api/auth/login", post(authHandler.Login))
	mux.HandleFunc("/api/auth/logout", post(authHandler.Logout))
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			authHandler.Me(w, r)
		case http.MethodPut:
			authHandler.UpdateMe(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.GetTransaction(w, r, id)
		case http.MethodPut:
			transactionsHandler.UpdateTransaction(w, r, id)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// AI endpoints
	mux.HandleFunc("/api/ai/analyze-receipt", post(aiHandler.AnalyzeReceipt))
	mux.HandleFunc("/api/ai/categorize", post(aiHandler.Categorize))
	mux.HandleFunc("/api/ai/spending-analysis", get(aiHandler.SpendingAnalysis))
	mux.HandleFunc("/api/ai/process-receipt", post(aiHandler.ProcessReceipt))
	mux.HandleFunc("/api/ai/get-tips", post(aiHandler.GetTips))
	mux.HandleFunc("/api/ai/chat", post(aiHandler.Chat))
	mux.HandleFunc("/api/ai/health-report", get(aiHandler.HealthReport))

	// Telegram endpoints
	mux.HandleFunc("/api/telegram/verify", get(telegramHandler.Verify))
	mux.HandleFunc("/api/telegram/connect", post(telegramHandler.Connect))
	mux.HandleFunc("/api/telegram/disconnect", post(telegramHandler.Disconnect))
	mux.HandleFunc("/api/telegram/webhook", post(telegramHandler.Webhook))

	// Liveness probe
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(cfg.FrontendURL)(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
	log.Info().Msg("Server stopped")
}

func get(h http.HandlerFunc) http.HandlerFunc {
	return methodOnly(http.MethodGet, h)
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return methodOnly(http.MethodPost, h)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
