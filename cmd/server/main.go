// Command server starts the mock interview backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/codesage-ai/interview-server/internal/adapter/ai"
	aistub "github.com/codesage-ai/interview-server/internal/adapter/ai/stub"
	"github.com/codesage-ai/interview-server/internal/adapter/auth"
	httpserver "github.com/codesage-ai/interview-server/internal/adapter/httpserver"
	"github.com/codesage-ai/interview-server/internal/adapter/observability"
	"github.com/codesage-ai/interview-server/internal/adapter/queue/redpanda"
	"github.com/codesage-ai/interview-server/internal/adapter/repo/postgres"
	"github.com/codesage-ai/interview-server/internal/adapter/repo/redisstore"
	"github.com/codesage-ai/interview-server/internal/adapter/textextract"
	"github.com/codesage-ai/interview-server/internal/adapter/transcribe"
	trstub "github.com/codesage-ai/interview-server/internal/adapter/transcribe/stub"
	"github.com/codesage-ai/interview-server/internal/adapter/ws"
	"github.com/codesage-ai/interview-server/internal/app"
	"github.com/codesage-ai/interview-server/internal/config"
	"github.com/codesage-ai/interview-server/internal/domain"
	"github.com/codesage-ai/interview-server/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = redisClient.Close() }()

	sessionRepo := postgres.NewSessionRepo(pool)
	resumeStore := redisstore.New(redisClient, cfg.ResumeTTL)

	// The completion event stream is optional; without brokers the
	// coordinator simply skips publishing.
	var publisher domain.EventPublisher
	var producer *redpanda.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = redpanda.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			slog.Error("redpanda producer connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { producer.Close() }()
		publisher = producer
	}

	var aiClient domain.AIClient
	if cfg.LLMEnabled() {
		aiClient = ai.New(cfg)
	} else {
		slog.Warn("no LLM API key configured, using deterministic stub replies")
		aiClient = aistub.New()
	}

	var transcriber domain.Transcriber
	if cfg.TranscribeBaseURL != "" {
		transcriber = transcribe.New(cfg.TranscribeBaseURL, cfg.LLMAPIKey, cfg.TranscribeModel, cfg.LLMTimeout)
	} else {
		slog.Warn("no transcription backend configured, using stub transcripts")
		transcriber = trstub.New()
	}

	conversation := usecase.NewConversationService(aiClient, cfg.QuestionCount, sessionRepo)
	technical := usecase.NewTechnicalService(
		usecase.NewQuestionService(aiClient, cfg.QuestionCount, cfg.QuestionPacingDelay),
		usecase.NewCodeEvaluator(aiClient),
		usecase.NewHintService(aiClient),
		sessionRepo,
	)
	enricher := usecase.NewEnricher(aiClient, cfg.LLMModel)
	coordinator := usecase.NewCompletionCoordinator(sessionRepo, enricher, publisher)

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTAudience)

	hub := ws.NewHub()
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go hub.RunCleanup(janitorCtx, coordinator, cfg.SessionMaxAge, cfg.SessionCleanupInterval)

	wsHandler := ws.NewHandler(hub, verifier, conversation, technical, coordinator,
		sessionRepo, resumeStore, transcriber, app.ParseOrigins(cfg.CORSAllowOrigins))

	dbCheck := func(ctx context.Context) error { return pool.Ping(ctx) }
	redisCheck := func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	srv := httpserver.NewServer(cfg, sessionRepo, resumeStore, textextract.New(), dbCheck, redisCheck)

	handler := app.BuildRouter(cfg, srv, wsHandler, verifier)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
