package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/lumenclinic/practice-ai-platform/cmd/mainconfig"
	"github.com/lumenclinic/practice-ai-platform/internal/agent"
	"github.com/lumenclinic/practice-ai-platform/internal/analysis"
	"github.com/lumenclinic/practice-ai-platform/internal/api/router"
	"github.com/lumenclinic/practice-ai-platform/internal/archive"
	"github.com/lumenclinic/practice-ai-platform/internal/audit"
	"github.com/lumenclinic/practice-ai-platform/internal/claims"
	appconfig "github.com/lumenclinic/practice-ai-platform/internal/config"
	"github.com/lumenclinic/practice-ai-platform/internal/eligibility"
	"github.com/lumenclinic/practice-ai-platform/internal/llm"
	"github.com/lumenclinic/practice-ai-platform/internal/notify"
	observemetrics "github.com/lumenclinic/practice-ai-platform/internal/observability/metrics"
	"github.com/lumenclinic/practice-ai-platform/internal/records"
	"github.com/lumenclinic/practice-ai-platform/internal/session"
	"github.com/lumenclinic/practice-ai-platform/internal/slots"
	"github.com/lumenclinic/practice-ai-platform/internal/webchat"
	"github.com/lumenclinic/practice-ai-platform/internal/workflow"
	"github.com/lumenclinic/practice-ai-platform/pkg/logging"
)

func main() {
	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting practice-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Generative backend: Bedrock is primary, Gemini (when configured) is the
	// fallback for both plain and streaming completions.
	bedrockClient := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
	var chatLLM llm.LLMClient = bedrockClient
	var streamLLM llm.StreamingLLMClient = bedrockClient
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini client unavailable, continuing with bedrock only", "error", err)
		} else {
			defer geminiClient.Close()
			layered := llm.NewFallbackClient(bedrockClient, geminiClient, logger)
			chatLLM = layered
			streamLLM = layered
		}
	}

	// Session store: Redis when reachable, in-memory otherwise.
	var sessions session.Store
	var idleLister session.IdleLister
	if redisClient := newRedisClient(ctx, cfg, logger); redisClient != nil {
		redisStore := session.NewRedisStore(redisClient, otel.Tracer("practice.session"))
		sessions, idleLister = redisStore, redisStore
		logger.Info("session store: redis", "addr", cfg.RedisAddr)
	} else {
		memStore := session.NewMemoryStore()
		sessions, idleLister = memStore, memStore
		logger.Info("session store: in-memory")
	}

	// Durable audit mirror and practice records share the Postgres instance.
	var durableAudit *audit.Store
	var recordsStore records.Store
	if cfg.DatabaseURL != "" {
		auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer auditDB.Close()
		durableAudit = audit.NewStore(auditDB)
		sessions = audit.NewRecordingStore(sessions, durableAudit, logger)

		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open records pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()
		recordsStore = records.NewRepository(pgPool)
	} else {
		memRecords := records.NewMemoryStore()
		seedDemoRecords(memRecords)
		recordsStore = memRecords
		logger.Info("practice records: in-memory demo data")
	}

	// Expired sessions are archived to S3 when a bucket is configured.
	var archiver session.Archiver
	if cfg.ArchiveBucket != "" {
		archiver = archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger)
	}
	sweeper := session.NewSweeper(sessions, idleLister, archiver,
		cfg.SessionIdleTimeout, cfg.SessionSweepEvery, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	platformMetrics := observemetrics.NewPlatformMetrics(nil)

	// Chat pipeline: keyword classifier first, model classifier behind it.
	classifier := agent.NewLayeredClassifier(
		agent.NewKeywordClassifier(),
		agent.NewLLMClassifier(chatLLM, cfg.BedrockModelID),
	)
	chatRouter := agent.NewRouter(classifier, logger)
	turns := agent.NewService(sessions, chatRouter, logger).WithMetrics(platformMetrics)

	// Inbound turns go through the queue dispatcher when one is configured;
	// the HTTP and websocket handlers submit to it rather than to the service
	// directly.
	var dispatcher *agent.Dispatcher
	switch {
	case cfg.UseMemoryQueue:
		dispatcher = agent.NewDispatcher(turns, agent.NewMemoryQueue(64), logger,
			agent.WithWorkerCount(cfg.WorkerCount))
	case cfg.ChatQueueURL != "":
		dispatcher = agent.NewDispatcher(turns, agent.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ChatQueueURL), logger,
			agent.WithWorkerCount(cfg.WorkerCount))
	}
	frontend := chatFrontend(dispatcher, turns)

	coverage := eligibility.NewStaticCoverageSource()
	seedDemoCoverage(coverage)
	checker := eligibility.NewChecker(coverage, logger)

	slotPool := slots.NewMemoryPool(demoSlots())

	notifier := notify.NewService(
		newEmailSender(cfg, awsCfg, logger),
		notify.NewStubSMSSender(logger),
		notify.Config{PracticeName: cfg.PracticeName, PracticePhone: cfg.PracticePhone},
		logger,
	)

	runner := workflow.NewRunner(checker, slotPool, sessions, notifier, logger).
		WithMetrics(platformMetrics)

	analysisModelID := cfg.AnalysisModelID
	if analysisModelID == "" {
		analysisModelID = cfg.BedrockModelID
	}
	generator := analysis.NewGenerator(recordsStore, streamLLM, analysisModelID, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		ChatHandler:        agent.NewHandler(frontend, logger),
		EligibilityHandler: eligibility.NewHandler(checker, logger),
		SlotsHandler:       slots.NewHandler(slotPool, logger),
		ScheduleHandler:    workflow.NewHandler(runner, sessions, logger),
		AnalysisHandler:    analysis.NewHandler(generator, logger).WithMetrics(platformMetrics),
		ClaimsHandler:      claims.NewHandler(claims.NewAnalyzer(chatLLM, cfg.BedrockModelID, logger), claims.NewTracker(), logger),
		AuditHandler:       audit.NewHandler(sessions, durableAudit, logger),
		WebchatHandler:     webchat.NewHandler(frontend, sessions, logger),
		MetricsHandler:     promhttp.Handler(),

		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimit:      cfg.ChatRateLimit,
		ChatRateBurst:      cfg.ChatRateBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if dispatcher != nil {
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			logger.Error("dispatcher forced to shutdown", "error", err)
		}
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// chatFrontend returns the processor the chat and websocket handlers submit
// turns to: the queue dispatcher when configured, the service otherwise.
func chatFrontend(dispatcher *agent.Dispatcher, direct agent.TurnProcessor) agent.TurnProcessor {
	if dispatcher != nil {
		return dispatcher
	}
	return direct
}

// newRedisClient connects to Redis and verifies the connection. A nil return
// means the caller should fall back to the in-memory session store.
func newRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// newEmailSender picks the configured email provider. A nil return disables
// email delivery; the notify service skips the channel.
func newEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "ses":
		if cfg.SESFromEmail == "" {
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		return nil
	}
}
