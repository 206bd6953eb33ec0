package main

import (
	"context"

	"healthworks/api_assistant/internal/chat"
	"healthworks/api_assistant/internal/config"
	"healthworks/api_assistant/internal/patientdata"
	"healthworks/api_assistant/internal/ratelimit"
	"healthworks/api_assistant/internal/reminders"
	"healthworks/api_assistant/pkg/auth"
	"healthworks/api_assistant/pkg/database"
	"healthworks/api_assistant/pkg/llm"
	"healthworks/api_assistant/pkg/logging"
	"healthworks/api_assistant/pkg/monitoring"
	"healthworks/api_assistant/pkg/server"

	pkgconfig "healthworks/api_assistant/pkg/config"
)

const serviceName = "florence"

func main() {
	logger := logging.NewLogger()
	pkgconfig.LoadEnv(logger)
	logger.SetLevel(pkgconfig.GetLogLevel())

	cfg := config.Load()

	db := database.MustConnect(database.DefaultConfig(cfg.DatabaseURL), logger)
	defer db.Close()

	provider, err := llm.NewProvider(llm.Config{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		APIURL:      cfg.LLMAPIURL,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure LLM provider")
	}

	sessions, err := auth.NewSessionValidator(auth.Config{
		Provider:   cfg.AuthProvider,
		ProjectURL: cfg.SupabaseURL,
		AnonKey:    cfg.SupabaseAnonKey,
		JWTSecret:  cfg.JWTSecret,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure session validation")
	}

	messageStore := chat.NewMessageStore(db)
	patientStore := patientdata.NewStore(db)
	executor := chat.NewExecutor(patientStore, logger)
	gateway := chat.NewModelGateway(provider)
	orchestrator := chat.NewOrchestrator(gateway, executor, logger, cfg.MaxToolRounds)
	history := chat.NewHistoryLoader(messageStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var limiter chat.RateLimiter
	if cfg.ChatRequestsPerHour > 0 {
		rl := ratelimit.New(cfg.ChatRequestsPerHour, 0)
		go rl.StartCleanup(ctx)
		limiter = rl
	}

	handler := chat.NewHandler(chat.HandlerConfig{
		Store:      messageStore,
		History:    history,
		Runner:     orchestrator,
		Sessions:   sessions,
		Limiter:    limiter,
		Logger:     logger,
		Production: cfg.IsProduction(),
		MaxHistory: cfg.MaxHistoryTurns,
	})

	dispatcher := reminders.NewDispatcher(db, messageStore, logger, cfg.ReminderInterval)
	if cfg.ReminderDispatchEnabled {
		go dispatcher.Start(ctx)
	}

	healthChecker := monitoring.NewHealthChecker(serviceName, cfg.Version)
	healthChecker.RegisterCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.RegisterCheck("configuration", monitoring.ConfigurationHealthCheck(cfg.MissingSettings()))

	metricsCollector := monitoring.NewMetricsCollector(serviceName, cfg.Version, pkgconfig.GetEnv("GIT_COMMIT", "unknown"))

	router := server.SetupServiceRouter(logger, serviceName, healthChecker, metricsCollector)
	handler.RegisterRoutes(router)
	router.POST("/reminders/run", dispatcher.Handler())

	logger.WithFields(map[string]interface{}{
		"provider": provider.Name(),
		"model":    cfg.LLMModel,
		"port":     cfg.Port,
	}).Info("Starting assistant service")

	if err := server.Start(router, server.DefaultConfig(cfg.Port), logger); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
}
