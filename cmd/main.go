package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/engine"
	"github.com/shenikar/incident_correlation_system/internal/escalation"
	v1 "github.com/shenikar/incident_correlation_system/internal/handler/http/v1"
	"github.com/shenikar/incident_correlation_system/internal/repository"
	"github.com/shenikar/incident_correlation_system/internal/scheduler"
	"github.com/shenikar/incident_correlation_system/internal/scorer"
	"github.com/shenikar/incident_correlation_system/internal/scorer/semantic"
	"github.com/shenikar/incident_correlation_system/internal/service"
	"github.com/shenikar/incident_correlation_system/pkg/logger"
	"github.com/shenikar/incident_correlation_system/pkg/postgres"
	redisclient "github.com/shenikar/incident_correlation_system/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/incident_correlation_system/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Incident Correlation System API
// @version 1.0
// @description Service that correlates structured emergency reports into incidents.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Инициализация издателя и воркера эскалаций
	escalationPublisher := escalation.NewRedisPublisher(redisClient)
	escalationWorker := escalation.NewWorker(redisClient, log, cfg)
	escalationWorker.Start(ctx)

	// Инициализация хранилища
	store := repository.NewStore(dbpool, redisClient, cfg)

	// Инициализация семантического скорера
	semanticScorer, err := semantic.NewOpenAIScorer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize semantic scorer: %v", err)
	}
	pairScorer := scorer.New(semanticScorer, cfg)

	// Инициализация движка корреляции
	correlationEngine := engine.New(store, store, pairScorer, escalationPublisher, log, cfg)

	// Инициализация и запуск планировщика обработки сообщений
	reportScheduler := scheduler.New(store, correlationEngine, log, cfg)
	reportScheduler.Start(ctx)

	// Инициализация сервисов
	incidentService := service.NewIncidentService(store, correlationEngine, log, cfg)

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	cancel()
	reportScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
