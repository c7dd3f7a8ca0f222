package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/OverseedAI/tubeplanner/internal/auth"
	"github.com/OverseedAI/tubeplanner/internal/config"
	"github.com/OverseedAI/tubeplanner/internal/crypto"
	"github.com/OverseedAI/tubeplanner/internal/database"
	delivery "github.com/OverseedAI/tubeplanner/internal/delivery/http"
	"github.com/OverseedAI/tubeplanner/internal/delivery/http/middleware"
	"github.com/OverseedAI/tubeplanner/internal/repository"
	"github.com/OverseedAI/tubeplanner/internal/service"
	"github.com/OverseedAI/tubeplanner/pkg/ai"
)

func main() {
	// Загрузка переменных окружения
	if err := godotenv.Load(); err != nil {
		// Логируем как предупреждение, т.к. в production .env может не использоваться
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	// Инициализация логгера
	initLogger()

	// Парсинг флагов командной строки
	env := flag.String("env", "development", "Environment: development, production")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load(*env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	// Инициализация соединения с БД
	log.Info().Msg("connecting to database...")
	dbPool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer dbPool.Close()

	sqlxDB, err := database.NewSqlxDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sqlx database")
	}
	defer sqlxDB.Close()
	log.Info().Msg("database connections established")

	// Применяем миграции
	log.Info().Msg("applying database migrations...")
	if err := database.RunMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Криптохранилище ключей провайдера. Отсутствие мастер-ключа фатально:
	// это ошибка конфигурации, а не пользовательская.
	vault, err := crypto.NewVault(cfg.Vault.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize credential vault")
	}

	// Инициализация AI клиента
	aiClient, err := ai.New(ai.Config{
		ClientType:  cfg.AI.ClientType,
		APIKey:      cfg.AI.APIKey,
		ModelName:   cfg.AI.Model,
		BaseURL:     cfg.AI.BaseURL,
		Timeout:     time.Duration(cfg.AI.Timeout) * time.Second,
		MaxAttempts: cfg.AI.MaxAttempts,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize AI client")
	}

	// Инициализация репозиториев
	planRepo := repository.NewPlanRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool, sqlxDB)

	// Инициализация сервисов
	planService := service.NewPlanService(planRepo, log.Logger)
	userService := service.NewUserService(userRepo, vault, log.Logger)
	generationService := service.NewGenerationService(planRepo, userRepo, vault, aiClient, log.Logger)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenTTL)*time.Minute)

	// Инициализация HTTP обработчиков
	handlers := delivery.New(planService, userService, generationService, cfg.Server.LegacyStreamFraming)
	authHandlers := auth.NewHandler(authService)

	// Настройка маршрутов
	router := mux.NewRouter()

	// Метрики и health check не требуют аутентификации
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	// Маршруты аутентификации
	router.HandleFunc("/api/auth/register", authHandlers.Register).Methods("POST")
	router.HandleFunc("/api/auth/login", authHandlers.Login).Methods("POST")

	// Создаем подмаршрутизатор для API, требующего аутентификации
	apiRouter := router.PathPrefix(cfg.Server.BasePath).Subrouter()
	apiRouter.Use(middleware.RequestLogger)
	apiRouter.Use(middleware.JWT([]byte(cfg.JWT.Secret)))
	handlers.RegisterRoutes(apiRouter)

	// Настройка CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{delivery.PlanIDHeader},
		AllowCredentials: true,
	})

	// Создание HTTP сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	// Запуск сервера в горутине
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Настройка плавного завершения
	gracefulShutdown(server)
}

// initLogger настраивает глобальный логгер
func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Caller().Logger()

	// В режиме разработки используем более читаемый вывод
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	}

	// Настройка уровня логирования
	logLevel := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logLevel = lvl
	}
	zerolog.SetGlobalLevel(logLevel)
}

// gracefulShutdown обеспечивает плавное завершение работы сервера
func gracefulShutdown(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("server stopped gracefully")
}
