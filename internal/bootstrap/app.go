// Package bootstrap loads configuration and wires the application
// together: infrastructure, repositories, services, handlers, HTTP server
// and background worker.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/iparthanth/classroom-live/internal/domain"
	httpHandler "github.com/iparthanth/classroom-live/internal/handler/http"
	gormpersistence "github.com/iparthanth/classroom-live/internal/infra/persistence/gorm"
	"github.com/iparthanth/classroom-live/internal/infra/setup"
	redisstate "github.com/iparthanth/classroom-live/internal/infra/state/redis"
	"github.com/iparthanth/classroom-live/internal/middleware"
	"github.com/iparthanth/classroom-live/internal/service"
	"github.com/iparthanth/classroom-live/internal/tasks"
	"github.com/iparthanth/classroom-live/internal/worker"
)

// Config holds everything loaded from the environment.
type Config struct {
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	ServerPort      string
	LogLevel        string
	AppEnv          string
	KeyPrefix       string
	CORSOrigin      string
	PortalAccessURL string // portal endpoint answering room-access checks; empty allows all (development only)
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadConfig reads configuration from the environment, with .env support.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // optional; plain env vars win

	cfg := &Config{
		DBUser:          os.Getenv("MYSQL_USER"),
		DBPassword:      os.Getenv("MYSQL_PASSWORD"),
		DBHost:          os.Getenv("MYSQL_HOST"),
		DBPort:          os.Getenv("MYSQL_PORT"),
		DBName:          os.Getenv("MYSQL_DB"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ServerPort:      os.Getenv("SERVER_PORT"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		AppEnv:          os.Getenv("APP_ENV"),
		KeyPrefix:       os.Getenv("REDIS_KEY_PREFIX"),
		CORSOrigin:      os.Getenv("CORS_ALLOWED_ORIGIN"),
		PortalAccessURL: os.Getenv("PORTAL_ACCESS_URL"),
		RateLimitMax:    120,
		RateLimitWindow: time.Minute,
	}
	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cl:"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// App holds the running application's components.
type App struct {
	Config         *Config
	Log            *logrus.Logger
	DB             *gorm.DB
	RedisClient    *redis.Client
	AsynqClient    *asynq.Client
	WorkerServer   *worker.WorkerServer
	HttpServer     *http.Server
	redisClientOpt asynq.RedisClientOpt
}

// NewApp creates and wires all application components.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Info("Configuration loaded")

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	log.Info("Database initialized")

	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	// Repositories.
	msgRepo := gormpersistence.NewGormMessageRepository(db)
	presenceRepo := gormpersistence.NewGormPresenceRepository(db)
	snapRepo := gormpersistence.NewGormSnapshotRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)
	log.Info("Repositories initialized")

	// Services.
	enqueuer := tasks.NewEnqueuer(asynqClient)
	presenceService := service.NewPresenceService(presenceRepo, stateRepo, enqueuer)
	chatService := service.NewChatService(msgRepo, presenceService)
	wbService := service.NewWhiteboardService(snapRepo, stateRepo, presenceService)
	log.Info("Services initialized")

	// The portal supplies room-access proof; this core only consumes it.
	accessChecker := newPortalAccessChecker(cfg.PortalAccessURL, log)

	chatHandler := httpHandler.NewChatHandler(chatService, accessChecker)
	wbHandler := httpHandler.NewWhiteboardHandler(wbService, accessChecker)
	log.Info("Handlers initialized")

	workerServer := worker.NewWorkerServer(redisClientOpt, presenceService, log)
	log.Info("Worker server initialized")

	// Router.
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(log))
	router.Use(corsMiddleware(cfg.CORSOrigin))
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api").Use(middleware.Identity(cfg.JWTSecret))
	{
		api.POST("/rooms/:roomId/messages", chatHandler.SendMessage)
		api.GET("/rooms/:roomId/messages", chatHandler.FetchMessages)
		api.GET("/rooms/:roomId/online", chatHandler.ListOnline)
		api.POST("/rooms/:roomId/whiteboard", wbHandler.SaveWhiteboard)
		api.GET("/rooms/:roomId/whiteboard", wbHandler.LoadWhiteboard)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		WorkerServer:   workerServer,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}, nil
}

// Start launches the worker, the periodic scheduler and the HTTP server.
func (a *App) Start() {
	go a.WorkerServer.Start()
	a.Log.Info("Worker server routine started")

	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// registerPeriodicTasks keeps a low-frequency purge running even when no
// touch acquires the throttle slot (e.g. an idle deployment with stale
// rows left behind).
func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	task, err := tasks.NewPresencePurgeTask()
	if err != nil {
		a.Log.Errorf("Failed to create presence purge task payload: %v", err)
		return
	}

	schedule := "@every 1m"
	entryID, err := scheduler.Register(schedule, task, asynq.Queue("low"))
	if err != nil {
		a.Log.Errorf("Could not register periodic presence purge task: %v", err)
	} else {
		a.Log.Infof("Periodic presence purge registered with schedule '%s' (EntryID: %s)", schedule, entryID)
	}

	go func() {
		a.Log.Info("Asynq scheduler starting...")
		if err := scheduler.Run(); err != nil {
			if !errors.Is(err, asynq.ErrServerClosed) {
				a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
			} else {
				a.Log.Info("Asynq scheduler stopped.")
			}
		}
	}()
}

// Shutdown stops the HTTP server, worker and connections gracefully.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("HTTP server forced to shutdown: %v", err)
	}

	a.WorkerServer.Shutdown()

	if err := a.AsynqClient.Close(); err != nil {
		a.Log.Errorf("Failed to close asynq client: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Log.Errorf("Failed to close redis client: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Failed to close database: %v", err)
		}
	}
	a.Log.Info("Application shut down complete.")
}

// loggerMiddleware logs each request with structured fields.
func loggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request handled")
	}
}

// corsMiddleware allows the portal frontend origin.
func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "http://localhost:3000"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-Token")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// newPortalAccessChecker builds the room-access capability. With a portal
// URL configured it asks the portal per request; without one it allows
// everything, which is acceptable only behind a development portal.
func newPortalAccessChecker(portalURL string, log *logrus.Logger) domain.AccessChecker {
	if portalURL == "" {
		log.Warn("PORTAL_ACCESS_URL not set; allowing all room access (development mode)")
		return domain.AccessCheckerFunc(func(ctx context.Context, userID, roomID uint) (bool, error) {
			return true, nil
		})
	}

	client := &http.Client{Timeout: 5 * time.Second}
	return domain.AccessCheckerFunc(func(ctx context.Context, userID, roomID uint) (bool, error) {
		q := url.Values{}
		q.Set("user_id", strconv.FormatUint(uint64(userID), 10))
		q.Set("course_id", strconv.FormatUint(uint64(roomID), 10))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, portalURL+"?"+q.Encode(), nil)
		if err != nil {
			return false, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("portal access check returned status %d", resp.StatusCode)
		}
		var body struct {
			Allowed bool `json:"allowed"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, err
		}
		return body.Allowed, nil
	})
}
