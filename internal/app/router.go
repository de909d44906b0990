package app

import (
	"time"

	"marginalia/internal/config"
	"marginalia/internal/middleware"
	"marginalia/internal/model"
	"marginalia/internal/repository"
	"marginalia/internal/service"
	"marginalia/internal/util"
	"marginalia/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Services groups the service layer for route registration. Tests inject
// fakes here.
type Services struct {
	Comments service.CommentService
	Posts    service.PostService
}

// NewRouter bootstraps the full application: database, cache, broker,
// websocket hub and all routes.
func NewRouter(cfg *config.Config, log zerolog.Logger) *gin.Engine {
	db, err := initDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&model.Author{}, &model.Category{}, &model.Post{}, &model.Comment{}); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient := initRedisWithRetry(cfg, log)
	rabbitMQ := initRabbitMQWithRetry(cfg, log)

	commentRepo := repository.NewCommentRepository(db, redisClient)
	postRepo := repository.NewPostRepository(db, redisClient)

	var events service.EventPublisher
	if rabbitMQ != nil {
		events, err = service.NewRabbitEventPublisher(rabbitMQ)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up moderation event publisher")
			events = nil
		}
	}

	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	if rabbitMQ != nil {
		worker := service.NewModerationWorker(rabbitMQ, wsHub, log)
		if err := worker.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start moderation worker")
		}
	}

	svcs := &Services{
		Comments: service.NewCommentService(commentRepo, events, log),
		Posts:    service.NewPostService(postRepo, commentRepo, log),
	}

	return NewRouterWithServices(cfg, log, svcs, wsHub)
}

// NewRouterWithServices registers middleware and routes on top of an already
// constructed service layer.
func NewRouterWithServices(cfg *config.Config, log zerolog.Logger, svcs *Services, wsHub *websocket.Hub) *gin.Engine {
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(corsMiddleware(cfg.ClientURL))

	if cfg.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
		log.Info().
			Int("rps", cfg.RateLimitRPS).
			Int("burst", cfg.RateLimitBurst).
			Msg("rate limiting enabled")
	}

	authHandler := NewAuthHandler(cfg)
	commentHandler := NewCommentHandler(svcs.Comments)
	postHandler := NewPostHandler(svcs.Posts)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		comments := api.Group("/comments")
		{
			// Public routes
			comments.GET("", commentHandler.ListComments)
			comments.POST("", commentHandler.SubmitComment)

			// Moderator routes
			comments.Use(authHandler.AuthMiddleware())
			{
				comments.GET("/pending", commentHandler.PendingComments)
				comments.PUT("", commentHandler.ModerateComment)
				comments.DELETE("", commentHandler.DeleteComment)
			}
		}

		posts := api.Group("/posts")
		{
			posts.GET("", postHandler.ListPosts)
			posts.GET("/:slug", postHandler.GetPost)
		}

		api.GET("/categories", postHandler.ListCategories)
	}

	// Moderator dashboard live feed
	if wsHub != nil {
		r.GET("/ws", func(c *gin.Context) {
			websocket.ServeWS(wsHub, cfg.JWTSecret).ServeHTTP(c.Writer, c.Request)
		})
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = "host=" + cfg.PostgresHost +
			" port=" + cfg.PostgresPort +
			" user=" + cfg.PostgresUser +
			" password=" + cfg.PostgresPassword +
			" dbname=" + cfg.PostgresDB +
			" sslmode=" + cfg.PostgresSSLMode
	}

	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// initRedisWithRetry attempts to connect to Redis with exponential backoff.
// Cache absence is not fatal; the repositories degrade to database-only.
func initRedisWithRetry(cfg *config.Config, log zerolog.Logger) *util.RedisClient {
	maxRetries := 5
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		redisClient, err := util.NewRedisClient(cfg)
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("Redis connected")
			return redisClient
		}

		if attempt < maxRetries {
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("Redis connection failed")
			time.Sleep(delay)
		} else {
			log.Warn().Err(err).Msg("Redis unavailable, caching disabled")
		}
	}

	return nil
}

// initRabbitMQWithRetry attempts to connect to RabbitMQ with exponential
// backoff. Broker absence is not fatal; moderation events are skipped.
func initRabbitMQWithRetry(cfg *config.Config, log zerolog.Logger) *util.RabbitMQClient {
	if cfg.RabbitMQURL == "" {
		log.Info().Msg("RabbitMQ not configured, moderation events disabled")
		return nil
	}

	maxRetries := 5
	initialDelay := 2 * time.Second
	maxDelay := 30 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		rabbitMQ, err := util.NewRabbitMQClient(cfg)
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("RabbitMQ connected")
			return rabbitMQ
		}

		if attempt < maxRetries {
			delay := initialDelay * time.Duration(1<<uint(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("RabbitMQ connection failed")
			time.Sleep(delay)
		} else {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, moderation events disabled")
		}
	}

	return nil
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	allowedOrigins := []string{
		clientURL,
		"http://localhost:3000",
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
