package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bioattend/internal/attendance"
	"bioattend/internal/avatar"
	"bioattend/internal/biometric"
	"bioattend/internal/config"
	"bioattend/internal/course"
	"bioattend/internal/domain"
	"bioattend/internal/handler"
	"bioattend/internal/httpmiddleware"
	"bioattend/internal/identity"
	"bioattend/internal/mailer"
	"bioattend/internal/queue"
	"bioattend/internal/reset"
	"bioattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "bioattend:events")
	}

	hasher := identity.BcryptHasher{}
	users := identity.NewService(identity.NewPostgresRepo(db.Client), hasher, domain.SystemClock)
	userRepo := identity.NewPostgresRepo(db.Client)
	bio := biometric.NewService(biometric.NewPostgresRepo(db.Client), userRepo, domain.SystemClock)
	courses := course.NewService(course.NewPostgresRepo(db.Client), userRepo, domain.SystemClock)

	attRepo := attendance.NewPostgresRepo(db.Client)
	sessions := attendance.NewSessionService(attRepo, userRepo, courses, domain.SystemClock,
		func(ctx context.Context, sessionID int64) error {
			return q.Publish(ctx, queue.Message{Type: queue.TypeSessionClosed, SessionID: sessionID})
		})
	marks := attendance.NewMarkingService(attRepo, attRepo, userRepo, courses, bio, domain.SystemClock)

	mail := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	resetSvc := reset.NewService(reset.NewPostgresRepo(db.Client), userRepo, hasher, mail,
		domain.SystemClock, cfg.ResetTokenTTL, cfg.FrontendURL)

	var avatars *avatar.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		avatars = avatar.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("cloudinary avatar storage configured")
	} else {
		log.Println("cloudinary not configured, avatar uploads disabled")
	}

	ctx := context.Background()

	// Startup data work: legacy sequence backfill, then optional sample data.
	if n, err := users.BackfillSequences(ctx); err != nil {
		log.Printf("sequence backfill failed: %v", err)
	} else if n > 0 {
		log.Printf("backfilled %d role sequences", n)
	}
	if cfg.SeedSampleData {
		if err := users.SeedDefaults(ctx); err != nil {
			log.Printf("sample data seed failed: %v", err)
		}
	}

	h := handler.New(users, bio, courses, sessions, marks, resetSvc, avatars)
	handler.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, redisClient.Client).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.GET("/user/:id", h.GetUser)
		auth.PUT("/user/:id", h.UpdateUser)
		auth.POST("/user/:id/avatar", h.UploadAvatar)
		auth.POST("/change-password", h.ChangePassword)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
	}

	api := r.Group("/api")
	{
		api.GET("/users", h.ListUsers)

		api.POST("/courses", h.CreateCourse)
		api.GET("/courses", h.ListCourses)
		api.GET("/courses/:id", h.GetCourse)
		api.PUT("/courses/:id", h.UpdateCourse)

		api.POST("/enrollments", h.CreateEnrollment)
		api.DELETE("/enrollments", h.DeleteEnrollment)
		api.GET("/enrollments", h.ListEnrollments)

		api.POST("/sessions", h.OpenSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.PUT("/sessions/:id", h.AdjustSession)
		api.PUT("/sessions/:id/close", h.CloseSession)

		api.POST("/records", h.Mark)
		api.GET("/records", h.ListRecords)
		api.GET("/records/:id", h.GetRecord)
		api.PUT("/records/:id", h.UpdateRecord)

		api.POST("/biometric/enroll", h.EnrollBiometric)
		api.GET("/biometric/:userId", h.GetBiometric)
		api.PUT("/biometric/:userId", h.UpdateBiometric)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
