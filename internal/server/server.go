package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/skinsense-ai/backend/config"
	"github.com/skinsense-ai/backend/internal/api"
	"github.com/skinsense-ai/backend/internal/database"
	"github.com/skinsense-ai/backend/internal/middleware"
	"github.com/skinsense-ai/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
	cfg    *config.Config
}

// New builds the full application: database, Redis, S3, services, routes.
func New(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		log.Printf("Warning: Redis unavailable, continuing without rate limiting and context caching: %v", err)
		redisClient = nil
	}

	llmService, err := service.NewLLMService()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	s3Config, err := config.NewS3Config(ctx)
	if err != nil {
		return nil, err
	}
	if err := s3Config.SetupBucketPolicy(ctx); err != nil {
		log.Printf("Warning: failed to apply S3 bucket policy: %v", err)
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	memoryService := service.NewMemoryService(db)
	chatService := service.NewChatService(db, llmService, memoryService, redisClient)
	assessmentService := service.NewAssessmentService(db, memoryService)
	imageService := service.NewImageService(s3Config)
	analysisService := service.NewAnalysisService(db, llmService, memoryService, imageService, chatService)

	router := gin.Default()
	router.Use(middleware.CORS())

	api.RegisterRoutes(router, api.Services{
		DB:         db,
		Auth:       authService,
		Memory:     memoryService,
		Chat:       chatService,
		Assessment: assessmentService,
		Analysis:   analysisService,
		Redis:      redisClient,
	})

	return &Server{
		router: router,
		db:     db,
		cfg:    cfg,
	}, nil
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    s.cfg.ServerHost + ":" + s.cfg.ServerPort,
		Handler: s.router,
	}

	log.Printf("Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
