package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "gemchat/docs"
	"gemchat/internal/ai"
	"gemchat/internal/config"
	"gemchat/internal/handler"
	"gemchat/internal/pkg/cache"
	"gemchat/internal/pkg/mongodb"
	"gemchat/internal/pkg/storagefactory"
	"gemchat/internal/repository"
	"gemchat/internal/server/middleware"
	"gemchat/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server HTTP 服务器
type Server struct {
	cfg         *config.Config
	engine      *gin.Engine
	mongo       *mongodb.Client
	redis       *cache.RedisCache
	chatService *service.ChatService
}

// New 创建服务器实例，按配置创建模型客户端
// 存储后端连接失败直接返回错误，不降级
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	client, err := ai.NewClient(ctx, &cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("init ai client: %w", err)
	}
	return NewWithProvider(ctx, cfg, client)
}

// NewWithProvider 使用指定的模型提供方创建服务器实例
func NewWithProvider(ctx context.Context, cfg *config.Config, provider ai.Provider) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &Server{
		cfg:    cfg,
		engine: gin.New(),
	}

	repo, err := srv.newRepository(ctx)
	if err != nil {
		srv.closeBackends()
		return nil, err
	}

	srv.chatService = service.NewChatService(repo, provider, ai.NewSessionCache())
	srv.setupRoutes()

	return srv, nil
}

// newRepository 按存储类型创建对话仓库
func (s *Server) newRepository(ctx context.Context) (repository.ConversationRepository, error) {
	switch s.cfg.Storage.Type {
	case config.StorageTypeMongo:
		client, err := mongodb.New(&s.cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		s.mongo = client
		log.Info().Str("database", s.cfg.Mongo.Database).Msg("connected to MongoDB")

		if err := mongodb.EnsureIndexes(ctx, client.Database()); err != nil {
			log.Warn().Err(err).Msg("failed to ensure indexes")
		}
		return repository.NewMongoRepo(client.Database()), nil

	case config.StorageTypeRedis:
		rc, err := cache.NewRedisCache(&s.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.redis = rc
		log.Info().Str("addr", s.cfg.Redis.Addr).Msg("connected to Redis")
		return repository.NewRedisRepo(rc), nil

	default:
		store, err := storagefactory.NewStorage(ctx, &s.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		log.Info().
			Str("storage", store.GetStorageType()).
			Str("location", store.Location(s.cfg.Storage.ChatsFile)).
			Msg("using JSON document storage")
		return repository.NewDocumentRepo(store, s.cfg.Storage.ChatsFile), nil
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger("/health", "/ready"))
	s.engine.Use(middleware.CORS(s.cfg.Server.CORSOrigins))

	// 健康检查
	healthHandler := handler.NewHealthHandler(s.chatService)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	chatHandler := handler.NewChatHandler(s.chatService)
	convHandler := handler.NewConversationHandler(s.chatService)

	api := s.engine.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)

		api.GET("/chats", convHandler.List)
		api.POST("/chats", convHandler.Import)
		api.GET("/chats/:id", convHandler.Get)
		api.PATCH("/chats/:id", convHandler.Update)
		api.DELETE("/chats/:id", convHandler.Delete)
	}
}

// Run 启动服务器，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		s.closeBackends()
		return err
	case err := <-errCh:
		s.closeBackends()
		return err
	}
}

// closeBackends 关闭存储连接
func (s *Server) closeBackends() {
	if s.mongo != nil {
		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
		s.mongo = nil
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
		s.redis = nil
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
