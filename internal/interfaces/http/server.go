package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/diarist/server/internal/domain/service"
	"github.com/diarist/server/internal/infrastructure/auth"
	"github.com/diarist/server/internal/interfaces/http/handlers"
	"github.com/diarist/server/pkg/safego"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	metrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	ginmiddleware "github.com/slok/go-http-metrics/middleware/gin"
	"go.uber.org/zap"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *zap.Logger
}

// Config HTTP服务器配置
type Config struct {
	Addr string
	Mode string // debug, release

	// MetricsPath 为空时不暴露 /metrics
	MetricsPath string
	// UploadsDir 本地图片存储目录，为空时不挂载 /uploads
	UploadsDir string
}

// Deps 路由依赖
type Deps struct {
	Resolver      service.IdentityResolver
	Chat          *handlers.ChatHandler
	Conversations *handlers.ConversationHandler
	Journals      *handlers.JournalHandler
	Drafts        *handlers.DraftHandler
	GitHub        *handlers.GitHubHandler
	// ChatWS websocket 聊天，可以为 nil
	ChatWS gin.HandlerFunc

	Registry       *prometheus.Registry
	MetricsHandler http.Handler
}

// NewServer 创建HTTP服务器
func NewServer(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))
	if deps.Registry != nil {
		mdlw := middleware.New(middleware.Config{
			Recorder: metrics.NewRecorder(metrics.Config{Registry: deps.Registry}),
		})
		// 按路由模板打标签，避免 ID 进入 label
		router.Use(func(c *gin.Context) {
			ginmiddleware.Handler(c.FullPath(), mdlw)(c)
		})
	}

	setupRoutes(router, cfg, deps, logger)

	return &Server{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router: router,
		logger: logger,
	}
}

// Handler 返回路由，测试使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动服务器
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	safego.Go(s.logger, "http-listener", func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	})

	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// setupRoutes 设置路由
func setupRoutes(router *gin.Engine, cfg Config, deps Deps, logger *zap.Logger) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	if cfg.MetricsPath != "" && deps.MetricsHandler != nil {
		router.GET(cfg.MetricsPath, gin.WrapH(deps.MetricsHandler))
	}
	if cfg.UploadsDir != "" {
		router.Static("/uploads", cfg.UploadsDir)
	}

	v1 := router.Group("/api/v1")

	// OAuth 回调不带 bearer token，身份从签名的 state 中恢复
	v1.GET("/github/callback", deps.GitHub.Callback)

	authed := v1.Group("", authRequired(deps.Resolver, logger))
	{
		authed.POST("/chat", deps.Chat.Chat)
		if deps.ChatWS != nil {
			authed.GET("/chat/ws", deps.ChatWS)
		}

		authed.GET("/conversations/:id/messages", deps.Conversations.Messages)

		authed.POST("/journals", deps.Journals.Create)
		authed.GET("/journals", deps.Journals.List)
		authed.GET("/journals/:id", deps.Journals.Get)
		authed.PUT("/journals/:id", deps.Journals.Update)
		authed.DELETE("/journals/:id", deps.Journals.Delete)
		authed.POST("/journals/:id/proposals/:messageId/accept", deps.Journals.AcceptProposal)

		authed.POST("/diff", deps.Drafts.Diff)
		authed.POST("/drafts/discard", deps.Drafts.Discard)

		authed.GET("/github/auth", deps.GitHub.Auth)
		authed.GET("/github/status", deps.GitHub.Status)
		authed.POST("/github/disconnect", deps.GitHub.Disconnect)
		authed.GET("/github/commits", deps.GitHub.Commits)
	}
}

// authRequired 解析 bearer token。浏览器跳转和 websocket 无法带 header，允许 access_token 查询参数。
func authRequired(resolver service.IdentityResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("access_token")
		}
		if strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.Debug("Rejected bearer token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// ginLogger Gin日志中间件
func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		// 不记录 query，其中可能带 access_token
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
