package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fxhook/pkg/logger"
	"fxhook/signal"
	"fxhook/trader"
)

// Server HTTP API服务器
// 只暴露 webhook 入口和健康检查，信号受理后立即返回，执行结果走日志
type Server struct {
	router   *gin.Engine
	parser   *signal.Parser
	executor *trader.Executor
	addr     string
	log      *zap.Logger
}

// NewServer 创建API服务器
func NewServer(parser *signal.Parser, executor *trader.Executor, addr string, debug bool) *Server {
	if !debug {
		// Release模式减少gin自身的日志输出
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(corsMiddleware())

	s := &Server{
		router:   router,
		parser:   parser,
		executor: executor,
		addr:     addr,
		log:      logger.NewModuleLogger("api"),
	}

	s.setupRoutes()

	return s
}

// corsMiddleware CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.Any("/health", s.handleHealth)
	s.router.POST("/webhook", s.handleWebhook)
}

// Run 阻塞运行HTTP服务
func (s *Server) Run() error {
	s.log.Info("🚀 webhook服务已启动", zap.String("addr", s.addr))
	return s.router.Run(s.addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleWebhook 接收交易信号
// 格式错误同步返回400；合法信号受理后立即返回200，实际执行异步进行
func (s *Server) handleWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unable to read request body"})
		return
	}

	sig, err := s.parser.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	id := s.executor.Dispatch(sig)
	s.log.Info("信号已受理",
		zap.String("execution_id", id),
		zap.String("action", string(sig.Action)),
		zap.String("symbol", sig.Symbol))

	c.JSON(http.StatusOK, gin.H{"message": "Signal received"})
}
