package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chess-arena/chess-backend/internal/api/handlers"
	"github.com/chess-arena/chess-backend/internal/api/middleware"
	"github.com/chess-arena/chess-backend/internal/config"
	"github.com/chess-arena/chess-backend/internal/game"
	"github.com/chess-arena/chess-backend/internal/service"
	"github.com/chess-arena/chess-backend/internal/websocket"
	jwtutil "github.com/chess-arena/chess-backend/pkg/jwt"
	"github.com/chess-arena/chess-backend/pkg/ratelimit"
)

// Deps 라우터가 사용하는 구성 요소 (조립은 main에서)
type Deps struct {
	Matchmaking *service.MatchmakingService
	Games       *game.Manager
	Hub         *websocket.Hub
	JWTManager  *jwtutil.Manager
	RedisLimit  *ratelimit.RedisLimiter
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.GeneralAPIRateLimit())

	// Handler 초기화
	matchmakingHandler := handlers.NewMatchmakingHandler(deps.Matchmaking)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Games)

	auth := middleware.Auth(deps.JWTManager)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint (브라우저 제약으로 token 쿼리 파라미터 인증 허용)
		v1.GET("/ws/:roomId", auth, wsHandler.HandleWebSocket)

		// Matchmaking routes
		matchmaking := v1.Group("/matchmaking")
		matchmaking.Use(auth)
		{
			matchmaking.POST("/join", middleware.MatchmakingRateLimit(deps.RedisLimit), matchmakingHandler.JoinQueue)
			matchmaking.GET("/invites", matchmakingHandler.PendingInvite)
			matchmaking.POST("/invites/:requestId/accept", matchmakingHandler.AcceptInvite)
			matchmaking.DELETE("/:requestId", matchmakingHandler.CancelQueue)
			matchmaking.GET("/:requestId/status", matchmakingHandler.QueueStatus)
		}

		// Match routes
		matches := v1.Group("/matches")
		matches.Use(auth)
		{
			matches.GET("/:id", matchmakingHandler.GetMatch)
		}
	}

	return router
}
