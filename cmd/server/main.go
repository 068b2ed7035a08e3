package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chess-arena/chess-backend/internal/api"
	"github.com/chess-arena/chess-backend/internal/config"
	"github.com/chess-arena/chess-backend/internal/game"
	"github.com/chess-arena/chess-backend/internal/repository"
	"github.com/chess-arena/chess-backend/internal/service"
	"github.com/chess-arena/chess-backend/internal/websocket"
	"github.com/chess-arena/chess-backend/pkg/chess"
	"github.com/chess-arena/chess-backend/pkg/distributed"
	jwtutil "github.com/chess-arena/chess-backend/pkg/jwt"
	"github.com/chess-arena/chess-backend/pkg/logger"
	"github.com/chess-arena/chess-backend/pkg/ratelimit"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting Chess Arena Backend",
		"port", cfg.Port,
		"env", cfg.Env,
	)

	// Redis 연결
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Invalid Redis URL", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	cancel()
	logger.Info("Redis connection established")

	// 구성 요소 조립
	queueStore := repository.NewRedisQueueStore(redisClient, cfg.QueueRetention)
	sweepLease := distributed.NewSweepLease(redisClient, "matchmaking:expand:lease", cfg.ExpandInterval)
	matchmakingService := service.NewMatchmakingService(queueStore, cfg.ExpandInterval, sweepLease)
	matchmakingService.Start()
	logger.Info("MatchmakingService started", "expandInterval", cfg.ExpandInterval)

	games := game.NewManager(chess.NewRelayEngine())

	wsHub := websocket.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	jwtManager := jwtutil.NewManager(cfg.JWTSecret, cfg.JWTExpiration)
	redisLimiter := ratelimit.NewRedisLimiter(redisClient, "ratelimit:")

	// 라우터 설정
	router := api.SetupRouter(cfg, api.Deps{
		Matchmaking: matchmakingService,
		Games:       games,
		Hub:         wsHub,
		JWTManager:  jwtManager,
		RedisLimit:  redisLimiter,
	})

	// 서버 설정
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 서버 시작 (고루틴)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	matchmakingService.Stop()

	// 10초 타임아웃으로 종료
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
