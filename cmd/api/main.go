package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/api"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/api/handler"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/api/middleware"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/application"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/config"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/transaction"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/infrastructure/memory"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/infrastructure/messaging"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/infrastructure/redis"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/lock"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/logger"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/metrics"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/worker"
)

func main() {
	cfg := config.Load()

	logger.Set(logger.NewLogger(cfg.Env))
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("サーバーの起動に失敗しました", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.Init()
	checks := map[string]handler.Check{}

	// 座席ストア
	var (
		seatRepo  seat.Repository
		txManager transaction.Manager
	)
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		store := memory.NewSeatStore()
		seatRepo, txManager = store, store
		logger.Warn("インメモリの座席ストアを使用します（再起動で座席データは失われます）")
	case config.StoragePostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		seatRepo, txManager = postgres.NewSeatRepository(db), postgres.NewTxManager(db)
		checks["database"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
		logger.Info("PostgreSQL に接続しました", zap.String("driver", cfg.Database.Driver), zap.String("host", cfg.Database.Host))
	default:
		return fmt.Errorf("未対応のストレージバックエンドです: %s", cfg.Storage.Backend)
	}

	// Redis（分散ロックと空席集計のキャッシュ）
	var (
		redisClient *redis.Client
		cache       application.AvailabilityCache
	)
	if cfg.Redis.Enabled {
		rc, err := redisinfra.NewClient(&cfg.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
		redisClient = rc
		cache = redisinfra.NewSeatCache(rc)
		checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, rc) }
		logger.Info("Redis に接続しました", zap.String("addr", cfg.Redis.Addr()))
	}

	// 座席ロック
	var locker lock.Locker
	switch cfg.Lock.Backend {
	case config.LockMemory:
		locker = lock.NewMemoryLocker()
	case config.LockRedis:
		locker = redisinfra.NewLockManager(redisClient,
			redisinfra.WithTTL(cfg.Lock.TTL),
			redisinfra.WithRetryDelay(cfg.Lock.RetryDelay),
			redisinfra.WithWaitTimeout(cfg.Lock.WaitTimeout),
		)
	default:
		return fmt.Errorf("未対応のロックバックエンドです: %s", cfg.Lock.Backend)
	}
	coordinator := lock.NewCoordinator(locker, lock.WithObserver(m.LockObserver(cfg.Lock.Backend)))

	// 状態変更の通知
	publisher, err := messaging.New(&cfg.Messaging)
	if err != nil {
		return err
	}

	// サービス
	seatService := application.NewSeatService(seatRepo, cache, cfg.Seating.CacheTTL, m)
	reservationService := application.NewReservationService(txManager, seatRepo, coordinator,
		application.WithHoldTTL(cfg.Seating.HoldTTL),
		application.WithReaperChunk(cfg.Seating.ReaperChunk),
		application.WithStrictRelease(cfg.Seating.StrictRelease),
		application.WithPublisher(publisher),
		application.WithCache(cache),
		application.WithMetrics(m),
	)

	// Echo セットアップ
	e := newEcho(cfg, m, handler.Handlers{
		Health:      handler.NewHealthHandler(checks),
		Seat:        handler.NewSeatHandler(seatService),
		Reservation: handler.NewReservationHandler(reservationService),
	})

	// 期限切れ仮押さえの回収
	reaper := worker.NewExpiredReservationReaper(reservationService, cfg.Seating.ReaperInterval)
	go reaper.Start(ctx)

	// サーバー起動
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("lock", cfg.Lock.Backend),
			zap.String("messaging", cfg.Messaging.Backend),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// シグナル待機
	select {
	case <-ctx.Done():
		logger.Info("サーバーをシャットダウンしています...")
	case err = <-serverErr:
		logger.Error("サーバーが停止しました", zap.Error(err))
	}

	// Graceful shutdown: HTTP → 回収ワーカー → 通知の順に止める
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if serr := e.Shutdown(shutdownCtx); serr != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(serr))
	}
	reaper.Stop()
	if cerr := publisher.Close(); cerr != nil {
		logger.Warn("通知の終了処理に失敗", zap.Error(cerr))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return err
}

func newEcho(cfg *config.Config, m *metrics.Metrics, h handler.Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))
	handler.RegisterRoutes(e, h)
	return e
}
