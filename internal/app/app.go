// Package app собирает сервер кофейни: хранилище, хаб живых обновлений,
// источник событий, HTTP и gRPC API, метрики и пробы.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cafe/internal/health"
	"github.com/vladislavdragonenkov/cafe/internal/live"
	"github.com/vladislavdragonenkov/cafe/internal/live/telegram"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
	"github.com/vladislavdragonenkov/cafe/internal/service/orders"
	"github.com/vladislavdragonenkov/cafe/internal/storage/postgres"
	"github.com/vladislavdragonenkov/cafe/internal/transport/grpcapi"
	"github.com/vladislavdragonenkov/cafe/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/cafe/internal/version"
)

// Run запускает сервер и блокируется до отмены ctx или падения одного из серверов.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer deps.close(logger)

	hub := live.NewHub(
		live.WithLogger(logger.WithField("layer", "live")),
		live.WithHeartbeatInterval(cfg.HeartbeatInterval),
		live.WithBufferSize(cfg.SinkBuffer),
		live.WithCloseTimeout(cfg.ShutdownTimeout),
		live.WithMetrics(metrics.NewLiveMetrics()),
	)
	defer hub.Close()

	runCtx, cancelRun := context.WithCancel(ctx)
	var workers sync.WaitGroup
	defer func() {
		cancelRun()
		workers.Wait()
	}()

	workers.Add(1)
	go func() {
		defer workers.Done()
		hub.Run(runCtx)
	}()

	publisher, kafkaSide, err := startNotifications(runCtx, cfg, deps, hub, &workers, logger)
	if err != nil {
		return err
	}
	defer kafkaSide.close(logger)

	serviceOpts := []orders.Option{
		orders.WithLogger(logger.WithField("layer", "service")),
		orders.WithMetrics(metrics.NewOrderMetrics()),
	}
	if publisher != nil {
		serviceOpts = append(serviceOpts, orders.WithPublisher(publisher))
	}
	svc := orders.NewService(deps.repo, serviceOpts...)

	registerTelegramSink(runCtx, cfg, hub, &workers, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	metricsSrv := startMetricsServer(runCtx, cfg.MetricsAddr, logger, healthHandler)

	grpcServer, grpcHealth := newGRPCServer(grpcapi.NewServer(svc, hub, logger.WithField("layer", "grpc")), logger)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		shutdownHTTP(metricsSrv, logger)
		return err
	}
	apiSrv := &http.Server{
		Handler:           httpapi.NewRouter(httpapi.NewHandler(svc, hub, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", httpLis.Addr())
		if err := apiSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			runErr = err
		}
	}

	// Подписки держат SSE и WatchOrders открытыми: хаб закрывается первым,
	// иначе graceful shutdown ждёт до таймаута. Писателей, застрявших в Send,
	// хаб ждёт не дольше ShutdownTimeout; их освобождает остановка транспортов.
	hub.Close()
	stopGRPC(grpcServer, grpcHealth, cfg.ShutdownTimeout, logger)
	shutdownHTTP(apiSrv, logger)
	shutdownHTTP(metricsSrv, logger)

	return runErr
}

// startNotifications включает источник живых обновлений по NotifyMode и
// возвращает publisher для сервиса заказов (nil в режиме postgres).
func startNotifications(
	ctx context.Context,
	cfg Config,
	deps *runtimeDependencies,
	hub *live.Hub,
	workers *sync.WaitGroup,
	logger *log.Entry,
) (domain.EventPublisher, *kafkaFeed, error) {
	switch cfg.NotifyMode {
	case NotifyModeLocal, "":
		logger.Info("live updates: in-process publish")
		return hub, nil, nil

	case NotifyModePostgres:
		if deps.pgStore == nil {
			return nil, nil, errors.New("postgres notify mode requires the postgres storage driver")
		}
		feed := postgres.NewChangeFeed(deps.pgStore, deps.repo, hub,
			postgres.WithFeedLogger(logger.WithField("layer", "pg-change-feed")),
			postgres.WithFeedMetrics(metrics.NewFeedMetrics()),
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			feed.Run(ctx)
		}()
		logger.Info("live updates: postgres LISTEN/NOTIFY")
		return nil, nil, nil

	case NotifyModeKafka:
		side, err := initKafkaFeed(ctx, cfg, hub, logger.WithField("layer", "kafka"))
		if err != nil {
			return nil, nil, err
		}
		return side.publisher, side, nil

	default:
		return nil, nil, fmt.Errorf("unsupported notify mode %q", cfg.NotifyMode)
	}
}

// registerTelegramSink подписывает чат бариста на новые заказы.
// Ошибка бота не мешает запуску сервера.
func registerTelegramSink(ctx context.Context, cfg Config, hub *live.Hub, workers *sync.WaitGroup, logger *log.Entry) {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return
	}
	sink, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID, logger.WithField("layer", "telegram"))
	if err != nil {
		logger.WithError(err).Warn("telegram notifications disabled")
		return
	}
	workers.Add(1)
	go func() {
		defer workers.Done()
		sink.Run(ctx)
	}()
	hub.Register(sink)
	logger.WithField("chat_id", cfg.TelegramChatID).Info("telegram notifications enabled")
}
