package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/app"
	"github.com/vladislavdragonenkov/cafe/internal/version"
)

const (
	envHTTPAddr            = "CAFE_HTTP_ADDR"
	envGRPCAddr            = "CAFE_GRPC_ADDR"
	envMetricsAddr         = "CAFE_METRICS_ADDR"
	envStorageDriver       = "CAFE_STORAGE_DRIVER"
	envPostgresDSN         = "CAFE_POSTGRES_DSN"
	envPostgresAutoMigrate = "CAFE_POSTGRES_AUTO_MIGRATE"
	envDynamoTable         = "CAFE_DYNAMO_TABLE"
	envDynamoRegion        = "CAFE_DYNAMO_REGION"
	envDynamoEndpoint      = "CAFE_DYNAMO_ENDPOINT"
	envNotifyMode          = "CAFE_NOTIFY_MODE"
	envKafkaBrokers        = "CAFE_KAFKA_BROKERS"
	envKafkaTopic          = "CAFE_KAFKA_TOPIC"
	envKafkaGroupPrefix    = "CAFE_KAFKA_GROUP_PREFIX"
	envInstanceID          = "CAFE_INSTANCE_ID"
	envHeartbeatInterval   = "CAFE_HEARTBEAT_INTERVAL"
	envSinkBuffer          = "CAFE_SINK_BUFFER"
	envTelegramToken       = "CAFE_TELEGRAM_TOKEN"
	envTelegramChatID      = "CAFE_TELEGRAM_CHAT_ID"
	envShutdownTimeout     = "CAFE_SHUTDOWN_TIMEOUT"
	envLogLevel            = "CAFE_LOG_LEVEL"
)

type envLookup func(string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректное значение не роняет запуск: остаётся значение по умолчанию и
// возвращается предупреждение.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	str(envPostgresDSN, &cfg.PostgresDSN)
	if v, ok := lookup(envPostgresAutoMigrate); ok && strings.TrimSpace(v) != "" {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	str(envDynamoTable, &cfg.DynamoTable)
	str(envDynamoRegion, &cfg.DynamoRegion)
	str(envDynamoEndpoint, &cfg.DynamoEndpoint)
	if v, ok := lookup(envNotifyMode); ok && strings.TrimSpace(v) != "" {
		cfg.NotifyMode = strings.ToLower(strings.TrimSpace(v))
	}
	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaTopic, &cfg.KafkaTopic)
	str(envKafkaGroupPrefix, &cfg.KafkaGroupPrefix)
	str(envInstanceID, &cfg.InstanceID)

	if v, ok := lookup(envHeartbeatInterval); ok && strings.TrimSpace(v) != "" {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envHeartbeatInterval, v, err)
		} else {
			cfg.HeartbeatInterval = parsed
		}
	}
	if v, ok := lookup(envSinkBuffer); ok && strings.TrimSpace(v) != "" {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envSinkBuffer, v, err)
		} else {
			cfg.SinkBuffer = parsed
		}
	}

	str(envTelegramToken, &cfg.TelegramToken)
	if v, ok := lookup(envTelegramChatID); ok && strings.TrimSpace(v) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			if err == nil {
				err = errors.New("must not be 0")
			}
			warn(envTelegramChatID, v, err)
		} else {
			cfg.TelegramChatID = parsed
		}
	}

	if v, ok := lookup(envShutdownTimeout); ok && strings.TrimSpace(v) != "" {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envShutdownTimeout, v, err)
		} else {
			cfg.ShutdownTimeout = parsed
		}
	}

	return cfg, warnings
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", s)
	}
}

func parseInt(s string, valid func(int) bool, msg string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if !valid(v) {
		return 0, errors.New(msg)
	}
	return v, nil
}

func parseDuration(s string, valid func(time.Duration) bool, msg string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if !valid(v) {
		return 0, errors.New(msg)
	}
	return v, nil
}

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	setupLogger(os.Getenv(envLogLevel))
	gin.SetMode(gin.ReleaseMode)

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"grpc_addr":    cfg.GRPCAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
		"notify":       cfg.NotifyMode,
		"version":      version.GetVersion(),
	}).Info("запускаем сервер кофейни")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервер кофейни остановлен")
}
