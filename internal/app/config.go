package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/live"
	"github.com/vladislavdragonenkov/cafe/internal/messaging/kafka"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
	StorageDriverDynamoDB = "dynamodb"
)

// Режимы доставки живых обновлений. В каждом развёртывании работает ровно один.
const (
	NotifyModeLocal    = "local"
	NotifyModePostgres = "postgres"
	NotifyModeKafka    = "kafka"
)

// Config описывает настройки запуска сервера кофейни.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	DynamoTable         string
	DynamoRegion        string
	DynamoEndpoint      string

	NotifyMode       string
	KafkaBrokers     string
	KafkaTopic       string
	KafkaGroupPrefix string
	// InstanceID задаёт стабильный суффикс consumer group; пусто, значит имя хоста.
	InstanceID string

	HeartbeatInterval time.Duration
	SinkBuffer        int

	TelegramToken  string
	TelegramChatID int64

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		DynamoTable:         "orders",
		NotifyMode:          NotifyModeLocal,
		KafkaTopic:          kafka.TopicOrderEvents,
		KafkaGroupPrefix:    "cafe-live",
		HeartbeatInterval:   live.DefaultHeartbeatInterval,
		SinkBuffer:          live.DefaultBufferSize,
		ShutdownTimeout:     5 * time.Second,
	}
}

// Validate отклоняет несовместимые сочетания настроек.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres storage requires a DSN"))
		}
	case StorageDriverDynamoDB:
		if strings.TrimSpace(c.DynamoTable) == "" {
			errs = append(errs, errors.New("dynamodb storage requires a table name"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.NotifyMode {
	case NotifyModeLocal:
	case NotifyModePostgres:
		if c.StorageDriver != StorageDriverPostgres {
			errs = append(errs, errors.New("postgres notify mode requires the postgres storage driver"))
		}
	case NotifyModeKafka:
		if len(splitBrokers(c.KafkaBrokers)) == 0 {
			errs = append(errs, errors.New("kafka notify mode requires brokers"))
		}
		if strings.TrimSpace(c.KafkaTopic) == "" {
			errs = append(errs, errors.New("kafka notify mode requires a topic"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported notify mode %q", c.NotifyMode))
	}

	if c.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("heartbeat interval must be > 0"))
	}
	if c.SinkBuffer <= 0 {
		errs = append(errs, errors.New("sink buffer must be > 0"))
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		errs = append(errs, errors.New("telegram token and chat id must be set together"))
	}

	return errors.Join(errs...)
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
