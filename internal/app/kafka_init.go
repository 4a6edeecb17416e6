package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
)

const kafkaMaxRetries = 3

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Возвращает nil, nil если brokers пустой.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList,
		kafka.WithClientID("cafe-server"),
		kafka.WithProducerLogger(logger),
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// kafkaFeed: продюсер событий и consumer, который возвращает их в локальный хаб.
type kafkaFeed struct {
	producer  *kafka.Producer
	consumer  *kafka.Consumer
	publisher domain.EventPublisher
}

// initKafkaFeed поднимает обе стороны kafka-режима. Группа уникальна для
// инстанса, поэтому каждый хаб получает все события топика.
func initKafkaFeed(ctx context.Context, cfg Config, hub domain.EventPublisher, logger *log.Entry) (*kafkaFeed, error) {
	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, fmt.Errorf("init kafka producer: %w", err)
	}
	if producer == nil {
		return nil, errors.New("kafka notify mode requires brokers")
	}

	feed := kafka.NewFeed(hub, logger, metrics.NewFeedMetrics())
	groupID := kafka.InstanceGroupID(cfg.KafkaGroupPrefix, cfg.InstanceID)
	consumer, err := kafka.NewConsumerWithDLQ(
		splitBrokers(cfg.KafkaBrokers),
		groupID,
		[]string{cfg.KafkaTopic},
		feed.Handle,
		producer,
		kafkaMaxRetries,
	)
	if err != nil {
		closeKafka(producer, logger)
		return nil, fmt.Errorf("init kafka consumer: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Stop()
		closeKafka(producer, logger)
		return nil, fmt.Errorf("start kafka consumer: %w", err)
	}

	logger.WithFields(log.Fields{"topic": cfg.KafkaTopic, "group": groupID}).Info("kafka live feed started")
	return &kafkaFeed{
		producer:  producer,
		consumer:  consumer,
		publisher: kafka.NewEventPublisher(producer, cfg.KafkaTopic, instanceSource()),
	}, nil
}

// close останавливает consumer раньше producer: DLQ пишет через producer.
func (f *kafkaFeed) close(logger *log.Entry) {
	if f == nil {
		return
	}
	if f.consumer != nil {
		if err := f.consumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop kafka consumer")
		}
	}
	closeKafka(f.producer, logger)
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

func instanceSource() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "cafe-server"
	}
	return "cafe-server@" + host
}
