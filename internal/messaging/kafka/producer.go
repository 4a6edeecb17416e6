package kafka

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultClientID = "cafe"

// Producer публикует JSON-события в Kafka через синхронный producer.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// ProducerOption настраивает Producer.
type ProducerOption func(*producerOptions)

type producerOptions struct {
	clientID string
	logger   *log.Entry
}

// WithClientID задаёт client.id, под которым producer виден брокеру.
func WithClientID(id string) ProducerOption {
	return func(o *producerOptions) {
		if id != "" {
			o.clientID = id
		}
	}
}

// WithProducerLogger задаёт логгер producer'а.
func WithProducerLogger(logger *log.Entry) ProducerOption {
	return func(o *producerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewProducer создает идемпотентный producer с подтверждением от всех реплик.
func NewProducer(brokers []string, opts ...ProducerOption) (*Producer, error) {
	options := producerOptions{
		clientID: defaultClientID,
		logger:   log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(&options)
	}

	config := sarama.NewConfig()
	config.ClientID = options.clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // обязательно для идемпотентности

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newProducer(producer, options.logger), nil
}

func newProducer(producer sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Producer{
		producer: producer,
		logger:   logger.WithField("component", "kafka-producer"),
	}
}

// PublishEvent публикует событие в topic. Ключ задаёт партицию, поэтому
// события одного заказа сохраняют порядок.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	return p.PublishEventWithHeaders(topic, key, event, nil)
}

// PublishEventWithHeaders публикует событие с дополнительными заголовками.
func (p *Producer) PublishEventWithHeaders(topic string, key string, event interface{}, headers map[string]string) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka producer is not initialized")
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(eventData),
		Headers:   recordHeaders(headers),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: []byte(headers[k])})
	}
	return out
}
