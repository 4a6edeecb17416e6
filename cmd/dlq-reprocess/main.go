// Команда dlq-reprocess возвращает события заказов из cafe.dlq в исходный
// топик. По умолчанию работает в режиме dry-run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "CAFE_KAFKA_BROKERS"
	headerReplayedFrom = "x-replayed-from"
)

var errNoOriginalValue = errors.New("dlq message carries no original value")

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

type replayMessage struct {
	topic   string
	key     string
	value   []byte
	orderID string
}

// dlqPayload: тело, которое Consumer пишет в DLQ после исчерпания попыток.
type dlqPayload struct {
	OriginalTopic  string `json:"original_topic"`
	OriginalKey    string `json:"original_key"`
	OriginalValue  string `json:"original_value"`
	OriginalOffset int64  `json:"original_offset"`
	ErrorMessage   string `json:"error_message"`
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

var newReplayDependencies = func(cfg config) (offsetClient, partitionConsumerSource, replayProducer, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = "cafe-dlq-reprocess"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}

	if !cfg.execute {
		return client, consumer, nil, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.ClientID = "cafe-dlq-reprocess"
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.brokers, producerConfig)
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return client, consumer, producer, nil
}

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readConfig(args []string, lookup func(string) (string, bool)) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "target topic when the DLQ message does not name one")
	fs.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw, _ = lookup(envKafkaBrokers)
	}

	cfg.brokers = parseBrokers(brokersRaw)
	var errs []error
	if len(cfg.brokers) == 0 {
		errs = append(errs, fmt.Errorf("kafka brokers are required (-brokers or %s)", envKafkaBrokers))
	}
	if strings.TrimSpace(cfg.sourceTopic) == "" {
		errs = append(errs, errors.New("source-topic is required"))
	}
	if strings.TrimSpace(cfg.targetTopic) == "" {
		errs = append(errs, errors.New("target-topic is required"))
	}
	if cfg.limit <= 0 {
		errs = append(errs, errors.New("limit must be > 0"))
	}
	if cfg.idleTimeout <= 0 {
		errs = append(errs, errors.New("idle-timeout must be > 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return config{}, err
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	client, consumer, producer, err := newReplayDependencies(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		if consumer != nil {
			_ = consumer.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	r, err := newReplayer(cfg, client, consumer, producer)
	if err != nil {
		return err
	}
	_, err = r.run(ctx)
	return err
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func (s *replayStats) add(o replayStats) {
	s.processed += o.processed
	s.replayed += o.replayed
	s.skipped += o.skipped
}

// replayer сканирует партиции DLQ и переотправляет пригодные события.
type replayer struct {
	cfg      config
	client   offsetClient
	consumer partitionConsumerSource
	producer replayProducer
	logger   *log.Entry
}

func newReplayer(cfg config, client offsetClient, consumer partitionConsumerSource, producer replayProducer) (*replayer, error) {
	if client == nil || consumer == nil {
		return nil, errors.New("kafka client and consumer are required")
	}
	if cfg.execute && producer == nil {
		return nil, errors.New("producer is required in execute mode")
	}
	return &replayer{
		cfg:      cfg,
		client:   client,
		consumer: consumer,
		producer: producer,
		logger:   log.WithField("component", "dlq-reprocess"),
	}, nil
}

func (r *replayer) run(ctx context.Context) (replayStats, error) {
	mode := "dry-run"
	if r.cfg.execute {
		mode = "execute"
	}
	logger := r.logger.WithFields(log.Fields{
		"source_topic": r.cfg.sourceTopic,
		"mode":         mode,
	})
	logger.WithField("limit", r.cfg.limit).Info("starting dlq replay")

	var total replayStats
	partitions, err := r.client.Partitions(r.cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", r.cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		logger.Warn("source topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.processed >= r.cfg.limit {
			break
		}
		stats, err := r.partition(ctx, partition, r.cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	logger.WithFields(log.Fields{
		"processed": total.processed,
		"replayed":  total.replayed,
		"skipped":   total.skipped,
	}).Info("dlq replay finished")
	return total, nil
}

func (r *replayer) partition(ctx context.Context, partition int32, limit int) (replayStats, error) {
	var stats replayStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := r.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.client.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if r.cfg.fromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := r.consumer.ConsumePartition(r.cfg.sourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.idleTimeout)
	defer idle.Stop()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case cerr, ok := <-pc.Errors():
			if ok && cerr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, cerr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.cfg.idleTimeout)

			stats.processed++
			if err := r.handle(msg, &stats); err != nil {
				return stats, err
			}
			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idle.C:
			return stats, nil
		}
	}
	return stats, nil
}

func (r *replayer) handle(msg *sarama.ConsumerMessage, stats *replayStats) error {
	logger := r.logger.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	replay, err := extractReplayMessage(msg, r.cfg.targetTopic)
	if err != nil {
		stats.skipped++
		logger.WithError(err).Warn("skip unsupported dlq message")
		return nil
	}

	logger = logger.WithFields(log.Fields{"target_topic": replay.topic, "order_id": replay.orderID})
	if !r.cfg.execute {
		stats.replayed++
		logger.Info("dlq replay candidate")
		return nil
	}

	if err := publishReplay(r.producer, replay, fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)); err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	stats.replayed++
	logger.Info("dlq message replayed")
	return nil
}

func publishReplay(producer replayProducer, msg replayMessage, origin string) error {
	if producer == nil {
		return errors.New("producer is nil")
	}

	_, _, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic:     msg.topic,
		Key:       sarama.StringEncoder(msg.key),
		Value:     sarama.ByteEncoder(msg.value),
		Headers:   []sarama.RecordHeader{{Key: []byte(headerReplayedFrom), Value: []byte(origin)}},
		Timestamp: time.Now().UTC(),
	})
	return err
}

// extractReplayMessage достаёт исходное событие заказа. Сообщение, которое
// не разбирается как событие заказа, снова упадёт в DLQ, поэтому пропускается.
func extractReplayMessage(msg *sarama.ConsumerMessage, defaultTopic string) (replayMessage, error) {
	var payload dlqPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return replayMessage{}, fmt.Errorf("decode dlq payload: %w", err)
	}
	if payload.OriginalValue == "" {
		return replayMessage{}, errNoOriginalValue
	}

	value := []byte(payload.OriginalValue)
	event, err := kafka.ParseOrderEvent(&sarama.ConsumerMessage{Value: value})
	if err != nil {
		return replayMessage{}, err
	}
	if _, err := event.ToDomain(); err != nil {
		return replayMessage{}, err
	}

	topic := strings.TrimSpace(payload.OriginalTopic)
	if topic == "" {
		topic = defaultTopic
	}
	key := payload.OriginalKey
	if key == "" {
		key = event.OrderID
	}

	return replayMessage{topic: topic, key: key, value: value, orderID: event.OrderID}, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
