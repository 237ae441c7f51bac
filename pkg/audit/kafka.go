package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// KafkaConfig configures the Kafka-backed sink.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	Topics        Topics        `yaml:"topics"`
	Compression   string        `yaml:"compression"`    // "none", "gzip", "snappy", "lz4"
	RequiredAcks  string        `yaml:"required_acks"`  // "none", "leader", "all"
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DefaultKafkaConfig returns settings for a local broker.
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:       []string{"localhost:9092"},
		Topics:        DefaultTopics(),
		Compression:   "snappy",
		RequiredAcks:  "leader",
		MaxRetries:    3,
		RetryBackoff:  100 * time.Millisecond,
		FlushInterval: time.Second,
	}
}

// KafkaSink publishes events to Kafka through sarama's AsyncProducer for
// non-blocking delivery. Events lost on broker failure are surfaced on
// Errors() but never fail the publishing request path.
type KafkaSink struct {
	producer sarama.AsyncProducer
	router   *TopicRouter
	mu       sync.RWMutex
	closed   bool
	errCh    chan error
	wg       sync.WaitGroup
}

// Ensure KafkaSink implements the Sink interface.
var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink connects to the configured brokers and starts an async
// producer. If config is nil, DefaultKafkaConfig() is used.
func NewKafkaSink(config *KafkaConfig) (*KafkaSink, error) {
	if config == nil {
		config = DefaultKafkaConfig()
	}
	if len(config.Brokers) == 0 {
		return nil, errors.New("at least one Kafka broker is required")
	}

	producer, err := sarama.NewAsyncProducer(config.Brokers, buildSaramaConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return newKafkaSink(producer, config), nil
}

// NewKafkaSinkWithProducer creates a KafkaSink with an injected producer.
// This is primarily useful for testing with sarama/mocks.
func NewKafkaSinkWithProducer(producer sarama.AsyncProducer, config *KafkaConfig) *KafkaSink {
	if config == nil {
		config = DefaultKafkaConfig()
	}
	return newKafkaSink(producer, config)
}

func newKafkaSink(producer sarama.AsyncProducer, config *KafkaConfig) *KafkaSink {
	ks := &KafkaSink{
		producer: producer,
		router:   NewTopicRouter(config.Topics),
		errCh:    make(chan error, 100),
	}

	ks.wg.Add(2)
	go ks.handleSuccesses()
	go ks.handleErrors()

	return ks
}

// Publish routes each event and enqueues it on the async producer.
func (ks *KafkaSink) Publish(ctx context.Context, events ...Event) error {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.closed {
		return ErrSinkClosed
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
		}

		for _, topic := range ks.router.Route(event) {
			msg := &sarama.ProducerMessage{
				Topic: topic,
				Key:   sarama.StringEncoder(event.TenantID + ":" + event.RequestID),
				Value: sarama.ByteEncoder(data),
			}

			select {
			case ks.producer.Input() <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

// Close flushes pending messages and closes the producer.
func (ks *KafkaSink) Close() error {
	ks.mu.Lock()
	if ks.closed {
		ks.mu.Unlock()
		return nil
	}
	ks.closed = true
	ks.mu.Unlock()

	ks.producer.AsyncClose()
	ks.wg.Wait()

	return nil
}

// Errors returns a channel of non-fatal errors encountered during
// publishing.
func (ks *KafkaSink) Errors() <-chan error {
	return ks.errCh
}

func (ks *KafkaSink) handleSuccesses() {
	defer ks.wg.Done()
	for range ks.producer.Successes() {
		// Acknowledged; nothing to do.
	}
}

func (ks *KafkaSink) handleErrors() {
	defer ks.wg.Done()
	for err := range ks.producer.Errors() {
		select {
		case ks.errCh <- err:
		default:
			// Error buffer full; drop rather than block the producer.
		}
	}
	close(ks.errCh)
}

// buildSaramaConfig translates KafkaConfig into a sarama configuration.
func buildSaramaConfig(config *KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	switch config.Compression {
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	default:
		sc.Producer.Compression = sarama.CompressionNone
	}

	switch config.RequiredAcks {
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	default:
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	}

	if config.MaxRetries > 0 {
		sc.Producer.Retry.Max = config.MaxRetries
	}
	if config.RetryBackoff > 0 {
		sc.Producer.Retry.Backoff = config.RetryBackoff
	}
	if config.FlushInterval > 0 {
		sc.Producer.Flush.Frequency = config.FlushInterval
	}

	return sc
}
