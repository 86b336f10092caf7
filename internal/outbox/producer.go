package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ProducerOption configures a KafkaProducer.
type ProducerOption func(*KafkaProducer)

// WithBatchTimeout bounds how long a writer waits to fill a batch.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(p *KafkaProducer) {
		if d > 0 {
			p.batchTimeout = d
		}
	}
}

// WithProducerLogger routes kafka-go writer errors to logger.
func WithProducerLogger(logger zerolog.Logger) ProducerOption {
	return func(p *KafkaProducer) { p.logger = logger }
}

// KafkaProducer owns one kafka.Writer per planner topic. Records are hashed
// on their key, the couple and partner, so one couple's events keep their
// order within a partition.
type KafkaProducer struct {
	brokers      []string
	batchTimeout time.Duration
	logger       zerolog.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer for brokers.
func NewKafkaProducer(brokers []string, opts ...ProducerOption) *KafkaProducer {
	p := &KafkaProducer{
		brokers:      brokers,
		batchTimeout: 50 * time.Millisecond,
		logger:       zerolog.Nop(),
		writers:      make(map[string]*kafka.Writer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteMessages writes msgs to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writer(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.writers[topic]
	if !ok {
		logger := p.logger.With().Str("topic", topic).Logger()
		w = &kafka.Writer{
			Addr:                   kafka.TCP(p.brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           p.batchTimeout,
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
			ErrorLogger: kafka.LoggerFunc(func(format string, args ...interface{}) {
				logger.Error().Msgf(format, args...)
			}),
		}
		p.writers[topic] = w
	}
	return w
}

// Close flushes and closes every writer.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s writer: %w", topic, err))
		}
	}
	clear(p.writers)
	return errors.Join(errs...)
}
