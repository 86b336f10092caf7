package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Reader is the part of kafka.Reader the processor uses.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithFetchBackoff sets the pause after a failed fetch.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) { p.fetchBackoff = d }
}

// Processor feeds one topic's records to a Handler with at-least-once
// semantics: a record is committed only after its handler succeeds.
// Malformed records are committed and skipped.
type Processor struct {
	reader       Reader
	handler      Handler
	logger       zerolog.Logger
	fetchBackoff time.Duration
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:       reader,
		handler:      handler,
		logger:       zerolog.Nop(),
		fetchBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled or the reader reports
// cancellation, and returns that error.
func (p *Processor) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		record, err := p.reader.FetchMessage(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			p.logger.Warn().Err(err).Dur("backoff", p.fetchBackoff).Msg("fetch failed")
			if !pause(ctx, p.fetchBackoff) {
				return ctx.Err()
			}
			continue
		}
		p.process(ctx, record)
	}
	return ctx.Err()
}

func (p *Processor) process(ctx context.Context, record kafka.Message) {
	log := p.logger.With().Str("topic", record.Topic).Int("partition", record.Partition).Int64("offset", record.Offset).Logger()

	msg, err := decode(record)
	if err != nil {
		log.Error().Err(err).Msg("skipping record")
		recordOutcome(record.Topic, unknownEventType, outcomeMalformed)
		p.commit(ctx, log, record)
		return
	}

	if err := p.handler.Handle(ctx, msg); err != nil {
		log.Error().Err(err).Str("event_type", msg.EventType).Str("tenant_id", msg.TenantID).Msg("handler failed, record left for redelivery")
		recordOutcome(msg.Topic, msg.EventType, outcomeHandlerError)
		return
	}

	if p.commit(ctx, log, record) {
		recordProcessed(msg)
	}
}

func (p *Processor) commit(ctx context.Context, log zerolog.Logger, record kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, record); err != nil {
		log.Error().Err(err).Msg("commit failed")
		return false
	}
	return true
}

// pause waits for d and reports false if ctx ended first.
func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
