// Package kafka consumes activity messages from a Kafka topic and feeds them
// into the ingest pipeline.
package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/internal/domain/types"
	"github.com/okian/paddock/pkg/logger"
	"github.com/okian/paddock/pkg/metrics"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 200 * time.Millisecond
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafkago.Message, error)
	CommitMessages(context.Context, ...kafkago.Message) error
	Close() error
}

// Ingestor accepts activities into the pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, a model.Activity) (duplicate bool, err error)
}

// Processor pulls activity messages from Kafka and hands them to an Ingestor.
//
// Messages are committed after a successful or duplicate ingest, and when
// they are malformed. A message whose ingest keeps failing is left
// uncommitted.
type Processor struct {
	reader     Reader
	ingestor   Ingestor
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewProcessor constructs a Processor with the provided reader and ingestor.
func NewProcessor(reader Reader, ingestor Ingestor, opts ...Option) *Processor {
	p := &Processor{
		reader:     reader,
		ingestor:   ingestor,
		logger:     logger.Get().Named("kafka"),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewReader builds a consumer-group reader for the activity topic.
func NewReader(brokers []string, topic, groupID string) (*kafkago.Reader, error) {
	var clean []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			clean = append(clean, b)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoBrokers
	}
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        clean,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	}), nil
}

// Run processes messages until ctx is cancelled or the reader is closed.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			p.logger.Error(ctx, "fetch error", logger.Error(err))
			if !p.sleep(ctx, p.backoff) {
				return ctx.Err()
			}
			continue
		}

		p.handle(ctx, msg)
	}
}

func (p *Processor) handle(ctx context.Context, msg kafkago.Message) { //nolint:gocritic // hugeParam: kafka-go API
	fields := []logger.Field{
		logger.String("topic", msg.Topic),
		logger.Int("partition", msg.Partition),
		logger.Int64("offset", msg.Offset),
	}

	activity, err := Decode(msg.Value)
	if err != nil {
		p.logger.Warn(ctx, "dropping malformed message", append(fields, logger.Error(err))...)
		metrics.RecordKafkaMessage("malformed")
		p.commit(ctx, msg, fields)
		return
	}

	duplicate, err := p.ingest(ctx, activity)
	switch {
	case errors.Is(err, model.ErrInvalidActivity):
		p.logger.Warn(ctx, "dropping invalid activity", append(fields, logger.Error(err))...)
		metrics.RecordKafkaMessage("invalid")
		p.commit(ctx, msg, fields)
	case err != nil:
		p.logger.Error(ctx, "ingest failed, leaving message uncommitted", append(fields, logger.Error(err))...)
		metrics.RecordKafkaMessage("failed")
	case duplicate:
		metrics.RecordKafkaMessage("duplicate")
		p.commit(ctx, msg, fields)
	default:
		metrics.RecordKafkaMessage("ingested")
		p.commit(ctx, msg, fields)
	}
}

func (p *Processor) ingest(ctx context.Context, a model.Activity) (bool, error) { //nolint:gocritic // hugeParam: value semantics
	delay := p.backoff
	for attempt := 0; ; attempt++ {
		duplicate, err := p.ingestor.Ingest(ctx, a)
		if err == nil || errors.Is(err, model.ErrInvalidActivity) || attempt >= p.maxRetries {
			return duplicate, err
		}
		if !p.sleep(ctx, delay) {
			return false, err
		}
		delay *= 2
	}
}

func (p *Processor) commit(ctx context.Context, msg kafkago.Message, fields []logger.Field) { //nolint:gocritic // hugeParam: kafka-go API
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.Error(ctx, "commit error", append(fields, logger.Error(err))...)
	}
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Decode parses a JSON activity message. Unknown fields are rejected.
func Decode(value []byte) (model.Activity, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return model.Activity{}, fmt.Errorf("%w: empty payload", ErrMalformedMessage)
	}
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.DisallowUnknownFields()

	var payload types.ActivityPayload
	if err := dec.Decode(&payload); err != nil {
		return model.Activity{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	activity, err := payload.ToModel()
	if err != nil {
		return model.Activity{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return activity, nil
}
