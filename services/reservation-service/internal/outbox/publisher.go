package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/courtreserve/libs/db"
	"github.com/md-rashed-zaman/courtreserve/libs/kafkax"
	otelx "github.com/md-rashed-zaman/courtreserve/libs/otel"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
	// MaxAttempts parks an event after that many failed deliveries.
	MaxAttempts int
}

func (c PublisherConfig) withDefaults() PublisherConfig {
	if c.PollEvery <= 0 {
		c.PollEvery = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	return c
}

// Publisher ships reservation events from outbox_events to Kafka, one topic
// per event type, keyed by the reservation date.
type Publisher struct {
	pool    *db.Pool
	repo    *Repository
	logger  *slog.Logger
	brokers []string
	cfg     PublisherConfig
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	return &Publisher{
		pool:    pool,
		repo:    repo,
		logger:  logger,
		brokers: kafkax.SplitBrokers(cfg.Brokers),
		cfg:     cfg.withDefaults(),
	}
}

// Run polls the outbox until ctx is done. Without brokers events accumulate
// in the table and ship once Kafka is configured.
func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled, no kafka brokers configured")
		return
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()

	ticker := time.NewTicker(p.cfg.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := p.publishBatch(ctx, writer)
			switch {
			case err != nil:
				p.logger.Error("outbox publish failed", "err", err)
			case res.failed > 0:
				p.logger.Warn("outbox delivery failed", "count", res.failed, "parked", res.parked, "cause", res.cause)
			case res.delivered > 0:
				p.logger.Debug("outbox batch published", "count", res.delivered)
			}
		}
	}
}

type batchResult struct {
	delivered int
	failed    int
	parked    int
	cause     string
}

// publishBatch claims one batch and records its fate in the same transaction:
// delivered rows are stamped, failed rows get an attempt counted.
func (p *Publisher) publishBatch(ctx context.Context, writer MessageWriter) (batchResult, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return batchResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.Claim(ctx, tx, p.cfg.BatchSize, p.cfg.MaxAttempts)
	if err != nil {
		return batchResult{}, err
	}
	if len(records) == 0 {
		return batchResult{}, tx.Commit(ctx)
	}

	res := deliver(ctx, writer, records, p.cfg.MaxAttempts)
	if res.failed > 0 {
		if err := p.repo.MarkFailed(ctx, tx, idsOf(records), res.cause); err != nil {
			return batchResult{}, err
		}
	} else if err := p.repo.MarkDelivered(ctx, tx, idsOf(records)); err != nil {
		return batchResult{}, err
	}
	return res, tx.Commit(ctx)
}

// deliver writes records as one batch. kafka-go reports batch writes as a
// unit, so a failure counts against every record.
func deliver(ctx context.Context, writer MessageWriter, records []Record, maxAttempts int) batchResult {
	msgs := make([]kafka.Message, len(records))
	for i, r := range records {
		msgs[i] = toMessage(ctx, r)
	}
	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		res := batchResult{failed: len(records), cause: err.Error()}
		for _, r := range records {
			if r.Attempts+1 >= maxAttempts {
				res.parked++
			}
		}
		return res
	}
	return batchResult{delivered: len(records)}
}

func idsOf(records []Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func toMessage(ctx context.Context, r Record) kafka.Message {
	msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	return kafka.Message{
		Topic:   r.EventType,
		Key:     []byte(r.AggregateID),
		Value:   r.Payload,
		Headers: kafkax.MessageHeaders(msgCtx, r.EventID, r.EventType),
	}
}
