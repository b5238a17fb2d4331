package tablesink

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"discogsography/internal/bus"
	"discogsography/internal/canon"
	"discogsography/internal/catalog"
	"discogsography/internal/dbpool"
	"discogsography/pkg/logger"
)

const sinkName = "tablesink"
const prefetch = 100

// Sink owns one consumer per catalog type and upserts each message's raw
// payload into the matching PostgreSQL table, per spec.md §4.C.
type Sink struct {
	bus             *bus.Bus
	pool            *dbpool.Pool
	maxRedeliveries int
	log             logger.Logger
}

func New(b *bus.Bus, pool *dbpool.Pool, maxRedeliveries int) *Sink {
	return &Sink{bus: b, pool: pool, maxRedeliveries: maxRedeliveries, log: logger.New(sinkName)}
}

func (s *Sink) Run(ctx context.Context) error {
	log := s.log.Function("Run")

	for _, kind := range catalog.Kinds {
		consumer, err := s.bus.NewConsumer(sinkName, string(kind), prefetch)
		if err != nil {
			return log.Err("failed to start consumer", err, "type", kind)
		}
		go s.consume(ctx, kind, consumer)
	}

	<-ctx.Done()
	log.Info("table sink shutting down")
	return nil
}

func (s *Sink) consume(ctx context.Context, kind catalog.Kind, c *bus.Consumer) {
	log := s.log.Function("consume").With("type", kind)

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-c.Deliveries:
			if !ok {
				return
			}
			s.handle(ctx, kind, delivery, log)
		}
	}
}

func (s *Sink) handle(ctx context.Context, kind catalog.Kind, d amqp.Delivery, log logger.Logger) {
	if redeliveries := bus.RedeliveryCount(d); redeliveries > s.maxRedeliveries {
		log.Warn("message exceeded redelivery budget, shunting to dlq", "redeliveries", redeliveries)
		s.shuntToDLQ(ctx, d, log)
		_ = d.Ack(false)
		return
	}

	if err := s.applyMessage(ctx, kind, d.Body, bus.ProcessingRunID(d.RoutingKey)); err != nil {
		if isDataError(err) {
			log.Warn("data error, acking without requeue", "error", err)
			_ = d.Ack(false)
			return
		}
		log.Er("failed to apply message, nacking with requeue", err)
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

// applyMessage mirrors the graph sink's four-step protocol against the
// relational store: decode id, compute hash, read-before-write skip,
// upsert.
func (s *Sink) applyMessage(ctx context.Context, kind catalog.Kind, body []byte, processingRunID string) error {
	id, err := peekID(body)
	if err != nil {
		return &dataError{err}
	}

	hash, err := canon.Hash(body)
	if err != nil {
		return &dataError{err}
	}

	existing, err := ReadHash(ctx, s.pool, kind, id)
	if err != nil {
		return err
	}
	if canon.Equal(existing, hash) {
		return nil
	}

	if err := Upsert(ctx, s.pool, kind, id, body, hash); err != nil {
		return err
	}

	s.publishChangeHook(ctx, kind, id, processingRunID, existing == "")
	return nil
}

// publishChangeHook mirrors the graph sink's best-effort, non-blocking
// change notification after a successful non-skip write.
func (s *Sink) publishChangeHook(ctx context.Context, kind catalog.Kind, id string, processingRunID string, created bool) {
	changeType := catalog.ChangeUpdated
	if created {
		changeType = catalog.ChangeCreated
	}

	hook := catalog.ChangeHook{
		DataType:        kind,
		RecordID:        id,
		ChangeType:      changeType,
		ProcessingRunID: processingRunID,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(hook)
	if err != nil {
		return
	}

	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.bus.Publish(publishCtx, bus.ChangesRoutingKey(string(kind)), body); err != nil {
			s.log.Warn("failed to publish change hook", "error", err, "type", kind, "id", id)
		}
	}()
}

func (s *Sink) shuntToDLQ(ctx context.Context, d amqp.Delivery, log logger.Logger) {
	ch, queue, err := s.bus.DeclareDLQ(sinkName)
	if err != nil {
		log.Er("failed to declare dlq", err)
		return
	}
	defer ch.Close()

	if err := s.bus.PublishDirect(ctx, ch, queue, d.Body); err != nil {
		log.Er("failed to publish to dlq", err, "queue", queue)
	}
}

type dataError struct{ err error }

func (e *dataError) Error() string { return e.err.Error() }
func (e *dataError) Unwrap() error { return e.err }

func isDataError(err error) bool {
	_, ok := err.(*dataError)
	return ok
}

func peekID(body []byte) (string, error) {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", err
	}
	if probe.ID == "" {
		return "", errMissingID
	}
	return probe.ID, nil
}

var errMissingID = &dataError{err: simpleError("message missing required id")}

type simpleError string

func (e simpleError) Error() string { return string(e) }
