package graphsink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"discogsography/internal/bus"
	"discogsography/internal/canon"
	"discogsography/internal/catalog"
	"discogsography/internal/graphdriver"
	"discogsography/pkg/logger"
)

const sinkName = "graphsink"
const prefetch = 100

// Sink owns one consumer per catalog type and applies each message to the
// graph store per spec.md §4.B's per-message protocol.
type Sink struct {
	bus             *bus.Bus
	graph           *graphdriver.Driver
	maxRedeliveries int
	log             logger.Logger
}

func New(b *bus.Bus, graph *graphdriver.Driver, maxRedeliveries int) *Sink {
	return &Sink{bus: b, graph: graph, maxRedeliveries: maxRedeliveries, log: logger.New(sinkName)}
}

// Run starts one consumer goroutine per catalog type and blocks until ctx
// is canceled, then drains in-flight deliveries before returning.
func (s *Sink) Run(ctx context.Context) error {
	log := s.log.Function("Run")

	var wg sync.WaitGroup
	for _, kind := range catalog.Kinds {
		consumer, err := s.bus.NewConsumer(sinkName, string(kind), prefetch)
		if err != nil {
			return log.Err("failed to start consumer", err, "type", kind)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.consume(ctx, kind, consumer)
		}()
	}

	<-ctx.Done()
	log.Info("graph sink shutting down")
	wg.Wait()
	return nil
}

// consume processes deliveries for one catalog type strictly serially, per
// spec.md §5's ordering guarantee: process, commit, ACK, then pull next.
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

// applyMessage implements the four-step per-message protocol: decode,
// compute hash, read-before-write skip, MERGE, commit.
func (s *Sink) applyMessage(ctx context.Context, kind catalog.Kind, body []byte, processingRunID string) error {
	id, err := peekID(body)
	if err != nil {
		return &dataError{err}
	}

	hash, err := canon.Hash(body)
	if err != nil {
		return &dataError{err}
	}

	label := neo4jLabel(kind)
	existing, err := ReadHash(ctx, s.graph, label, id)
	if err != nil {
		return err
	}
	if canon.Equal(existing, hash) {
		return nil // hash-skip: no write needed
	}

	if err := s.mergeByKind(ctx, kind, body, hash); err != nil {
		return err
	}

	s.publishChangeHook(ctx, kind, id, processingRunID, existing == "")
	return nil
}

func (s *Sink) mergeByKind(ctx context.Context, kind catalog.Kind, body []byte, hash string) error {
	switch kind {
	case catalog.KindArtist:
		var a catalog.Artist
		if err := json.Unmarshal(body, &a); err != nil {
			return &dataError{err}
		}
		return MergeArtist(ctx, s.graph, a, hash)
	case catalog.KindLabel:
		var l catalog.Label
		if err := json.Unmarshal(body, &l); err != nil {
			return &dataError{err}
		}
		return MergeLabel(ctx, s.graph, l, hash)
	case catalog.KindMaster:
		var m catalog.Master
		if err := json.Unmarshal(body, &m); err != nil {
			return &dataError{err}
		}
		return MergeMaster(ctx, s.graph, m, hash)
	case catalog.KindRelease:
		var r catalog.Release
		if err := json.Unmarshal(body, &r); err != nil {
			return &dataError{err}
		}
		return MergeRelease(ctx, s.graph, r, hash)
	}
	return &dataError{errUnknownKind(kind)}
}

func neo4jLabel(kind catalog.Kind) string {
	switch kind {
	case catalog.KindArtist:
		return "Artist"
	case catalog.KindLabel:
		return "Label"
	case catalog.KindMaster:
		return "Master"
	case catalog.KindRelease:
		return "Release"
	}
	return ""
}

// publishChangeHook publishes a best-effort, non-blocking change
// notification after a successful non-skip write, per spec.md §4.B. It is
// deliberately fire-and-forget: the change hook is an additive extension
// point, not part of the write's consistency guarantee.
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

var errMissingID = &dataError{err: errMissingIDInner}
var errMissingIDInner = simpleError("message missing required id")

type simpleError string

func (e simpleError) Error() string { return string(e) }

func errUnknownKind(kind catalog.Kind) error {
	return simpleError("unknown catalog kind: " + string(kind))
}
