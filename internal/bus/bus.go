// Package bus wraps a rabbitmq/amqp091-go connection around the topic
// exchange shape spec.md §6 names: a durable "discogsography-exchange",
// routing keys "{type}.{processing_run_id}" and "{type}.changes", and one
// durable queue per sink per catalog type bound with "{type}.*".
//
// Grounded on other_examples/manifests/LerianStudio-midaz and
// other_examples/manifests/evalgo-org-eve's amqp091-go/streadway-amqp
// dependency; the exchange/queue/routing-key shape itself is spec.md
// verbatim, there is no pack file to imitate for that part.
package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"discogsography/internal/config"
	"discogsography/pkg/logger"
)

const (
	ExchangeName = "discogsography-exchange"
	DLQSuffix    = "-dlq"
)

// Bus owns one AMQP connection and exposes channel factories for
// consumers and publishers. A sink opens one Channel per catalog type it
// consumes, per spec.md §4.B/§4.C's "one consumer per catalog type" rule.
type Bus struct {
	conn *amqp.Connection
	log  logger.Logger
}

func Connect(cfg config.Config) (*Bus, error) {
	log := logger.New("bus").Function("Connect")

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, log.Err("failed to connect to amqp broker", err)
	}

	b := &Bus{conn: conn, log: log}

	ch, err := conn.Channel()
	if err != nil {
		return nil, log.Err("failed to open bootstrap channel", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, log.Err("failed to declare exchange", err)
	}

	log.Info("connected to amqp broker", "exchange", ExchangeName)
	return b, nil
}

// QueueName builds the durable queue name a sink declares for one catalog
// type: "discogsography-{sink}-{type}".
func QueueName(sink, catalogType string) string {
	return fmt.Sprintf("discogsography-%s-%s", sink, catalogType)
}

// RoutingKey builds the per-message routing key "{type}.{processingRunID}".
func RoutingKey(catalogType, processingRunID string) string {
	return fmt.Sprintf("%s.%s", catalogType, processingRunID)
}

// ChangesRoutingKey builds the change-hook routing key "{type}.changes".
func ChangesRoutingKey(catalogType string) string {
	return fmt.Sprintf("%s.changes", catalogType)
}

// ProcessingRunID extracts the processing run id from a delivery's routing
// key "{type}.{processingRunID}". A queue is bound "{type}.*" so every
// delivery a sink's consumer receives carries this shape; an unexpected
// routing key (no "." separator) yields "".
func ProcessingRunID(routingKey string) string {
	_, rest, ok := strings.Cut(routingKey, ".")
	if !ok {
		return ""
	}
	return rest
}

// Consumer wraps one durable queue bound to "{type}.*" with a bounded
// prefetch, matching spec.md §4.B's backpressure requirement.
type Consumer struct {
	Channel   *amqp.Channel
	Deliveries <-chan amqp.Delivery
	QueueName string
}

// NewConsumer declares sink's durable queue for catalogType, binds it to
// "{type}.*" on the exchange, sets Qos(prefetch), and starts consuming.
func (b *Bus) NewConsumer(sink, catalogType string, prefetch int) (*Consumer, error) {
	log := b.log.Function("NewConsumer")

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, log.Err("failed to open channel", err)
	}

	queueName := QueueName(sink, catalogType)
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return nil, log.Err("failed to declare queue", err, "queue", queueName)
	}

	bindingKey := fmt.Sprintf("%s.*", catalogType)
	if err := ch.QueueBind(q.Name, bindingKey, ExchangeName, false, nil); err != nil {
		return nil, log.Err("failed to bind queue", err, "queue", queueName, "bindingKey", bindingKey)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, log.Err("failed to set qos", err, "queue", queueName)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, log.Err("failed to start consuming", err, "queue", queueName)
	}

	log.Info("consumer started", "queue", queueName, "bindingKey", bindingKey, "prefetch", prefetch)
	return &Consumer{Channel: ch, Deliveries: deliveries, QueueName: queueName}, nil
}

// DeclareDLQ declares sink's dead-letter queue, used once a message's
// redelivery count exceeds the configured threshold.
func (b *Bus) DeclareDLQ(sink string) (*amqp.Channel, string, error) {
	log := b.log.Function("DeclareDLQ")

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, "", log.Err("failed to open dlq channel", err)
	}

	name := "discogsography-" + sink + DLQSuffix
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, "", log.Err("failed to declare dlq", err, "queue", name)
	}

	return ch, name, nil
}

// Publish publishes body as JSON to the exchange under routingKey.
func (b *Bus) Publish(ctx context.Context, routingKey string, body []byte) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return b.log.Err("failed to open publish channel", err)
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

// PublishDirect publishes directly to a named queue (used for DLQ
// shunting, which bypasses the exchange's topic routing).
func (b *Bus) PublishDirect(ctx context.Context, ch *amqp.Channel, queueName string, body []byte) error {
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

// RedeliveryCount reads the x-death header's delivery count, used to
// detect poison messages per spec.md §7.
func RedeliveryCount(d amqp.Delivery) int {
	xDeath, ok := d.Headers["x-death"].([]interface{})
	if !ok || len(xDeath) == 0 {
		return 0
	}
	first, ok := xDeath[0].(amqp.Table)
	if !ok {
		return 0
	}
	count, ok := first["count"].(int64)
	if !ok {
		return 0
	}
	return int(count)
}

func (b *Bus) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
