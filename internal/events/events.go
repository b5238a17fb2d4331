// Package events is a thin Valkey pub/sub wrapper used to push sync
// progress to connected websocket clients. Adapted from the teacher's
// internal/events package: the channel/message-type enums are trimmed to
// the sync-progress set this domain needs; the Valkey pub/sub transport
// and local-handler fan-out are kept as-is.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"discogsography/pkg/logger"
)

type Channel string

func (c Channel) String() string { return string(c) }

const (
	WebsocketChannel Channel = "websocket"
)

type MessageType string

const (
	SyncProgress MessageType = "sync_progress"
	SyncComplete MessageType = "sync_complete"
	SyncError    MessageType = "sync_error"
)

type Event struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Channel   Channel        `json:"channel"`
	UserID    *uuid.UUID     `json:"userId,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

type EventHandler func(event Event) error

type subscriber struct {
	id      uuid.UUID
	handler EventHandler
}

type EventBus struct {
	client   valkey.Client
	log      logger.Logger
	handlers map[Channel][]subscriber
	mutex    sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(client valkey.Client) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBus{
		client:   client,
		log:      logger.New("events"),
		handlers: make(map[Channel][]subscriber),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.log.Function("Publish")

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Channel == "" {
		event.Channel = channel
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancel := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancel()

	if err := eb.client.Do(ctx, eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()).Error(); err != nil {
		return log.Err("failed to publish event to valkey", err, "channel", channel, "eventID", event.ID)
	}

	eb.notifyLocalHandlers(channel, event)
	return nil
}

// Subscribe registers handler on channel and returns a subscription id for
// Unsubscribe. Used by the websocket sync-progress upgrade to attach a
// per-connection forwarder and detach it when the connection closes,
// rather than leaking one handler per connection for the life of the
// process.
func (eb *EventBus) Subscribe(channel Channel, handler EventHandler) uuid.UUID {
	id := uuid.New()

	eb.mutex.Lock()
	_, alreadyListening := eb.handlers[channel]
	eb.handlers[channel] = append(eb.handlers[channel], subscriber{id: id, handler: handler})
	eb.mutex.Unlock()

	if !alreadyListening {
		go eb.listenToChannel(channel)
	}
	return id
}

// Unsubscribe removes the handler registered under id.
func (eb *EventBus) Unsubscribe(channel Channel, id uuid.UUID) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subs := eb.handlers[channel]
	for i, sub := range subs {
		if sub.id == id {
			eb.handlers[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (eb *EventBus) notifyLocalHandlers(channel Channel, event Event) {
	log := eb.log.Function("notifyLocalHandlers")

	eb.mutex.RLock()
	subs := append([]subscriber(nil), eb.handlers[channel]...)
	eb.mutex.RUnlock()

	for i, sub := range subs {
		go func(h EventHandler, idx int) {
			if err := h(event); err != nil {
				log.Er("handler failed", err, "channel", channel, "eventID", event.ID, "handlerIndex", idx)
			}
		}(sub.handler, i)
	}
}

func (eb *EventBus) listenToChannel(channel Channel) {
	log := eb.log.Function("listenToChannel")
	ctx, cancel := context.WithCancel(eb.ctx)
	defer cancel()

	err := eb.client.Receive(ctx, eb.client.B().Subscribe().Channel(channel.String()).Build(), func(msg valkey.PubSubMessage) {
		var event Event
		if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
			log.Er("failed to unmarshal event", err, "channel", channel)
			return
		}
		eb.notifyLocalHandlers(channel, event)
	})
	if err != nil {
		log.Er("failed to listen to channel", err, "channel", channel)
	}
}

func (eb *EventBus) Close() error {
	eb.cancel()
	return nil
}
