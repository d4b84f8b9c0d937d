package collector

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"permanode/internal/config"
	"permanode/internal/logging"
	"permanode/pkg/types"
)

// EventKind distinguishes the two upstream events the collector reacts to.
type EventKind int

const (
	EventMessage EventKind = iota
	EventMessageReferenced
)

// Event is one item off the broker feed, already decoded into the shape
// Collector.OnMessage/OnMessageReferenced expects. Decoding the ledger's
// binary wire format into this shape is the feed adapter's job; the
// collector never sees raw bytes.
type Event struct {
	Kind     EventKind
	Message  types.Message
	Payload  *types.DecodedPayload
	Metadata types.MessageMetadata
}

// BrokerFeed decouples the collector's event loop from the concrete
// transport. The MQTT/REST fan-in itself is out of scope per spec.md §1;
// this interface is the declared boundary.
type BrokerFeed interface {
	Events() <-chan Event
	Run(ctx context.Context) error
	Close() error
}

// wireMessage is this adapter's JSON envelope for a Message event. Any
// real deployment swaps this for the ledger's actual binary codec; the
// collector is agnostic to the wire format, only to the decoded Event.
type wireMessage struct {
	MessageID string              `json:"message_id"`
	ParentIDs []string            `json:"parent_ids"`
	Payload   []byte              `json:"payload"`
	Decoded   *types.DecodedPayload `json:"decoded_payload,omitempty"`
}

type wireMetadata struct {
	MessageID      string `json:"message_id"`
	ReferencedBy   uint32 `json:"referenced_by_milestone_index"`
	InclusionState string `json:"inclusion_state"`
}

// PahoFeed subscribes to an MQTT broker and decodes its two topics
// (messages, message-metadata) into Events on a bounded channel.
type PahoFeed struct {
	client mqtt.Client
	topics []string
	events chan Event
	log    *logging.EnhancedLogger
}

// NewPahoFeed builds a feed from BrokerConfig. The event channel holds
// 10000 events; the capacity is fixed and not read from cfg. Every topic in
// cfg.Topics is subscribed with the same handler, which tells a message from
// a metadata record by the payload's shape, not by the topic it arrived on.
func NewPahoFeed(cfg config.BrokerConfig) *PahoFeed {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetKeepAlive(cfg.KeepAlive).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	f := &PahoFeed{
		topics: cfg.Topics,
		events: make(chan Event, 10000),
		log:    logging.CollectorLogger,
	}
	opts.SetDefaultPublishHandler(f.handle)
	f.client = mqtt.NewClient(opts)
	return f
}

func (f *PahoFeed) Events() <-chan Event { return f.events }

// Run connects and subscribes, blocking until ctx is cancelled.
func (f *PahoFeed) Run(ctx context.Context) error {
	if token := f.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("collector: mqtt connect: %w", token.Error())
	}
	for _, topic := range f.topics {
		if token := f.client.Subscribe(topic, 1, f.handle); token.Wait() && token.Error() != nil {
			return fmt.Errorf("collector: mqtt subscribe %s: %w", topic, token.Error())
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *PahoFeed) Close() error {
	f.client.Disconnect(250)
	close(f.events)
	return nil
}

func (f *PahoFeed) handle(_ mqtt.Client, msg mqtt.Message) {
	var asMessage wireMessage
	if err := json.Unmarshal(msg.Payload(), &asMessage); err == nil && asMessage.MessageID != "" && len(asMessage.ParentIDs) > 0 {
		f.events <- Event{
			Kind: EventMessage,
			Message: types.Message{
				MessageID: asMessage.MessageID,
				ParentIDs: asMessage.ParentIDs,
				Payload:   asMessage.Payload,
			},
			Payload: asMessage.Decoded,
		}
		return
	}

	var asMetadata wireMetadata
	if err := json.Unmarshal(msg.Payload(), &asMetadata); err == nil && asMetadata.MessageID != "" {
		f.events <- Event{
			Kind: EventMessageReferenced,
			Metadata: types.MessageMetadata{
				MessageID:      asMetadata.MessageID,
				ReferencedBy:   types.MilestoneIndex(asMetadata.ReferencedBy),
				InclusionState: types.InclusionState(asMetadata.InclusionState),
			},
		}
		return
	}

	f.log.Error("collector: unrecognized feed payload", "topic", msg.Topic())
}

// Run drives events off feed into the collector until the feed closes or
// ctx is cancelled.
func Run(ctx context.Context, c *Collector, feed BrokerFeed) error {
	events := feed.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case EventMessage:
				_ = c.OnMessage(ctx, ev.Message.MessageID, ev.Message, ev.Payload)
			case EventMessageReferenced:
				_ = c.OnMessageReferenced(ctx, ev.Metadata)
			}
		}
	}
}
