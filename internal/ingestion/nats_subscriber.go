package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds
// instructions into the settlement core via the instrChan.
// NATS JetStream is the primary high-throughput ingestion surface: the
// chain-side relayer publishes each observed instruction to its subject.
type NATSSubscriber struct {
	js        jetstream.JetStream
	instrChan chan<- RawInstruction
	consumers []jetstream.ConsumeContext
}

// RawInstruction is the received-but-untyped instruction from NATS, ready
// for the shell to parse and signature-check before sending to the core.
type RawInstruction struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to instruction types.
type SubjectConfig struct {
	Subject      string
	InstrType    string
	ConsumerName string
	StreamName   string
}

// InstrStreamName is the inbound instruction stream.
const InstrStreamName = "SCY_INSTR"

// DefaultSubjects returns the standard subject configuration.
// Each instruction type has its own subject for independent consumers.
func DefaultSubjects() []SubjectConfig {
	types := []string{
		"initialize_state",
		"initialize_vault",
		"deposit",
		"withdraw",
		"update_admin",
		"buy_native",
		"buy_token",
		"close_vault",
		"close_state",
		"sample",
		"wallet_credit",
	}

	configs := make([]SubjectConfig, 0, len(types))
	for _, t := range types {
		configs = append(configs, SubjectConfig{
			Subject:      fmt.Sprintf("scy.instr.%s", t),
			InstrType:    t,
			ConsumerName: fmt.Sprintf("settle-%s", t),
			StreamName:   InstrStreamName,
		})
	}
	return configs
}

// InstrTypeForSubject maps a subject back to its instruction type string.
func InstrTypeForSubject(subject string, configs []SubjectConfig) (string, bool) {
	for _, cfg := range configs {
		if cfg.Subject == subject {
			return cfg.InstrType, true
		}
	}
	return "", false
}

func NewNATSSubscriber(js jetstream.JetStream, instrChan chan<- RawInstruction) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		instrChan: instrChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawInstruction{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.instrChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't exist.
// Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      InstrStreamName,
			Subjects:  []string{"scy.instr.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
