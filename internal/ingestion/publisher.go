package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher publishes settled instructions to NATS for downstream
// consumers (notification services, analytics). Outbound notifications are
// published after persistence is confirmed.
// Subjects follow the pattern: scy.settled.{instr_type}
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan SettledNotification
}

// SettledNotification is a processed instruction ready for outbound publishing.
type SettledNotification struct {
	Sequence       int64     `json:"sequence"`
	InstrType      string    `json:"instr_type"`
	IdempotencyKey string    `json:"idempotency_key"`
	Buyer          string    `json:"buyer,omitempty"`
	PayAsset       string    `json:"pay_asset,omitempty"`
	PayAmount      int64     `json:"pay_amount,omitempty"`
	SaleAmount     int64     `json:"sale_amount,omitempty"`
	QuoteUSD       string    `json:"quote_usd,omitempty"`
	StateHash      []byte    `json:"state_hash"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan SettledNotification) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, n); err != nil {
				log.Printf("WARN: outbound publish failed seq=%d: %v", n.Sequence, err)
				// Non-fatal: downstream consumers can query the instruction log directly
			}
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, n SettledNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	subject := fmt.Sprintf("scy.settled.%s", n.InstrType)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound notifications stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "SCY_SETTLED",
		Subjects:  []string{"scy.settled.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream SCY_SETTLED")
	return nil
}
