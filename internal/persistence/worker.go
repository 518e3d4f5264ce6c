package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"ScySettle/internal/ingestion"
	"ScySettle/internal/observability"
)

// CoreOutput mirrors core.CoreOutput to avoid an import cycle.
// The orchestrator (cmd/scysettle) bridges between core.CoreOutput and this.
type CoreOutput struct {
	InstrRow    InstrRow
	JournalRows []JournalRow
	// Notification, when set, is forwarded to the outbound publisher after
	// the batch containing this instruction has committed.
	Notification *ingestion.SettledNotification
}

// PersistenceWorker drains the persist channel and batch-writes to Postgres.
// It runs independently from the settlement core. The persist channel uses
// BLOCKING sends from the core, so if this worker falls behind, the core
// stalls — guaranteeing no instruction is lost.
type PersistenceWorker struct {
	writer       *InstrLogWriter
	inputChan    <-chan CoreOutput
	notifyChan   chan<- ingestion.SettledNotification
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewPersistenceWorker(
	db *sql.DB,
	inputChan <-chan CoreOutput,
	notifyChan chan<- ingestion.SettledNotification,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *PersistenceWorker {
	return &PersistenceWorker{
		writer:       NewInstrLogWriter(db, batchSize, flushTimeout),
		inputChan:    inputChan,
		notifyChan:   notifyChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the persistence worker loop. It batches incoming outputs and
// flushes either when the batch is full or the flush timeout expires.
// Blocks until ctx is cancelled.
func (pw *PersistenceWorker) Run(ctx context.Context) error {
	instrBatch := make([]InstrRow, 0, pw.batchSize)
	journalBatch := make([]JournalRow, 0, pw.batchSize*4) // ~4 journals per instruction avg
	pendingNotify := make([]ingestion.SettledNotification, 0, pw.batchSize)

	timer := time.NewTimer(pw.flushTimeout)
	defer timer.Stop()

	drain := func(ctx context.Context) {
		if len(instrBatch) == 0 {
			return
		}
		if err := pw.flushWithRetry(ctx, instrBatch, journalBatch); err != nil {
			log.Printf("ERROR: batch flush failed after retries: %v", err)
		} else {
			pw.forwardNotifications(pendingNotify)
		}
		instrBatch = instrBatch[:0]
		journalBatch = journalBatch[:0]
		pendingNotify = pendingNotify[:0]
	}

	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown: flush remaining with a background context
			drain(context.Background())
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				drain(context.Background())
				return nil
			}

			instrBatch = append(instrBatch, output.InstrRow)
			journalBatch = append(journalBatch, output.JournalRows...)
			if output.Notification != nil {
				pendingNotify = append(pendingNotify, *output.Notification)
			}

			if len(instrBatch) >= pw.batchSize {
				drain(ctx)
				timer.Reset(pw.flushTimeout)
			}

		case <-timer.C:
			drain(ctx)
			timer.Reset(pw.flushTimeout)
		}
	}
}

// forwardNotifications hands settled notifications to the outbound publisher.
// Sends are non-blocking: the publisher is best-effort and must never stall
// the persistence path.
func (pw *PersistenceWorker) forwardNotifications(notifications []ingestion.SettledNotification) {
	if pw.notifyChan == nil {
		return
	}
	for _, n := range notifications {
		select {
		case pw.notifyChan <- n:
		default:
			if pw.metrics != nil {
				pw.metrics.PublishDrops.Inc()
			}
		}
	}
}

// flushWithRetry attempts to flush with exponential backoff. The worker never
// drops instructions: it retries until the write succeeds or the context is
// cancelled, then makes one final attempt with a background context.
func (pw *PersistenceWorker) flushWithRetry(ctx context.Context, instrs []InstrRow, journals []JournalRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: persistence retry attempt %d (backoff=%v, instrs=%d)",
				attempt, backoff, len(instrs))
			if pw.metrics != nil {
				pw.metrics.PersistRetry.Inc()
			}
			select {
			case <-ctx.Done():
				finalErr := pw.flush(context.Background(), instrs, journals)
				if finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := pw.flush(ctx, instrs, journals)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: persistence flush succeeded after %d retries", attempt)
			}
			return nil
		}
	}
}

func (pw *PersistenceWorker) flush(ctx context.Context, instrs []InstrRow, journals []JournalRow) error {
	start := time.Now()

	// Instructions and journals commit atomically
	tx, err := pw.writer.db.BeginTx(ctx, nil)
	if err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := pw.writer.WriteInstrBatch(ctx, tx, instrs); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_instructions").Inc()
		}
		return err
	}

	if err := pw.writer.WriteJournalBatch(ctx, tx, journals); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_journals").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if pw.metrics != nil {
		pw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		pw.metrics.PersistBatchSize.Observe(float64(len(instrs)))
		pw.metrics.PersistInstrWritten.Add(float64(len(instrs)))
		pw.metrics.PersistJournalsWritten.Add(float64(len(journals)))
		if len(instrs) > 0 {
			pw.metrics.PersistLastSequence.Set(float64(instrs[len(instrs)-1].Sequence))
		}
	}

	return nil
}

// GetWriter returns the underlying writer for recovery queries.
func (pw *PersistenceWorker) GetWriter() *InstrLogWriter {
	return pw.writer
}
