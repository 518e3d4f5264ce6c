package core

import (
	"fmt"
)

// SlotValidator validates source-chain slot ordering per partition.
// Slots are non-decreasing with gaps tolerated: many instructions land in
// one slot, and the chain skips slots freely.
// Not thread-safe — only accessed from the single-threaded settlement core.
type SlotValidator struct {
	lastSlot map[string]uint64 // partition -> highest slot seen
	metrics  *SlotMetrics
}

func NewSlotValidator() *SlotValidator {
	return &SlotValidator{
		lastSlot: make(map[string]uint64),
		metrics:  NewSlotMetrics(),
	}
}

// ValidateSlot checks slot ordering for an instruction
func (sv *SlotValidator) ValidateSlot(
	partition string,
	slot uint64,
	idempotencyKey string,
	isDuplicate bool,
) error {
	last := sv.lastSlot[partition]

	if slot < last {
		// Re-delivery of an already processed instruction is fine
		if isDuplicate {
			return nil
		}
		sv.metrics.RecordRegression(partition)
		return fmt.Errorf("slot regression: partition=%s, last=%d, got=%d (instr %s)",
			partition, last, slot, idempotencyKey)
	}

	if slot > last+1 && last != 0 {
		// Gap — tolerated, the chain skips slots
		sv.metrics.RecordGap(partition)
	}

	sv.lastSlot[partition] = slot
	return nil
}

// GetLastSlot returns the highest slot seen for a partition
func (sv *SlotValidator) GetLastSlot(partition string) uint64 {
	return sv.lastSlot[partition]
}

// RestorePartition initializes a partition's slot watermark (used during recovery)
func (sv *SlotValidator) RestorePartition(partition string, slot uint64) {
	sv.lastSlot[partition] = slot
}

// GetAllPartitions returns every partition watermark (for snapshots)
func (sv *SlotValidator) GetAllPartitions() map[string]uint64 {
	out := make(map[string]uint64, len(sv.lastSlot))
	for k, v := range sv.lastSlot {
		out[k] = v
	}
	return out
}

// --- Metrics ---

// SlotMetrics tracks slot validation stats.
// Not thread-safe — only accessed from the single-threaded settlement core.
type SlotMetrics struct {
	gaps        map[string]int64 // partition -> gap count
	regressions map[string]int64 // partition -> regression count
}

func NewSlotMetrics() *SlotMetrics {
	return &SlotMetrics{
		gaps:        make(map[string]int64),
		regressions: make(map[string]int64),
	}
}

func (m *SlotMetrics) RecordGap(partition string) {
	m.gaps[partition]++
}

func (m *SlotMetrics) RecordRegression(partition string) {
	m.regressions[partition]++
}

func (m *SlotMetrics) GetGaps(partition string) int64 {
	return m.gaps[partition]
}

func (m *SlotMetrics) GetRegressions(partition string) int64 {
	return m.regressions[partition]
}
