package projection

import "sync"

// PurchaseHistoryEntry is one settled buy kept in the in-memory history.
type PurchaseHistoryEntry struct {
	Sequence      int64
	Buyer         string
	PayAsset      string
	PayAmount     int64
	SaleAmount    int64
	QuoteMantissa int64
	QuoteExponent int32
	Timestamp     int64
}

// PurchaseHistory keeps a capped in-memory window of recent purchases so the
// query surface can serve hot reads without touching Postgres. Older entries
// live in projections.purchases. Safe for one writer and many readers.
type PurchaseHistory struct {
	mu      sync.RWMutex
	entries []PurchaseHistoryEntry
	cap     int
}

func NewPurchaseHistory(capacity int) *PurchaseHistory {
	return &PurchaseHistory{
		entries: make([]PurchaseHistoryEntry, 0, capacity),
		cap:     capacity,
	}
}

// Add records a purchase, evicting the oldest entry when at capacity.
func (p *PurchaseHistory) Add(entry PurchaseHistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) >= p.cap {
		p.entries = p.entries[1:]
	}
	p.entries = append(p.entries, entry)
}

// Recent returns up to limit purchases, newest first.
func (p *PurchaseHistory) Recent(limit int) []PurchaseHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]PurchaseHistoryEntry, 0, limit)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, p.entries[i])
	}
	return result
}

// QueryByBuyer returns up to limit purchases for a buyer, newest first.
func (p *PurchaseHistory) QueryByBuyer(buyer string, limit int) []PurchaseHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]PurchaseHistoryEntry, 0, limit)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].Buyer == buyer {
			result = append(result, p.entries[i])
		}
	}
	return result
}
