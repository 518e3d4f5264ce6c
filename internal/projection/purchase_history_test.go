package projection_test

import (
	"fmt"
	"testing"

	"ScySettle/internal/projection"
)

func TestPurchaseHistory_NewestFirstAndCapped(t *testing.T) {
	h := projection.NewPurchaseHistory(3)

	for seq := int64(0); seq < 5; seq++ {
		h.Add(projection.PurchaseHistoryEntry{
			Sequence: seq,
			Buyer:    fmt.Sprintf("buyer-%d", seq%2),
			PayAsset: "SOL",
		})
	}

	recent := h.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("len(recent) = %d, want 3 (capped)", len(recent))
	}
	for i, want := range []int64{4, 3, 2} {
		if recent[i].Sequence != want {
			t.Errorf("recent[%d].Sequence = %d, want %d", i, recent[i].Sequence, want)
		}
	}

	limited := h.Recent(1)
	if len(limited) != 1 || limited[0].Sequence != 4 {
		t.Errorf("Recent(1) = %+v, want newest entry only", limited)
	}
}

func TestPurchaseHistory_QueryByBuyer(t *testing.T) {
	h := projection.NewPurchaseHistory(10)

	for seq := int64(0); seq < 6; seq++ {
		h.Add(projection.PurchaseHistoryEntry{
			Sequence: seq,
			Buyer:    fmt.Sprintf("buyer-%d", seq%2),
		})
	}

	got := h.QueryByBuyer("buyer-1", 10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int64{5, 3, 1} {
		if got[i].Sequence != want {
			t.Errorf("got[%d].Sequence = %d, want %d", i, got[i].Sequence, want)
		}
	}

	if none := h.QueryByBuyer("buyer-9", 10); len(none) != 0 {
		t.Errorf("unknown buyer returned %d entries", len(none))
	}
}
