package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/pranhealth/drai/pkg/logging"
)

// Guard enforces at-most-once processing and delivery on top of a Store. The
// guard itself never returns errors: a failing store suppresses nothing on the
// inbound side and fails open only for the per-delivery counter, so a broken
// cache cannot permanently mute a sender.
type Guard struct {
	store  Store
	logger *logging.Logger
}

// NewGuard wires a Guard around the supplied store.
func NewGuard(store Store, logger *logging.Logger) *Guard {
	if store == nil {
		panic("idempotency: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{store: store, logger: logger}
}

// ShouldAcceptInbound reports whether the (sender, raw message) pair should be
// processed at all. A false return means a duplicate event arrived inside the
// re-entrancy window and the caller must emit no response.
func (g *Guard) ShouldAcceptInbound(ctx context.Context, senderID, rawMessage string) bool {
	fp := Fingerprint(senderID, rawMessage)
	ok, err := g.store.CheckAndMarkInbound(ctx, fp)
	if err != nil {
		g.logger.Error("inbound dedup check failed, accepting", "sender_id", senderID, "error", err)
		return true
	}
	if !ok {
		g.logger.Warn("duplicate inbound event suppressed", "sender_id", senderID)
	}
	return ok
}

// Delivery tracks outbound sends for a single pipeline invocation. At most one
// send is permitted per invocation regardless of content.
type Delivery struct {
	guard *Guard

	mu   sync.Mutex
	sent int
}

// NewDelivery starts a fresh per-invocation send budget.
func (g *Guard) NewDelivery() *Delivery {
	return &Delivery{guard: g}
}

// TrySend reports whether the response may be delivered. It is false when the
// invocation already sent a message, or when the same (sender, content) pair
// was delivered inside the outbound window.
func (d *Delivery) TrySend(ctx context.Context, senderID, responseText string) bool {
	if responseText == "" {
		return false
	}

	d.mu.Lock()
	if d.sent >= 1 {
		d.mu.Unlock()
		d.guard.logger.Warn("send budget exhausted for invocation", "sender_id", senderID)
		return false
	}
	d.sent++
	d.mu.Unlock()

	fp := Fingerprint(senderID, responseText)
	ok, err := d.guard.store.CheckAndMarkOutbound(ctx, fp)
	if err != nil {
		// Fail open: the counter increment above still holds the
		// one-send-per-invocation invariant.
		d.guard.logger.Error("outbound dedup check failed, sending", "sender_id", senderID, "error", err)
		return true
	}
	if !ok {
		d.guard.logger.Warn("duplicate response suppressed", "sender_id", senderID)
		// Give the budget back so a differently-worded retry from the
		// caller is not blocked by this suppression.
		d.mu.Lock()
		d.sent--
		d.mu.Unlock()
	}
	return ok
}

// Fingerprint derives the dedup key for a (sender, text) pair.
func Fingerprint(senderID, text string) string {
	sum := sha256.Sum256([]byte(senderID + "\n" + text))
	return hex.EncodeToString(sum[:])
}
