package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rawblock/yuvd/internal/bitcoinrpc"
	"github.com/rawblock/yuvd/internal/bus"
)

// TxSeenOnChain is emitted for every tracked pending txid found in an
// indexed block; the txid leaves the pending set at the same time.
type TxSeenOnChain struct {
	Txid   chainhash.Hash
	Height int64
}

// PendingExpired is emitted when a pending tx has sat unconfirmed longer
// than max_confirmation_time.
type PendingExpired struct {
	Txid chainhash.Hash
}

// ConfirmationNotifier tracks pending (not-yet-attached) txids and, for
// every block, emits a seen-on-chain event for any of them it finds;
// entries older than MaxConfirmationTime are expired instead.
type ConfirmationNotifier struct {
	Bus                 *bus.Bus
	MaxConfirmationTime time.Duration

	mu      sync.Mutex
	pending map[chainhash.Hash]time.Time
}

var _ SubIndexer = (*ConfirmationNotifier)(nil)

// NewConfirmationNotifier builds a notifier with an empty pending set.
func NewConfirmationNotifier(b *bus.Bus, maxConfirmationTime time.Duration) *ConfirmationNotifier {
	return &ConfirmationNotifier{
		Bus:                 b,
		MaxConfirmationTime: maxConfirmationTime,
		pending:             make(map[chainhash.Hash]time.Time),
	}
}

// TrackPending registers a txid as awaiting confirmation, starting its
// expiry clock now.
func (n *ConfirmationNotifier) TrackPending(txid chainhash.Hash, now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending[txid] = now
}

func (n *ConfirmationNotifier) Index(_ context.Context, block *bitcoinrpc.BlockTxs, height int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	for _, tx := range block.Txs {
		txid := tx.TxHash()
		if _, ok := n.pending[txid]; ok {
			delete(n.pending, txid)
			bus.Send(n.Bus, TxSeenOnChain{Txid: txid, Height: height})
		}
	}

	for txid, since := range n.pending {
		if now.Sub(since) > n.MaxConfirmationTime {
			delete(n.pending, txid)
			bus.Send(n.Bus, PendingExpired{Txid: txid})
		}
	}
	return nil
}
