package attacher

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/store/memstore"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// issueTx builds a self-contained Issue tx; nonce makes its txid unique.
func issueTx(nonce int64) *yuv.Tx {
	btx := wire.NewMsgTx(2)
	btx.LockTime = uint32(nonce)
	btx.AddTxOut(&wire.TxOut{Value: 1000, PkScript: []byte{0x00}})
	return &yuv.Tx{
		Bitcoin: btx,
		Type:    yuv.TxTypeIssue,
		Issue:   &yuv.IssueData{OutputProofs: map[uint32]yuv.PixelProof{0: {}}},
	}
}

// transferTx builds a Transfer spending parent's sole output.
func transferTx(parent *yuv.Tx, nonce int64) *yuv.Tx {
	parentHash := parent.Bitcoin.TxHash()
	btx := wire.NewMsgTx(2)
	btx.LockTime = uint32(nonce)
	btx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash(parentHash), Index: 0}})
	btx.AddTxOut(&wire.TxOut{Value: 1000, PkScript: []byte{0x00}})
	return &yuv.Tx{
		Bitcoin: btx,
		Type:    yuv.TxTypeTransfer,
		Transfer: &yuv.TransferData{
			InputProofs:  map[uint32]yuv.PixelProof{0: {}},
			OutputProofs: map[uint32]yuv.PixelProof{0: {}},
		},
	}
}

func freezeTx(outpoint yuv.Outpoint, nonce int64) *yuv.Tx {
	btx := wire.NewMsgTx(2)
	btx.LockTime = uint32(nonce)
	btx.AddTxOut(&wire.TxOut{Value: 0, PkScript: []byte{0x6a}})
	return &yuv.Tx{
		Bitcoin:  btx,
		Type:     yuv.TxTypeAnnouncement,
		Announce: &yuv.AnnouncementData{Freeze: &yuv.FreezeAnnouncement{Outpoint: outpoint}},
	}
}

func newAttacher() *Attacher {
	return New(memstore.New(), bus.New(), Params{})
}

func TestAttachTxsOutOfOrderTransferWaitsForParent(t *testing.T) {
	ctx := context.Background()
	a := newAttacher()
	parent := issueTx(1)
	child := transferTx(parent, 2)

	if err := a.AttachTxs(ctx, []*yuv.Tx{child}); err != nil {
		t.Fatalf("AttachTxs(child): %v", err)
	}
	childID := txHash(child)
	if a.isAttached(ctx, childID) {
		t.Fatal("child must not attach before its parent does")
	}

	if err := a.AttachTxs(ctx, []*yuv.Tx{parent}); err != nil {
		t.Fatalf("AttachTxs(parent): %v", err)
	}
	if !a.isAttached(ctx, childID) {
		t.Fatal("child must attach once its parent is attached")
	}
}

func TestAttachTxsReplayIsNoOp(t *testing.T) {
	ctx := context.Background()
	a := newAttacher()
	parent := issueTx(1)

	if err := a.AttachTxs(ctx, []*yuv.Tx{parent}); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	page, err := a.store.Page(ctx, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("page length = %d, want 1", len(page))
	}

	// Replaying the exact same batch must be a no-op: no duplicate page
	// entry, no error.
	if err := a.AttachTxs(ctx, []*yuv.Tx{parent}); err != nil {
		t.Fatalf("replay attach: %v", err)
	}
	page, err = a.store.Page(ctx, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("page length after replay = %d, want 1 (no duplicate)", len(page))
	}
}

func TestAttachTxsReplayDoesNotFlipFreezeParity(t *testing.T) {
	ctx := context.Background()
	a := newAttacher()
	outpoint := yuv.Outpoint{Txid: chainhash.Hash{9}, Vout: 0}
	freeze := freezeTx(outpoint, 1)

	if err := a.AttachTxs(ctx, []*yuv.Tx{freeze}); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	entry, ok, err := a.store.Frozen(ctx, outpoint)
	if err != nil || !ok {
		t.Fatalf("Frozen: ok=%v err=%v", ok, err)
	}
	if len(entry.TxIDs) != 1 {
		t.Fatalf("TxIDs = %v, want exactly one toggle after the first attach", entry.TxIDs)
	}

	if err := a.AttachTxs(ctx, []*yuv.Tx{freeze}); err != nil {
		t.Fatalf("replay attach: %v", err)
	}
	entry, ok, err = a.store.Frozen(ctx, outpoint)
	if err != nil || !ok {
		t.Fatalf("Frozen after replay: ok=%v err=%v", ok, err)
	}
	if len(entry.TxIDs) != 1 {
		t.Fatalf("TxIDs = %v, a replayed freeze toggle must not double-append", entry.TxIDs)
	}
}

func TestAttachTxsReplayOfAttachedParentsTransferIsNoOp(t *testing.T) {
	ctx := context.Background()
	a := newAttacher()
	parent := issueTx(1)
	child := transferTx(parent, 2)

	if err := a.AttachTxs(ctx, []*yuv.Tx{parent, child}); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	childID := txHash(child)
	if !a.isAttached(ctx, childID) {
		t.Fatal("child must be attached once its parent is in the same batch")
	}

	// Replay the same batch: both parent and child are already attached,
	// so this must change nothing and emit no second page entry.
	if err := a.AttachTxs(ctx, []*yuv.Tx{parent, child}); err != nil {
		t.Fatalf("replay attach: %v", err)
	}
	count, err := a.store.PageCount(ctx)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	var total int
	for i := uint64(0); i < count; i++ {
		page, err := a.store.Page(ctx, i)
		if err != nil {
			t.Fatalf("Page(%d): %v", i, err)
		}
		total += len(page)
	}
	if total != 2 {
		t.Fatalf("total paged txids = %d, want 2 (no duplicates across replay)", total)
	}
}
