package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/checker"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// TestHarnessRejectsUnclassifiedTx drives a Harness-backed checker.Pool
// with a tx that carries no Issue/Transfer/Announce payload, the
// simplest shape validator.Check is guaranteed to reject, and confirms
// it surfaces on bus.InvalidTxs rather than bus.CheckedTxs.
func TestHarnessRejectsUnclassifiedTx(t *testing.T) {
	h := New()
	pool := checker.New(h.Store, h.Bus, h.RPC, h.Net, 1)

	checkedCh := bus.Subscribe[bus.CheckedTxs](h.Bus, 1)
	invalidCh := bus.Subscribe[bus.InvalidTxs](h.Bus, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx)

	tx := &yuv.Tx{Bitcoin: wire.NewMsgTx(2)}
	bus.Send(h.Bus, bus.NewTxs{Txs: []*yuv.Tx{tx}})

	select {
	case invalid := <-invalidCh:
		if len(invalid.Ids) != 1 {
			t.Fatalf("InvalidTxs.Ids = %v, want exactly 1 entry", invalid.Ids)
		}
	case <-checkedCh:
		t.Fatal("unclassified tx should not reach CheckedTxs")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for checker result")
	}
}
