package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/internal/bitcoinrpc"
	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/store/memstore"
	"github.com/rawblock/yuvd/internal/testkit"
)

type recordingSub struct {
	mu         sync.Mutex
	heights    []int64
	shouldFail bool
	failAt     int64
}

func (r *recordingSub) Index(_ context.Context, _ *bitcoinrpc.BlockTxs, height int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shouldFail && height == r.failAt {
		return errBoom
	}
	r.heights = append(r.heights, height)
	return nil
}

var errBoom = errors.New("indexer_test: sub-indexer failure")

func TestInitWalksEveryBlockFromGenesisInOrder(t *testing.T) {
	rpc := testkit.NewMockRPC()
	for i := 0; i < 5; i++ {
		rpc.AppendBlock(wire.NewMsgTx(2))
	}
	st := memstore.New()
	sub := &recordingSub{}
	ix := New(rpc, st, bus.New(), Params{Net: &chaincfg.RegressionNetParams, ChunkSize: 2, WorkersNumber: 2}, sub)

	if err := ix.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(sub.heights) != 5 {
		t.Fatalf("indexed %d blocks, want 5", len(sub.heights))
	}
	for i, h := range sub.heights {
		if h != int64(i) {
			t.Fatalf("heights = %v, want ascending contiguous from 0", sub.heights)
		}
	}

	last, ok, err := st.LastIndexed(context.Background())
	if err != nil || !ok {
		t.Fatalf("LastIndexed: ok=%v err=%v", ok, err)
	}
	best, _ := rpc.GetBestBlockHash()
	if last != best {
		t.Fatalf("LastIndexed = %x, want tip %x", last, best)
	}
}

func TestInitRespectsYuvGenesis(t *testing.T) {
	rpc := testkit.NewMockRPC()
	for i := 0; i < 4; i++ {
		rpc.AppendBlock(wire.NewMsgTx(2))
	}
	st := memstore.New()
	sub := &recordingSub{}
	ix := New(rpc, st, bus.New(), Params{Net: &chaincfg.RegressionNetParams, YuvGenesis: 2, ChunkSize: 10, WorkersNumber: 1}, sub)

	if err := ix.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(sub.heights) != 2 || sub.heights[0] != 2 || sub.heights[1] != 3 {
		t.Fatalf("heights = %v, want [2 3]", sub.heights)
	}
}

func TestTickAdvancesTipByOneBlock(t *testing.T) {
	rpc := testkit.NewMockRPC()
	rpc.AppendBlock(wire.NewMsgTx(2))
	st := memstore.New()
	sub := &recordingSub{}
	ix := New(rpc, st, bus.New(), Params{Net: &chaincfg.RegressionNetParams, WorkersNumber: 1}, sub)

	if err := ix.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	rpc.AppendBlock(wire.NewMsgTx(2))
	ix.tick(context.Background())

	if len(sub.heights) != 2 || sub.heights[1] != 1 {
		t.Fatalf("heights after tick = %v, want [0 1]", sub.heights)
	}
}

func TestIndexBlockFailureDoesNotAdvanceTip(t *testing.T) {
	rpc := testkit.NewMockRPC()
	rpc.AppendBlock(wire.NewMsgTx(2))
	st := memstore.New()
	sub := &recordingSub{shouldFail: true, failAt: 0}
	ix := New(rpc, st, bus.New(), Params{Net: &chaincfg.RegressionNetParams, WorkersNumber: 1}, sub)

	if err := ix.Init(context.Background()); err == nil {
		t.Fatal("Init must fail when the sub-indexer rejects the only block")
	}
	if _, ok, err := st.LastIndexed(context.Background()); err != nil || ok {
		t.Fatalf("LastIndexed: ok=%v err=%v, want no tip recorded after a failed block", ok, err)
	}
}

func TestBlockIndexedEventEmittedPerBlock(t *testing.T) {
	rpc := testkit.NewMockRPC()
	rpc.AppendBlock(wire.NewMsgTx(2))
	rpc.AppendBlock(wire.NewMsgTx(2))
	st := memstore.New()
	b := bus.New()
	events := bus.Subscribe[BlockIndexed](b, 10)
	ix := New(rpc, st, b, Params{Net: &chaincfg.RegressionNetParams, WorkersNumber: 1}, &recordingSub{})

	if err := ix.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got []int64
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			got = append(got, ev.Height)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for BlockIndexed")
		}
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("BlockIndexed heights = %v, want [0 1]", got)
	}
}
