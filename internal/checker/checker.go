// Package checker is the stage-1 concurrent checking worker pool of
// SPEC_FULL.md §4.4: a fixed-size set of identical workers, each
// consuming NewTxs batches, running the isolated validator plus the
// on-chain checks, and fanning results out to the DAG attacher and
// controller. The fixed worker-pool-over-a-channel shape follows the
// teacher's mempool poller run loop, generalized from a single ticker-
// driven goroutine to N goroutines sharing one input channel.
package checker

import (
	"context"
	"log"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/rawblock/yuvd/internal/bitcoinrpc"
	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/internal/validator"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// Pool is the fixed-size checker worker pool.
type Pool struct {
	store store.Store
	bus   *bus.Bus
	rpc   bitcoinrpc.RPC
	net   *chaincfg.Params
	size  int
	input <-chan bus.NewTxs
}

// DefaultPoolSize is the spec's default worker count.
const DefaultPoolSize = 10

// New builds a Pool of size workers (DefaultPoolSize if size <= 0),
// subscribed to NewTxs on b.
func New(st store.Store, b *bus.Bus, rpc bitcoinrpc.RPC, net *chaincfg.Params, size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		store: st,
		bus:   b,
		rpc:   rpc,
		net:   net,
		size:  size,
		input: bus.Subscribe[bus.NewTxs](b, 1000),
	}
}

// Run starts size worker goroutines and blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	done := make(chan struct{}, p.size)
	for i := 0; i < p.size; i++ {
		go func() {
			p.worker(ctx)
			done <- struct{}{}
		}()
	}
	for i := 0; i < p.size; i++ {
		<-done
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-p.input:
			if !ok {
				return
			}
			p.processBatch(ctx, batch)
		}
	}
}

func (p *Pool) processBatch(ctx context.Context, batch bus.NewTxs) {
	var accepted []*yuv.Tx
	var invalidIDs [][32]byte
	var missingParents [][32]byte

	inBatch := make(map[[32]byte]struct{}, len(batch.Txs))
	for _, tx := range batch.Txs {
		inBatch[txHash(tx)] = struct{}{}
	}

	for _, tx := range batch.Txs {
		txid := txHash(tx)

		if err := validator.Check(tx, p.net); err != nil {
			p.markInvalid(ctx, txid, tx, err)
			invalidIDs = append(invalidIDs, txid)
			continue
		}

		parents, err := p.onChainCheck(ctx, tx)
		if err != nil {
			p.markInvalid(ctx, txid, tx, err)
			invalidIDs = append(invalidIDs, txid)
			continue
		}
		for _, parent := range parents {
			if _, ok := inBatch[parent]; !ok {
				missingParents = append(missingParents, parent)
			}
		}
		accepted = append(accepted, tx)
	}

	if len(accepted) > 0 {
		bus.Send(p.bus, bus.CheckedTxs{Txs: accepted})
	}
	if len(invalidIDs) > 0 {
		bus.Send(p.bus, bus.InvalidTxs{Ids: invalidIDs, Sender: batch.Sender})
	}
	if len(missingParents) > 0 && batch.Sender != nil {
		bus.Send(p.bus, bus.GetData{Txids: missingParents, Receiver: *batch.Sender})
	}
}

func (p *Pool) markInvalid(ctx context.Context, txid [32]byte, tx *yuv.Tx, err error) {
	log.Printf("checker: tx %x rejected: %v", txid, err)
	if putErr := p.store.PutInvalid(ctx, txid, tx); putErr != nil {
		log.Printf("checker: failed to record invalid tx %x: %v", txid, putErr)
	}
}

func txHash(tx *yuv.Tx) [32]byte {
	return [32]byte(tx.Bitcoin.TxHash())
}
