// Package indexer is the block indexer of SPEC_FULL.md §4.3: it walks
// confirmed Bitcoin blocks in order, feeding each one through a
// registered list of sub-indexers, and persists the last indexed tip
// after every block. Its polling-ticker-plus-cancellation run loop and
// its progress bookkeeping follow internal/scanner/block_scanner.go and
// internal/mempool/poller.go; the parallel ranged fetch is new (the
// teacher scans sequentially) and is built on golang.org/x/sync/errgroup,
// already present in the dependency graph.
package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/yuvd/internal/bitcoinrpc"
	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/store"
)

// SubIndexer is the per-block contract of SPEC_FULL.md §4.3: given a
// fetched block, do whatever bookkeeping it owns, failing the whole
// block on error so the tip is not advanced past it.
type SubIndexer interface {
	Index(ctx context.Context, block *bitcoinrpc.BlockTxs, height int64) error
}

// Params configures one Indexer instance.
type Params struct {
	Net             *chaincfg.Params
	YuvGenesis      int64 // height of the first block that can carry yuv data
	ChunkSize       int64
	WorkersNumber   int
	MaxRestarts     int
	RestartInterval time.Duration
}

// Indexer implements init/run from SPEC_FULL.md §4.3.
type Indexer struct {
	rpc    bitcoinrpc.RPC
	store  store.Store
	bus    *bus.Bus
	params Params
	subs   []SubIndexer
}

// New registers subIndexers in the order they must run against every block.
func New(rpc bitcoinrpc.RPC, st store.Store, b *bus.Bus, params Params, subIndexers ...SubIndexer) *Indexer {
	return &Indexer{rpc: rpc, store: st, bus: b, params: params, subs: subIndexers}
}

// Init blocks until the indexer has caught up to the chain tip observed
// at call time, fetching in parallel chunks via the Block Loader.
func (ix *Indexer) Init(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= ix.params.MaxRestarts; attempt++ {
		if attempt > 0 {
			log.Printf("indexer: init attempt %d/%d after error: %v", attempt+1, ix.params.MaxRestarts+1, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ix.params.RestartInterval):
			}
		}
		if err := ix.runInit(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("indexer: init failed after %d attempts: %w", ix.params.MaxRestarts+1, lastErr)
}

func (ix *Indexer) runInit(ctx context.Context) error {
	start, err := ix.startHeight(ctx)
	if err != nil {
		return err
	}

	bestHash, err := ix.rpc.GetBestBlockHash()
	if err != nil {
		return err
	}
	tipInfo, err := ix.rpc.GetBlockInfo(bestHash)
	if err != nil {
		return err
	}
	tip := tipInfo.Height
	if start > tip {
		return nil
	}

	blocks, err := ix.loadRange(ctx, start, tip)
	if err != nil {
		return err
	}

	var prevHeight int64 = start - 1
	for _, b := range blocks {
		if b.height != prevHeight+1 {
			return fmt.Errorf("indexer: block-loader contiguity violated: got height %d after %d", b.height, prevHeight)
		}
		if err := ix.indexBlock(ctx, b.txs, b.height); err != nil {
			return err
		}
		prevHeight = b.height
	}
	return nil
}

func (ix *Indexer) startHeight(ctx context.Context) (int64, error) {
	hash, ok, err := ix.store.LastIndexed(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ix.params.YuvGenesis, nil
	}
	info, err := ix.rpc.GetBlockInfo(chainhash.Hash(hash))
	if err != nil {
		return 0, err
	}
	start := info.Height + 1
	if start < ix.params.YuvGenesis {
		start = ix.params.YuvGenesis
	}
	return start, nil
}

type fetchedBlock struct {
	height int64
	txs    *bitcoinrpc.BlockTxs
}

// loadRange fetches [start, tip] in ascending, contiguous chunks of
// chunk_size, with workers_number concurrent RPC calls in flight, and
// returns them already sorted ascending by height.
func (ix *Indexer) loadRange(ctx context.Context, start, tip int64) ([]fetchedBlock, error) {
	if start > tip {
		return nil, nil
	}
	heights := make([]int64, 0, tip-start+1)
	for h := start; h <= tip; h++ {
		heights = append(heights, h)
	}

	results := make([]fetchedBlock, len(heights))
	chunkSize := ix.params.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}

	for chunkStart := 0; chunkStart < len(heights); chunkStart += int(chunkSize) {
		chunkEnd := chunkStart + int(chunkSize)
		if chunkEnd > len(heights) {
			chunkEnd = len(heights)
		}
		chunk := heights[chunkStart:chunkEnd]

		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(ix.params.WorkersNumber)
		for i, h := range chunk {
			i, h := i, h
			g.Go(func() error {
				hash, err := ix.rpc.GetBlockHash(h)
				if err != nil {
					return fmt.Errorf("get_block_hash(%d): %w", h, err)
				}
				txs, err := ix.rpc.GetBlockTxs(hash)
				if err != nil {
					return fmt.Errorf("get_block_txs(%d): %w", h, err)
				}
				results[chunkStart+i] = fetchedBlock{height: h, txs: txs}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Run polls at polling_period until cancel is closed, advancing the tip
// by walking nextblockhash forward whenever best_block_hash has moved.
func (ix *Indexer) Run(ctx context.Context, pollingPeriod time.Duration) {
	ticker := time.NewTicker(pollingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ix.tick(ctx)
		}
	}
}

func (ix *Indexer) tick(ctx context.Context) {
	best, err := ix.rpc.GetBestBlockHash()
	if err != nil {
		log.Printf("indexer: get_best_block_hash: %v", err)
		return
	}
	last, ok, err := ix.store.LastIndexed(ctx)
	if err != nil {
		log.Printf("indexer: last_indexed lookup: %v", err)
		return
	}
	if ok && chainhash.Hash(last) == best {
		return
	}

	cursor := chainhash.Hash{}
	if ok {
		cursor = chainhash.Hash(last)
	} else {
		// No tip recorded yet: start walking from yuv_genesis.
		hash, err := ix.rpc.GetBlockHash(ix.params.YuvGenesis)
		if err != nil {
			log.Printf("indexer: get_block_hash(yuv_genesis): %v", err)
			return
		}
		cursor = hash
	}

	for {
		info, err := ix.rpc.GetBlockInfo(cursor)
		if err != nil {
			log.Printf("indexer: get_block_info: %v", err)
			return
		}
		if info.NextBlockHash == nil {
			return
		}
		next := *info.NextBlockHash
		nextInfo, err := ix.rpc.GetBlockInfo(next)
		if err != nil {
			log.Printf("indexer: get_block_info(next): %v", err)
			return
		}
		txs, err := ix.rpc.GetBlockTxs(next)
		if err != nil {
			log.Printf("indexer: get_block_txs: %v", err)
			return
		}
		if err := ix.indexBlock(ctx, txs, nextInfo.Height); err != nil {
			log.Printf("indexer: sub-indexer failed at block %d, tip not advanced: %v", nextInfo.Height, err)
			return
		}
		cursor = next
		if next == best {
			return
		}
	}
}

func (ix *Indexer) indexBlock(ctx context.Context, txs *bitcoinrpc.BlockTxs, height int64) error {
	for _, sub := range ix.subs {
		if err := sub.Index(ctx, txs, height); err != nil {
			return err
		}
	}
	if err := ix.store.SetLastIndexed(ctx, txs.BlockHash); err != nil {
		return err
	}
	bus.Send(ix.bus, BlockIndexed{Height: height, Hash: txs.BlockHash})
	return nil
}

// BlockIndexed is emitted after every successfully indexed block.
type BlockIndexed struct {
	Height int64
	Hash   chainhash.Hash
}
