// Package testkit is the in-memory harness SPEC_FULL.md §2's testing
// section (L9) asks for: a deterministic Bitcoin RPC double plus the
// existing memstore and bus wired together so the indexer, checker,
// attacher, and controller can be driven end-to-end in a table-driven
// test without a live bitcoind. MockRPC's ordered-block-list shape
// mirrors the teacher's synthetic-mode data generators in
// internal/api/routes.go (handleAnalyzeTx's "whirlpool"/"mix" branch),
// replacing crypto/rand outputs with caller-supplied fixtures so tests
// stay deterministic.
package testkit

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/internal/bitcoinrpc"
)

// MockRPC is an ordered, in-memory chain of blocks; it implements
// bitcoinrpc.RPC so the indexer and checker can run against it unchanged.
type MockRPC struct {
	mu     sync.Mutex
	blocks []*bitcoinrpc.BlockTxs
	txs    map[chainhash.Hash]*wire.MsgTx
	netVer int32
}

var _ bitcoinrpc.RPC = (*MockRPC)(nil)

// NewMockRPC builds an empty chain; use AppendBlock to grow it.
func NewMockRPC() *MockRPC {
	return &MockRPC{txs: make(map[chainhash.Hash]*wire.MsgTx), netVer: 250200}
}

// AppendBlock adds a new tip block containing txs, returning its hash.
func (m *MockRPC) AppendBlock(txs ...*wire.MsgTx) chainhash.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := syntheticBlockHash(len(m.blocks))
	m.blocks = append(m.blocks, &bitcoinrpc.BlockTxs{BlockHash: hash, Txs: txs})
	for _, tx := range txs {
		m.txs[tx.TxHash()] = tx
	}
	return hash
}

func syntheticBlockHash(height int) chainhash.Hash {
	var h chainhash.Hash
	h[0] = byte(height)
	h[1] = byte(height >> 8)
	h[2] = byte(height >> 16)
	return h
}

func (m *MockRPC) heightOf(hash chainhash.Hash) (int, bool) {
	for i, b := range m.blocks {
		if b.BlockHash == hash {
			return i, true
		}
	}
	return 0, false
}

func (m *MockRPC) GetBestBlockHash() (chainhash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.blocks) == 0 {
		return chainhash.Hash{}, fmt.Errorf("testkit: no blocks")
	}
	return m.blocks[len(m.blocks)-1].BlockHash, nil
}

func (m *MockRPC) GetBlockHash(height int64) (chainhash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if height < 0 || int(height) >= len(m.blocks) {
		return chainhash.Hash{}, fmt.Errorf("testkit: no block at height %d", height)
	}
	return m.blocks[height].BlockHash, nil
}

func (m *MockRPC) GetBlockInfo(hash chainhash.Hash) (*bitcoinrpc.BlockInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	height, ok := m.heightOf(hash)
	if !ok {
		return nil, fmt.Errorf("testkit: unknown block %s", hash)
	}
	info := &bitcoinrpc.BlockInfo{Hash: hash, Height: int64(height)}
	if height+1 < len(m.blocks) {
		next := m.blocks[height+1].BlockHash
		info.NextBlockHash = &next
	}
	return info, nil
}

func (m *MockRPC) GetBlockTxs(hash chainhash.Hash) (*bitcoinrpc.BlockTxs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	height, ok := m.heightOf(hash)
	if !ok {
		return nil, fmt.Errorf("testkit: unknown block %s", hash)
	}
	return m.blocks[height], nil
}

func (m *MockRPC) GetRawTransaction(txid chainhash.Hash) (*wire.MsgTx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[txid]
	if !ok {
		return nil, fmt.Errorf("testkit: unknown tx %s", txid)
	}
	return tx, nil
}

func (m *MockRPC) GetRawTransactionInfo(txid chainhash.Hash) (*bitcoinrpc.RawTransactionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[txid]; !ok {
		return nil, fmt.Errorf("testkit: unknown tx %s", txid)
	}
	return &bitcoinrpc.RawTransactionInfo{Confirmations: 1}, nil
}

// SendRawTransaction records tx as broadcast by appending it to a new
// block (mirroring instant-confirmation regtest behavior, which is all
// a deterministic test needs).
func (m *MockRPC) SendRawTransaction(tx *wire.MsgTx, _ float64) (chainhash.Hash, error) {
	m.AppendBlock(tx)
	return tx.TxHash(), nil
}

func (m *MockRPC) GetNetworkInfo() (*bitcoinrpc.NetworkInfo, error) {
	return &bitcoinrpc.NetworkInfo{Version: m.netVer}, nil
}
