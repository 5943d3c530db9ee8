package testkit

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

func TestMockRPCChainWalk(t *testing.T) {
	rpc := NewMockRPC()

	tx1 := wire.NewMsgTx(2)
	h0 := rpc.AppendBlock(tx1)

	tx2 := wire.NewMsgTx(2)
	h1 := rpc.AppendBlock(tx2)

	best, err := rpc.GetBestBlockHash()
	if err != nil {
		t.Fatalf("GetBestBlockHash: %v", err)
	}
	if best != h1 {
		t.Fatalf("GetBestBlockHash = %s, want %s", best, h1)
	}

	info0, err := rpc.GetBlockInfo(h0)
	if err != nil {
		t.Fatalf("GetBlockInfo(h0): %v", err)
	}
	if info0.NextBlockHash == nil || *info0.NextBlockHash != h1 {
		t.Fatalf("GetBlockInfo(h0).NextBlockHash = %v, want %s", info0.NextBlockHash, h1)
	}

	txs, err := rpc.GetBlockTxs(h1)
	if err != nil {
		t.Fatalf("GetBlockTxs(h1): %v", err)
	}
	if len(txs.Txs) != 1 || txs.Txs[0].TxHash() != tx2.TxHash() {
		t.Fatalf("GetBlockTxs(h1) returned unexpected txs: %+v", txs.Txs)
	}

	got, err := rpc.GetRawTransaction(tx1.TxHash())
	if err != nil {
		t.Fatalf("GetRawTransaction(tx1): %v", err)
	}
	if got.TxHash() != tx1.TxHash() {
		t.Fatalf("GetRawTransaction(tx1) = %s, want %s", got.TxHash(), tx1.TxHash())
	}
}

func TestMockRPCSendRawTransactionConfirmsImmediately(t *testing.T) {
	rpc := NewMockRPC()
	tx := wire.NewMsgTx(2)

	txid, err := rpc.SendRawTransaction(tx, 0)
	if err != nil {
		t.Fatalf("SendRawTransaction: %v", err)
	}
	if txid != tx.TxHash() {
		t.Fatalf("SendRawTransaction txid = %s, want %s", txid, tx.TxHash())
	}

	info, err := rpc.GetRawTransactionInfo(txid)
	if err != nil {
		t.Fatalf("GetRawTransactionInfo: %v", err)
	}
	if info.Confirmations != 1 {
		t.Fatalf("Confirmations = %d, want 1", info.Confirmations)
	}
}

func TestMockRPCUnknownHashErrors(t *testing.T) {
	rpc := NewMockRPC()
	var bogus chainhash.Hash
	bogus[0] = 0xff

	if _, err := rpc.GetBlockInfo(bogus); err == nil {
		t.Fatal("GetBlockInfo(unknown) should error")
	}
	if _, err := rpc.GetRawTransaction(bogus); err == nil {
		t.Fatal("GetRawTransaction(unknown) should error")
	}
}
