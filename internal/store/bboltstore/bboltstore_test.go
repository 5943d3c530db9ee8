package bboltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/pkg/yuv"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleYuvTx(nonce uint32) *yuv.Tx {
	btx := wire.NewMsgTx(2)
	btx.LockTime = nonce
	btx.AddTxOut(&wire.TxOut{Value: 1000, PkScript: []byte{0x00}})
	return &yuv.Tx{
		Bitcoin: btx,
		Type:    yuv.TxTypeIssue,
		Issue:   &yuv.IssueData{OutputProofs: map[uint32]yuv.PixelProof{0: {}}},
	}
}

func TestYuvTxRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.bolt")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	txid := [32]byte{4}
	if err := s.PutYuvTx(ctx, txid, sampleYuvTx(1)); err != nil {
		t.Fatalf("PutYuvTx: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.YuvTx(ctx, txid)
	if err != nil || !ok {
		t.Fatalf("YuvTx after reopen: ok=%v err=%v", ok, err)
	}
	if got.Type != yuv.TxTypeIssue {
		t.Fatalf("Type = %v, want TxTypeIssue", got.Type)
	}
}

func TestLastIndexedRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, ok, err := s.LastIndexed(ctx); err != nil || ok {
		t.Fatalf("LastIndexed(unset): ok=%v err=%v", ok, err)
	}
	hash := [32]byte{9}
	if err := s.SetLastIndexed(ctx, hash); err != nil {
		t.Fatalf("SetLastIndexed: %v", err)
	}
	got, ok, err := s.LastIndexed(ctx)
	if err != nil || !ok || got != hash {
		t.Fatalf("LastIndexed = %x ok=%v err=%v, want %x/true", got, ok, err, hash)
	}
}

func TestFrozenPutAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	out := yuv.Outpoint{Vout: 2}

	entry := &yuv.FrozenTxEntry{TxIDs: [][32]byte{{1}, {2}, {3}}}
	if err := s.PutFrozen(ctx, out, entry); err != nil {
		t.Fatalf("PutFrozen: %v", err)
	}
	got, ok, err := s.Frozen(ctx, out)
	if err != nil || !ok || len(got.TxIDs) != 3 {
		t.Fatalf("Frozen = %+v ok=%v err=%v, want 3 ids", got, ok, err)
	}

	if err := s.DeleteFrozen(ctx, out); err != nil {
		t.Fatalf("DeleteFrozen: %v", err)
	}
	if _, ok, err := s.Frozen(ctx, out); err != nil || ok {
		t.Fatalf("Frozen(after delete): ok=%v err=%v, want gone", ok, err)
	}
}

func TestChromaInfoRoundTripWithAnnouncement(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	var chroma yuv.Chroma
	chroma[1] = 0x42

	info := &yuv.ChromaInfo{
		Announcement: &yuv.ChromaAnnouncement{
			Chroma:      chroma,
			Name:        "Widget",
			Symbol:      "WDG",
			Decimals:    2,
			MaxSupply:   yuv.NewLuma(9000),
			IsFreezable: false,
		},
		TotalSupply: yuv.NewLuma(123),
	}
	if err := s.PutChromaInfo(ctx, chroma, info); err != nil {
		t.Fatalf("PutChromaInfo: %v", err)
	}
	got, ok, err := s.ChromaInfo(ctx, chroma)
	if err != nil || !ok {
		t.Fatalf("ChromaInfo: ok=%v err=%v", ok, err)
	}
	if got.Announcement == nil || got.Announcement.Name != "Widget" || got.Announcement.Symbol != "WDG" {
		t.Fatalf("Announcement = %+v, want Name=Widget Symbol=WDG", got.Announcement)
	}
	if got.Announcement.IsFreezable {
		t.Fatal("IsFreezable must round-trip as false")
	}
	if got.TotalSupply.Amount != yuv.NewLuma(123).Amount {
		t.Fatalf("TotalSupply = %x, want 123", got.TotalSupply.Amount)
	}
}

func TestChromaInfoRoundTripWithoutAnnouncement(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	var chroma yuv.Chroma
	chroma[2] = 0x01

	info := &yuv.ChromaInfo{TotalSupply: yuv.NewLuma(7)}
	if err := s.PutChromaInfo(ctx, chroma, info); err != nil {
		t.Fatalf("PutChromaInfo: %v", err)
	}
	got, ok, err := s.ChromaInfo(ctx, chroma)
	if err != nil || !ok {
		t.Fatalf("ChromaInfo: ok=%v err=%v", ok, err)
	}
	if got.Announcement != nil {
		t.Fatalf("Announcement = %+v, want nil for a chroma never announced", got.Announcement)
	}
}

func TestPaginationAppendsAndCountsPages(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if n, err := s.PageCount(ctx); err != nil || n != 0 {
		t.Fatalf("PageCount(empty) = %d err=%v, want 0", n, err)
	}
	if err := s.AppendPage(ctx, 0, [32]byte{1}); err != nil {
		t.Fatalf("AppendPage: %v", err)
	}
	if err := s.AppendPage(ctx, 0, [32]byte{2}); err != nil {
		t.Fatalf("AppendPage: %v", err)
	}
	if err := s.SetPageCount(ctx, 1); err != nil {
		t.Fatalf("SetPageCount: %v", err)
	}

	page, err := s.Page(ctx, 0)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if len(page) != 2 || page[0] != ([32]byte{1}) || page[1] != ([32]byte{2}) {
		t.Fatalf("Page(0) = %v, want [[1] [2]] in append order", page)
	}
}

func TestInvalidRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	txid := [32]byte{5}

	if err := s.PutInvalid(ctx, txid, sampleYuvTx(2)); err != nil {
		t.Fatalf("PutInvalid: %v", err)
	}
	got, ok, err := s.Invalid(ctx, txid)
	if err != nil || !ok || got.Type != yuv.TxTypeIssue {
		t.Fatalf("Invalid = %+v ok=%v err=%v", got, ok, err)
	}
}
