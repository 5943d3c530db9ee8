package wire

import (
	"testing"

	btcwire "github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/pkg/yuv"
)

func sampleTx() *btcwire.MsgTx {
	tx := btcwire.NewMsgTx(2)
	tx.AddTxIn(&btcwire.TxIn{
		PreviousOutPoint: btcwire.OutPoint{Index: 0},
		Witness:          btcwire.TxWitness{{0x01}, {0x02}},
	})
	tx.AddTxOut(&btcwire.TxOut{Value: 1000, PkScript: []byte{0x00, 0x14}})
	return tx
}

// TestEncodeDecodeTxIssue guards SPEC_FULL.md §6.4 property P6 (wire
// round-trip) for a TxTypeIssue body carrying an embedded announcement.
func TestEncodeDecodeTxIssue(t *testing.T) {
	var chroma yuv.Chroma
	chroma[1] = 0x55

	tx := &yuv.Tx{
		Bitcoin: sampleTx(),
		Type:    yuv.TxTypeIssue,
		Issue: &yuv.IssueData{
			OutputProofs: map[uint32]yuv.PixelProof{
				0: {Kind: yuv.ProofEmptyPixel},
			},
			Announcement: &yuv.IssueAnnouncement{Chroma: chroma, Amount: yuv.NewLuma(500)},
		},
	}

	raw, err := EncodeTxBytes(tx)
	if err != nil {
		t.Fatalf("EncodeTxBytes: %v", err)
	}
	got, err := DecodeTxBytes(raw)
	if err != nil {
		t.Fatalf("DecodeTxBytes: %v", err)
	}
	if got.Type != yuv.TxTypeIssue {
		t.Fatalf("Type = %v, want TxTypeIssue", got.Type)
	}
	if len(got.Issue.OutputProofs) != 1 {
		t.Fatalf("OutputProofs has %d entries, want 1", len(got.Issue.OutputProofs))
	}
	if got.Issue.Announcement == nil || got.Issue.Announcement.Chroma != chroma {
		t.Fatalf("Announcement = %+v, want chroma %x", got.Issue.Announcement, chroma)
	}
	if got.Issue.Announcement.Amount.Amount != yuv.NewLuma(500).Amount {
		t.Fatalf("Announcement.Amount = %x, want 500", got.Issue.Announcement.Amount.Amount)
	}
}

// TestEncodeDecodeTxTransferBulletproof exercises the field-heaviest proof
// kind (Bulletproof) to make sure every optional pubkey/var-bytes slot
// round-trips, including a nil Commitment.
func TestEncodeDecodeTxTransferBulletproof(t *testing.T) {
	var chroma yuv.Chroma
	chroma[2] = 0x99

	tx := &yuv.Tx{
		Bitcoin: sampleTx(),
		Type:    yuv.TxTypeTransfer,
		Transfer: &yuv.TransferData{
			InputProofs: map[uint32]yuv.PixelProof{
				0: {Kind: yuv.ProofEmptyPixel},
			},
			OutputProofs: map[uint32]yuv.PixelProof{
				0: {
					Kind:            yuv.ProofBulletproof,
					Pixel:           yuv.Pixel{Chroma: chroma},
					RangeProof:      []byte{0xde, 0xad, 0xbe, 0xef},
					Signature:       []byte{0x01, 0x02},
					ChromaSignature: []byte{0x03},
				},
			},
		},
	}

	raw, err := EncodeTxBytes(tx)
	if err != nil {
		t.Fatalf("EncodeTxBytes: %v", err)
	}
	got, err := DecodeTxBytes(raw)
	if err != nil {
		t.Fatalf("DecodeTxBytes: %v", err)
	}
	proof := got.Transfer.OutputProofs[0]
	if proof.Kind != yuv.ProofBulletproof {
		t.Fatalf("Kind = %v, want ProofBulletproof", proof.Kind)
	}
	if proof.Recipient != nil || proof.Commitment != nil || proof.Committer != nil {
		t.Fatal("nil pubkey slots must decode back to nil, not a zero-value key")
	}
	if string(proof.RangeProof) != "\xde\xad\xbe\xef" {
		t.Fatalf("RangeProof = %x, want deadbeef", proof.RangeProof)
	}
}

func TestEncodeDecodeTxAnnouncementChroma(t *testing.T) {
	var chroma yuv.Chroma
	chroma[3] = 0x11

	tx := &yuv.Tx{
		Bitcoin: sampleTx(),
		Type:    yuv.TxTypeAnnouncement,
		Announce: &yuv.AnnouncementData{
			Chroma: &yuv.ChromaAnnouncement{
				Chroma:      chroma,
				Name:        "Widget",
				Symbol:      "WDG",
				Decimals:    2,
				MaxSupply:   yuv.NewLuma(9000),
				IsFreezable: true,
			},
		},
	}

	raw, err := EncodeTxBytes(tx)
	if err != nil {
		t.Fatalf("EncodeTxBytes: %v", err)
	}
	got, err := DecodeTxBytes(raw)
	if err != nil {
		t.Fatalf("DecodeTxBytes: %v", err)
	}
	if got.Announce.Chroma == nil || got.Announce.Chroma.Name != "Widget" || got.Announce.Chroma.Symbol != "WDG" {
		t.Fatalf("got %+v", got.Announce.Chroma)
	}
}
