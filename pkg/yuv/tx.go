package yuv

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TxTypeTag discriminates the three kinds of YuvTx, matching the consensus encoding tags in SPEC_FULL.md §6.4.
type TxTypeTag uint8

const (
	TxTypeIssue TxTypeTag = iota
	TxTypeTransfer
	TxTypeAnnouncement
)

// IssueData is the body of a TxTypeIssue transaction: a proof per
// non-OP_RETURN output, plus an optional embedded IssueAnnouncement that
// must be byte-equal to any IssueAnnouncement OP_RETURN carried by the
// underlying Bitcoin transaction.
type IssueData struct {
	OutputProofs map[uint32]PixelProof // vout -> proof
	Announcement *IssueAnnouncement
}

// TransferData is the body of a TxTypeTransfer transaction.
type TransferData struct {
	InputProofs  map[uint32]PixelProof // vin -> proof
	OutputProofs map[uint32]PixelProof // vout -> proof
}

// AnnouncementData is the body of a TxTypeAnnouncement transaction: exactly
// one of the three announcement kinds.
type AnnouncementData struct {
	Chroma *ChromaAnnouncement
	Issue  *IssueAnnouncement
	Freeze *FreezeAnnouncement
}

// Tx is a YuvTx: a reference to the underlying Bitcoin transaction plus
// the off-chain type-specific proof/announcement body.
type Tx struct {
	Bitcoin *wire.MsgTx

	Type     TxTypeTag
	Issue    *IssueData
	Transfer *TransferData
	Announce *AnnouncementData
}

// Txid returns the underlying Bitcoin transaction id.
func (t *Tx) Txid() chainhash.Hash {
	return t.Bitcoin.TxHash()
}

// NonOpReturnOutputCount returns the number of transaction outputs that are
// not OP_RETURN data carriers (i.e. pixel-bearing candidate outputs).
func (t *Tx) NonOpReturnOutputCount() int {
	n := 0
	for _, out := range t.Bitcoin.TxOut {
		if !isOpReturnScript(out.PkScript) {
			n++
		}
	}
	return n
}

func isOpReturnScript(script []byte) bool {
	return len(script) > 0 && script[0] == 0x6a // OP_RETURN
}
