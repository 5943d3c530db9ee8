package validator

import (
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/rawblock/yuvd/pkg/yuv"
)

// Check runs the isolated, pure per-transaction checks of
// SPEC_FULL.md §4.1 against tx. It performs no I/O: no store lookups, no
// chain queries. net selects which Bitcoin network's address encoding the
// proof-derived scripts are checked against.
func Check(tx *yuv.Tx, net *chaincfg.Params) error {
	switch tx.Type {
	case yuv.TxTypeIssue:
		return checkIssue(tx, net)
	case yuv.TxTypeTransfer:
		return checkTransfer(tx, net)
	case yuv.TxTypeAnnouncement:
		return checkAnnouncementStructure(tx.Announce)
	default:
		return errInvalidProof(0, "unknown tx type")
	}
}

// nonOpReturnOutputs returns the indices (vout) of all outputs that are
// not OP_RETURN data carriers, in ascending order.
func nonOpReturnOutputs(tx *yuv.Tx) []uint32 {
	out := make([]uint32, 0, len(tx.Bitcoin.TxOut))
	for i, o := range tx.Bitcoin.TxOut {
		if !isOpReturn(o.PkScript) {
			out = append(out, uint32(i))
		}
	}
	return out
}

func isOpReturn(script []byte) bool {
	return len(script) > 0 && script[0] == 0x6a
}

// sameChroma implements spec.md §9's preferred "first-element fold" form
// of check_same_chroma_proofs: for len <= 1 it trivially holds; for
// len >= 2 every proof's chroma must equal the first's. The windowed
// early-exit variant from the source is deliberately not reimplemented.
func sameChroma(proofs []yuv.PixelProof) (yuv.Chroma, bool) {
	first := true
	var chroma yuv.Chroma
	for _, p := range proofs {
		if p.IsEmptyPixelKind() {
			continue
		}
		if first {
			chroma = p.Pixel.Chroma
			first = false
			continue
		}
		if p.Pixel.Chroma != chroma {
			return yuv.Chroma{}, false
		}
	}
	return chroma, true
}
