package yuv

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// ChromaAnnouncement registers a chroma's metadata and supply cap. It is
// learned lazily: a chroma with no ChromaAnnouncement yet defaults to
// IsFreezable=true and an unbounded MaxSupply.
type ChromaAnnouncement struct {
	Chroma      Chroma
	Name        string
	Symbol      string
	Decimals    uint8
	MaxSupply   Luma // MaxSupply.IsZero() means unbounded
	IsFreezable bool
}

// IssueAnnouncement records that `Amount` of `Chroma` was issued in this
// transaction. When embedded in an Issue tx's OP_RETURN outputs it must be
// byte-equal to the Issue body's own Announcement field, and Amount must
// equal the sum of output lumas (non-bulletproof branch).
type IssueAnnouncement struct {
	Chroma Chroma
	Amount Luma
}

// FreezeAnnouncement toggles the frozen state of a single outpoint. An
// outpoint is frozen iff the number of valid (chroma-owner-signed) freeze
// toggles targeting it is odd.
type FreezeAnnouncement struct {
	Outpoint Outpoint
}

// ChromaInfo is the authoritative per-chroma state: its announcement (nil
// until learned) and running total supply.
type ChromaInfo struct {
	Announcement *ChromaAnnouncement
	TotalSupply  Luma
}

// MaxSupply returns the effective max supply, treating a nil or
// zero-valued announcement as unbounded (represented as a zero Luma,
// meaning "no cap" per spec.md I4).
func (ci ChromaInfo) MaxSupply() Luma {
	if ci.Announcement == nil {
		return Luma{}
	}
	return ci.Announcement.MaxSupply
}

// IsFreezable reports whether the chroma's outputs may be frozen, which
// defaults to true when no ChromaAnnouncement has been observed yet.
func (ci ChromaInfo) IsFreezable() bool {
	if ci.Announcement == nil {
		return true
	}
	return ci.Announcement.IsFreezable
}

// FrozenTxEntry is the ordered list of freeze-toggle tx ids targeting one
// outpoint; the outpoint is frozen iff len(TxIDs) is odd.
type FrozenTxEntry struct {
	TxIDs []chainhash.Hash
}

// Frozen reports the current parity of the freeze-toggle list.
func (e FrozenTxEntry) Frozen() bool {
	return len(e.TxIDs)%2 == 1
}
