package bus

import "github.com/rawblock/yuvd/pkg/yuv"

// NewTxs is emitted by the block indexer and the p2p gossip layer for a
// batch of candidate transactions that still need the isolated validator
// plus on-chain checks. Sender, when non-nil, identifies the peer that
// relayed these txs, so the checker pool can route a GetData back to
// them if parents turn out to be missing.
type NewTxs struct {
	Txs    []*yuv.Tx
	Sender *PeerID
}

// CheckedTxs is emitted by the checker pool for every tx batch that
// passed both the isolated validator and the on-chain checks, in the
// order the checker produced them.
type CheckedTxs struct {
	Txs []*yuv.Tx
}

// InvalidTxs is emitted by the checker pool for txs rejected by either
// check stage. Sender mirrors NewTxs.Sender so the controller can
// penalize or ignore a misbehaving peer.
type InvalidTxs struct {
	Ids    [][32]byte
	Sender *PeerID
}

// AttachedTxs is emitted by the DAG attacher once a batch of txs has had
// every parent dependency resolved and been appended to a page. The
// controller re-gossips these via INV.
type AttachedTxs struct {
	Txs []*yuv.Tx
}

// GetData is emitted by the checker pool (missing parents) to request a
// specific peer resend specific txids.
type GetData struct {
	Txids    [][32]byte
	Receiver PeerID
}

// PeerID identifies a connected gossip peer; internal/p2p owns the
// concrete connection behind it.
type PeerID string
