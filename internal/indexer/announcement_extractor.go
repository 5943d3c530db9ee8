package indexer

import (
	"context"

	"github.com/rawblock/yuvd/internal/bitcoinrpc"
	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/announcement"
)

// AnnouncementExtractor scans every non-coinbase tx's OP_RETURN outputs
// for the yuv announcement magic, emitting each hit as a YuvTx::Announcement
// on the shared bus, per SPEC_FULL.md §4.3.
type AnnouncementExtractor struct {
	Bus *bus.Bus
}

var _ SubIndexer = (*AnnouncementExtractor)(nil)

func (e *AnnouncementExtractor) Index(_ context.Context, block *bitcoinrpc.BlockTxs, height int64) error {
	for i, tx := range block.Txs {
		if i == 0 {
			continue // coinbase
		}
		for _, out := range tx.TxOut {
			if !announcement.IsOpReturn(out.PkScript) {
				continue
			}
			a, err := announcement.Parse(out.PkScript)
			if err != nil {
				continue // not ours, or malformed: not a protocol error
			}
			bus.Send(e.Bus, bus.NewTxs{Txs: []*yuv.Tx{{
				Bitcoin: tx,
				Type:    yuv.TxTypeAnnouncement,
				Announce: &yuv.AnnouncementData{
					Chroma: a.Chroma,
					Issue:  a.Issue,
					Freeze: a.Freeze,
				},
			}}})
		}
	}
	return nil
}
