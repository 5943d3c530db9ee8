package checker

import (
	"context"
	"errors"

	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/pixel"
)

var (
	errChromaOwnerNotSigning = errors.New("checker: chroma announcement not signed by owner")
	errSupplyExceedsMax      = errors.New("checker: total_supply would exceed max_supply")
	errFreezeTargetMissing   = errors.New("checker: freeze target tx not in store")
	errFreezeTargetNoPixel   = errors.New("checker: freeze target output carries no pixel")
	errChromaNotFreezable    = errors.New("checker: chroma is not freezable")
	errFreezeNotOwnerSigned  = errors.New("checker: freeze tx not signed by chroma owner")
	errIssuerNotSigning      = errors.New("checker: issue announcement not signed by issuer")
	errOutpointFrozen        = errors.New("checker: input outpoint is frozen")
)

// onChainCheck runs SPEC_FULL.md §4.4 item 2's additional, store-backed
// checks (on top of the pure validator already run in processBatch), and
// returns the txids of any parents not yet found in the store;
// processBatch drops those that arrived in the same batch.
func (p *Pool) onChainCheck(ctx context.Context, tx *yuv.Tx) ([][32]byte, error) {
	switch tx.Type {
	case yuv.TxTypeAnnouncement:
		return nil, p.checkAnnouncement(ctx, tx)
	case yuv.TxTypeIssue:
		return nil, p.checkIssueOnChain(ctx, tx)
	case yuv.TxTypeTransfer:
		return p.checkTransferOnChain(ctx, tx)
	default:
		return nil, nil
	}
}

func (p *Pool) checkAnnouncement(ctx context.Context, tx *yuv.Tx) error {
	a := tx.Announce
	switch {
	case a.Chroma != nil:
		if !anyInputSignsChroma(tx, a.Chroma.Chroma) {
			return errChromaOwnerNotSigning
		}
		info, ok, err := p.store.ChromaInfo(ctx, a.Chroma.Chroma)
		if err != nil {
			return err
		}
		maxSupply := a.Chroma.MaxSupply
		if ok && !maxSupply.IsZero() && info.TotalSupply.Cmp(maxSupply) > 0 {
			return errSupplyExceedsMax
		}
		if !ok {
			info = &yuv.ChromaInfo{}
		}
		info.Announcement = a.Chroma
		return p.store.PutChromaInfo(ctx, a.Chroma.Chroma, info)

	case a.Freeze != nil:
		return p.checkFreezeOnChain(ctx, tx, a.Freeze)

	case a.Issue != nil:
		return p.checkIssueAnnouncementOnChain(ctx, tx, a.Issue)

	default:
		return errors.New("checker: empty announcement body")
	}
}

func (p *Pool) checkFreezeOnChain(ctx context.Context, tx *yuv.Tx, f *yuv.FreezeAnnouncement) error {
	targetTxid := [32]byte(f.Outpoint.Txid)
	target, ok, err := p.store.YuvTx(ctx, targetTxid)
	if err != nil {
		return err
	}
	if !ok {
		return errFreezeTargetMissing
	}
	chroma, hasPixel := outputChroma(target, f.Outpoint.Vout)
	if !hasPixel {
		return errFreezeTargetNoPixel
	}
	info, ok, err := p.store.ChromaInfo(ctx, chroma)
	if err != nil {
		return err
	}
	freezable := true
	if ok {
		freezable = info.IsFreezable()
	}
	if !freezable {
		return errChromaNotFreezable
	}
	if !anyInputSignsChroma(tx, chroma) {
		return errFreezeNotOwnerSigned
	}

	txid := [32]byte(tx.Bitcoin.TxHash())
	entry, ok, err := p.store.Frozen(ctx, f.Outpoint)
	if err != nil {
		return err
	}
	if !ok {
		entry = &yuv.FrozenTxEntry{}
	}
	entry.TxIDs = append(entry.TxIDs, txid)
	return p.store.PutFrozen(ctx, f.Outpoint, entry)
}

func (p *Pool) checkIssueAnnouncementOnChain(ctx context.Context, tx *yuv.Tx, a *yuv.IssueAnnouncement) error {
	if !anyInputSignsChroma(tx, a.Chroma) {
		return errIssuerNotSigning
	}
	info, ok, err := p.store.ChromaInfo(ctx, a.Chroma)
	if err != nil {
		return err
	}
	if !ok {
		info = &yuv.ChromaInfo{}
	}
	maxSupply := info.MaxSupply()
	newTotal := info.TotalSupply.Add(a.Amount)
	if !maxSupply.IsZero() && newTotal.Cmp(maxSupply) > 0 {
		return errSupplyExceedsMax
	}
	info.TotalSupply = newTotal
	return p.store.PutChromaInfo(ctx, a.Chroma, info)
}

func (p *Pool) checkIssueOnChain(ctx context.Context, tx *yuv.Tx) error {
	if tx.Issue.Announcement == nil {
		return nil
	}
	return p.checkIssueAnnouncementOnChain(ctx, tx, tx.Issue.Announcement)
}

func (p *Pool) checkTransferOnChain(ctx context.Context, tx *yuv.Tx) ([][32]byte, error) {
	var missing [][32]byte
	for vin := range tx.Transfer.InputProofs {
		if int(vin) >= len(tx.Bitcoin.TxIn) {
			continue
		}
		prevOut := tx.Bitcoin.TxIn[vin].PreviousOutPoint
		outpoint := yuv.Outpoint{Txid: prevOut.Hash, Vout: prevOut.Index}

		if err := p.recheckFreezeParity(ctx, outpoint); err != nil {
			return nil, err
		}
		frozen, ok, err := p.store.Frozen(ctx, outpoint)
		if err != nil {
			return nil, err
		}
		if ok && frozen.Frozen() {
			return nil, errOutpointFrozen
		}

		parentTxid := [32]byte(prevOut.Hash)
		if _, ok, err := p.store.YuvTx(ctx, parentTxid); err != nil {
			return nil, err
		} else if !ok {
			missing = append(missing, parentTxid)
		}
	}
	return missing, nil
}

// recheckFreezeParity recomputes an outpoint's freeze entry, purging any
// toggles whose issuing tx is missing from the store or not signed by the
// chroma owner, per SPEC_FULL.md invariant I6.
func (p *Pool) recheckFreezeParity(ctx context.Context, outpoint yuv.Outpoint) error {
	return RecheckFreezeParity(ctx, p.store, outpoint)
}

// RecheckFreezeParity is the store-only half of recheckFreezeParity,
// exported so callers with no Pool in hand (the controller's reorg hook,
// the RPC surface's read path) can force the same recompute instead of
// waiting for a transfer to touch the outpoint.
func RecheckFreezeParity(ctx context.Context, st store.Store, outpoint yuv.Outpoint) error {
	entry, ok, err := st.Frozen(ctx, outpoint)
	if err != nil || !ok {
		return err
	}

	target, ok, err := st.YuvTx(ctx, [32]byte(outpoint.Txid))
	if err != nil {
		return err
	}
	var chroma yuv.Chroma
	var hasChroma bool
	if ok {
		chroma, hasChroma = outputChroma(target, outpoint.Vout)
	}

	valid := entry.TxIDs[:0]
	for _, txid := range entry.TxIDs {
		freezeTx, ok, err := st.YuvTx(ctx, [32]byte(txid))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if hasChroma && !anyInputSignsChroma(freezeTx, chroma) {
			continue
		}
		valid = append(valid, txid)
	}

	if len(valid) == 0 {
		return st.DeleteFrozen(ctx, outpoint)
	}
	entry.TxIDs = valid
	return st.PutFrozen(ctx, outpoint, entry)
}

func anyInputSignsChroma(tx *yuv.Tx, chroma yuv.Chroma) bool {
	for _, in := range tx.Bitcoin.TxIn {
		if ok, err := pixel.IssuerWitnessPubkey(in.Witness, chroma); err == nil && ok {
			return true
		}
	}
	return false
}

// outputChroma returns the chroma pixel-tagged on a given yuv tx's output,
// covering the Issue and Transfer bodies only (Announcements carry no
// pixel-bearing outputs).
func outputChroma(tx *yuv.Tx, vout uint32) (yuv.Chroma, bool) {
	var proofs map[uint32]yuv.PixelProof
	switch tx.Type {
	case yuv.TxTypeIssue:
		proofs = tx.Issue.OutputProofs
	case yuv.TxTypeTransfer:
		proofs = tx.Transfer.OutputProofs
	default:
		return yuv.Chroma{}, false
	}
	proof, ok := proofs[vout]
	if !ok || proof.IsEmptyPixelKind() {
		return yuv.Chroma{}, false
	}
	return proof.Pixel.Chroma, true
}
