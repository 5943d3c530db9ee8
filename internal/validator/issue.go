package validator

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/announcement"
	"github.com/rawblock/yuvd/pkg/yuv/pixel"
)

func checkIssue(tx *yuv.Tx, net *chaincfg.Params) error {
	data := tx.Issue
	if data == nil || len(data.OutputProofs) == 0 {
		return &CheckError{Kind: KindEmptyOutputs}
	}

	nonOpRet := nonOpReturnOutputs(tx)
	if len(data.OutputProofs) != len(nonOpRet) {
		return errNotEnoughProofs(len(data.OutputProofs), len(nonOpRet))
	}

	// Check 2: all non-empty output proofs share one chroma.
	proofs := make([]yuv.PixelProof, 0, len(data.OutputProofs))
	for _, p := range data.OutputProofs {
		proofs = append(proofs, p)
	}
	chroma, ok := sameChroma(proofs)
	if !ok {
		return &CheckError{Kind: KindNotSameChroma}
	}

	// Check 3: every proof matches its output's script.
	for _, vout := range nonOpRet {
		proof, ok := data.OutputProofs[vout]
		if !ok {
			return &CheckError{Kind: KindProofMappedToNonexistentInputOutput}
		}
		if int(vout) >= len(tx.Bitcoin.TxOut) {
			return &CheckError{Kind: KindProofMappedToNonexistentInputOutput}
		}
		if err := pixel.MatchesOutput(proof, tx.Bitcoin.TxOut[vout], net); err != nil {
			return errInvalidProof(vout, proof.Kind.String())
		}
	}

	// Check 4: at least one input signed by the chroma owner (or the
	// tweaked-empty-pixel form of the chroma, for change UTXOs).
	ownerFound := false
	for _, in := range tx.Bitcoin.TxIn {
		ok, err := pixel.IssuerWitnessPubkey(in.Witness, chroma)
		if err != nil {
			return &CheckError{Kind: KindInvalidWitness}
		}
		if ok {
			ownerFound = true
			break
		}
	}
	if !ownerFound {
		return &CheckError{Kind: KindIssuerNotOwner}
	}

	// Check 5: embedded IssueAnnouncement vs. any OP_RETURN IssueAnnouncement.
	if err := checkEmbeddedIssueAnnouncement(tx); err != nil {
		return err
	}

	return nil
}

func checkEmbeddedIssueAnnouncement(tx *yuv.Tx) error {
	var onChain *yuv.IssueAnnouncement
	for _, out := range tx.Bitcoin.TxOut {
		if !isOpReturn(out.PkScript) {
			continue
		}
		a, err := announcement.Parse(out.PkScript)
		if err != nil || a.Issue == nil {
			continue
		}
		onChain = a.Issue
		break
	}
	if onChain == nil {
		return nil
	}

	embedded := tx.Issue.Announcement
	if embedded == nil || embedded.Chroma != onChain.Chroma || embedded.Amount.Amount != onChain.Amount.Amount {
		return &CheckError{Kind: KindIssueAnnouncementMismatch}
	}

	sum := sumOutputLumas(tx.Issue.OutputProofs)
	if bytes.Compare(sum.Amount[:], onChain.Amount.Amount[:]) != 0 {
		return errAnnouncedMismatch(hexAmount(onChain.Amount), hexAmount(sum))
	}
	return nil
}

func sumOutputLumas(proofs map[uint32]yuv.PixelProof) yuv.Luma {
	var sum yuv.Luma
	for _, p := range proofs {
		if p.IsEmptyPixelKind() || p.Kind == yuv.ProofBulletproof {
			continue
		}
		sum = sum.Add(p.Pixel.Luma)
	}
	return sum
}

func hexAmount(l yuv.Luma) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 32)
	for _, b := range l.Amount {
		out = append(out, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}
