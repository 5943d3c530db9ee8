package validator

import (
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/pixel"
)

func checkTransfer(tx *yuv.Tx, net *chaincfg.Params) error {
	data := tx.Transfer
	if data == nil {
		return &CheckError{Kind: KindEmptyOutputs}
	}

	nonOpRet := nonOpReturnOutputs(tx)
	if len(data.OutputProofs) != len(nonOpRet) {
		return errNotEnoughProofs(len(data.OutputProofs), len(nonOpRet))
	}

	// Check 2a: per-input proofs validate against the input's witness.
	for vin, proof := range data.InputProofs {
		if int(vin) >= len(tx.Bitcoin.TxIn) {
			return &CheckError{Kind: KindProofMappedToNonexistentInputOutput}
		}
		if _, err := pixel.MatchesInputWitness(proof, tx.Bitcoin.TxIn[vin].Witness); err != nil {
			return errInvalidProof(vin, proof.Kind.String())
		}
	}

	// Check 2b: per-output proofs validate against the output's script.
	for _, vout := range nonOpRet {
		proof, ok := data.OutputProofs[vout]
		if !ok {
			return &CheckError{Kind: KindProofMappedToNonexistentInputOutput}
		}
		if err := pixel.MatchesOutput(proof, tx.Bitcoin.TxOut[vout], net); err != nil {
			return errInvalidProof(vout, proof.Kind.String())
		}
	}

	// Check 3: branch on bulletproof vs. plaintext conservation.
	anyBulletproof, allBulletproof := bulletproofMix(data)
	if anyBulletproof {
		if !allBulletproof {
			return &CheckError{Kind: KindMixedBulletproofsAndNonBulletproofs}
		}
		return checkBulletproofConservation(data)
	}

	return checkPlaintextConservation(data)
}

// bulletproofMix reports whether any proof (input or output) is a
// Bulletproof, and whether ALL of them are.
func bulletproofMix(data *yuv.TransferData) (any bool, all bool) {
	all = true
	total := 0
	for _, p := range data.InputProofs {
		total++
		if p.Kind == yuv.ProofBulletproof {
			any = true
		} else {
			all = false
		}
	}
	for _, p := range data.OutputProofs {
		total++
		if p.Kind == yuv.ProofBulletproof {
			any = true
		} else {
			all = false
		}
	}
	if total == 0 {
		all = false
	}
	return any, all
}

func checkPlaintextConservation(data *yuv.TransferData) error {
	in := sumByChroma(data.InputProofs)
	out := sumByChroma(data.OutputProofs)

	if len(in) != len(out) {
		return &CheckError{Kind: KindConservationRulesViolated}
	}
	for chroma, inSum := range in {
		outSum, ok := out[chroma]
		if !ok || inSum.Cmp(outSum) != 0 {
			return &CheckError{Kind: KindConservationRulesViolated}
		}
	}
	return nil
}

// sumByChroma sums lumas per chroma, excluding empty-pixel and
// zero-luma entries per spec.md §4.1 Transfer check 3.
func sumByChroma(proofs map[uint32]yuv.PixelProof) map[yuv.Chroma]yuv.Luma {
	sums := make(map[yuv.Chroma]yuv.Luma)
	for _, p := range proofs {
		if p.IsEmptyPixelKind() || p.Pixel.Luma.IsZero() {
			continue
		}
		sums[p.Pixel.Chroma] = sums[p.Pixel.Chroma].Add(p.Pixel.Luma)
	}
	return sums
}

func checkAnnouncementStructure(a *yuv.AnnouncementData) error {
	if a == nil {
		return &CheckError{Kind: KindEmptyOutputs}
	}
	n := 0
	if a.Chroma != nil {
		n++
	}
	if a.Issue != nil {
		n++
	}
	if a.Freeze != nil {
		n++
	}
	if n != 1 {
		return &CheckError{Kind: KindEmptyOutputs}
	}
	return nil
}
