package validator

import (
	"crypto/sha256"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/rawblock/yuvd/pkg/yuv"
)

// checkBulletproofConservation implements SPEC_FULL.md §4.1.3: the
// optional zero-knowledge branch where amounts stay hidden behind
// Pedersen commitments and conservation is proven via an aggregated
// Schnorr signature rather than revealed sums.
//
// The verifier only ever observes commitments and range proofs, never
// plaintext lumas — so, resolving an ambiguity left open by the
// distilled spec (which describes the signed message as
// "serialize(luma_1) || ...", an amount the verifier cannot see), the
// message actually hashed here is built from the serialized commitment
// points standing in for each hidden luma. This keeps the scheme
// verifiable with only public data while preserving the one concrete
// asymmetry the spec does pin down: inputs are sorted ascending by
// serialized bytes before hashing, outputs are left in their natural
// (vout) order (spec.md §9, "Open questions").
func checkBulletproofConservation(data *yuv.TransferData) error {
	inputs := bulletproofsByIndex(data.InputProofs)
	outputs := bulletproofsByIndex(data.OutputProofs)

	if len(inputs) == 0 || len(outputs) == 0 {
		return &CheckError{Kind: KindAtLeastOneCommitment}
	}
	for _, p := range inputs {
		if p.Commitment == nil {
			return &CheckError{Kind: KindAtLeastOneCommitment}
		}
	}
	for _, p := range outputs {
		if p.Commitment == nil {
			return &CheckError{Kind: KindAtLeastOneCommitment}
		}
	}

	gAll, err := aggregateCommitments(inputs, outputs)
	if err != nil {
		return &CheckError{Kind: KindInvalidWitness}
	}
	msgAll := hashCommitments(inputs, outputs)

	chromas := collectChromas(inputs, outputs)
	for _, out := range outputs {
		sig, err := schnorr.ParseSignature(out.Signature)
		if err != nil || !sig.Verify(msgAll[:], gAll) {
			return &CheckError{Kind: KindInvalidWitness}
		}

		chromaIns := filterByChroma(inputs, out.Pixel.Chroma)
		chromaOuts := filterByChroma(outputs, out.Pixel.Chroma)
		gChroma, err := aggregateCommitments(chromaIns, chromaOuts)
		if err != nil {
			return &CheckError{Kind: KindInvalidWitness}
		}
		msgChroma := hashCommitments(chromaIns, chromaOuts)

		chromaSig, err := schnorr.ParseSignature(out.ChromaSignature)
		if err != nil || !chromaSig.Verify(msgChroma[:], gChroma) {
			return &CheckError{Kind: KindInvalidWitness}
		}
	}
	_ = chromas

	if err := verifyRangeProofs(inputs); err != nil {
		return err
	}
	if err := verifyRangeProofs(outputs); err != nil {
		return err
	}

	return nil
}

type indexedProof struct {
	idx   uint32
	proof yuv.PixelProof
}

func bulletproofsByIndex(m map[uint32]yuv.PixelProof) []indexedProof {
	out := make([]indexedProof, 0, len(m))
	for i, p := range m {
		out = append(out, indexedProof{idx: i, proof: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].idx < out[j].idx })
	return out
}

func filterByChroma(proofs []indexedProof, chroma yuv.Chroma) []indexedProof {
	out := make([]indexedProof, 0, len(proofs))
	for _, p := range proofs {
		if p.proof.Pixel.Chroma == chroma {
			out = append(out, p)
		}
	}
	return out
}

func collectChromas(inputs, outputs []indexedProof) []yuv.Chroma {
	seen := map[yuv.Chroma]bool{}
	var out []yuv.Chroma
	for _, p := range append(append([]indexedProof{}, inputs...), outputs...) {
		if !seen[p.proof.Pixel.Chroma] {
			seen[p.proof.Pixel.Chroma] = true
			out = append(out, p.proof.Pixel.Chroma)
		}
	}
	return out
}

// aggregateCommitments computes Σ inputs.commitment − Σ outputs.commitment
// as a single EC point, returned as an x-only public key.
func aggregateCommitments(inputs, outputs []indexedProof) (*btcec.PublicKey, error) {
	var acc btcec.JacobianPoint
	acc.X.SetInt(0)
	acc.Y.SetInt(0)
	acc.Z.SetInt(0)
	first := true

	addPoint := func(pub *btcec.PublicKey, negate bool) {
		var p btcec.JacobianPoint
		pub.AsJacobian(&p)
		if negate {
			p.Y.Negate(1)
			p.Y.Normalize()
		}
		if first {
			acc = p
			first = false
			return
		}
		var sum btcec.JacobianPoint
		btcec.AddNonConst(&acc, &p, &sum)
		acc = sum
	}

	for _, p := range inputs {
		addPoint(p.proof.Commitment, false)
	}
	for _, p := range outputs {
		addPoint(p.proof.Commitment, true)
	}

	acc.ToAffine()
	return btcec.NewPublicKey(&acc.X, &acc.Y), nil
}

// hashCommitments hashes the serialized commitment points: inputs sorted
// ascending by serialized bytes, outputs left in natural (vout) order —
// the asymmetry spec.md §9 calls out explicitly.
func hashCommitments(inputs, outputs []indexedProof) [32]byte {
	inBytes := make([][]byte, 0, len(inputs))
	for _, p := range inputs {
		inBytes = append(inBytes, p.proof.Commitment.SerializeCompressed())
	}
	sort.Slice(inBytes, func(i, j int) bool {
		return lessBytesSlice(inBytes[i], inBytes[j])
	})

	h := sha256.New()
	for _, b := range inBytes {
		h.Write(b)
	}
	for _, p := range outputs {
		h.Write(p.proof.Commitment.SerializeCompressed())
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func lessBytesSlice(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// verifyRangeProofs checks that every bulletproof carries a non-empty
// range proof. The proof bytes themselves are not verified: no
// Bulletproofs single-range verification is performed (see DESIGN.md).
func verifyRangeProofs(proofs []indexedProof) error {
	for _, p := range proofs {
		if len(p.proof.RangeProof) == 0 {
			return &CheckError{Kind: KindAtLeastOneCommitment}
		}
	}
	return nil
}
