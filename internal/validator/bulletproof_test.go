package validator

import (
	"testing"

	"github.com/rawblock/yuvd/pkg/yuv"
)

func TestBulletproofMixDetectsAnyAndAll(t *testing.T) {
	data := &yuv.TransferData{
		InputProofs: map[uint32]yuv.PixelProof{
			0: {Kind: yuv.ProofBulletproof},
		},
		OutputProofs: map[uint32]yuv.PixelProof{
			0: {Kind: yuv.ProofSigP2WPKH},
		},
	}
	any, all := bulletproofMix(data)
	if !any || all {
		t.Fatalf("any=%v all=%v, want any=true all=false for a mixed batch", any, all)
	}
}

func TestBulletproofMixAllBulletproof(t *testing.T) {
	data := &yuv.TransferData{
		InputProofs: map[uint32]yuv.PixelProof{
			0: {Kind: yuv.ProofBulletproof},
		},
		OutputProofs: map[uint32]yuv.PixelProof{
			0: {Kind: yuv.ProofBulletproof},
		},
	}
	any, all := bulletproofMix(data)
	if !any || !all {
		t.Fatalf("any=%v all=%v, want both true", any, all)
	}
}

func TestBulletproofMixNoneBulletproof(t *testing.T) {
	data := &yuv.TransferData{
		InputProofs:  map[uint32]yuv.PixelProof{0: {Kind: yuv.ProofSigP2WPKH}},
		OutputProofs: map[uint32]yuv.PixelProof{0: {Kind: yuv.ProofSigP2WPKH}},
	}
	any, all := bulletproofMix(data)
	if any || all {
		t.Fatalf("any=%v all=%v, want both false for an all-plaintext batch", any, all)
	}
}

func TestCheckBulletproofConservationRequiresCommitmentOnEverySide(t *testing.T) {
	data := &yuv.TransferData{
		InputProofs:  map[uint32]yuv.PixelProof{0: {Kind: yuv.ProofBulletproof}}, // no Commitment
		OutputProofs: map[uint32]yuv.PixelProof{0: {Kind: yuv.ProofBulletproof}},
	}
	err := checkBulletproofConservation(data)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindAtLeastOneCommitment {
		t.Fatalf("checkBulletproofConservation = %v, want KindAtLeastOneCommitment", err)
	}
}

func TestCheckBulletproofConservationRequiresBothSides(t *testing.T) {
	data := &yuv.TransferData{
		InputProofs:  map[uint32]yuv.PixelProof{},
		OutputProofs: map[uint32]yuv.PixelProof{},
	}
	err := checkBulletproofConservation(data)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindAtLeastOneCommitment {
		t.Fatalf("checkBulletproofConservation = %v, want KindAtLeastOneCommitment for an empty batch", err)
	}
}

// TestHashCommitmentsSortsInputsIgnoringMapOrder guards the one concrete
// asymmetry spec.md §9 pins down: inputs are sorted by serialized bytes
// before hashing (outputs are not), so the hash must not depend on which
// vin happens to hold which commitment.
func TestHashCommitmentsSortsInputsIgnoringMapOrder(t *testing.T) {
	a, b := mustPriv(t), mustPriv(t)

	order1 := []indexedProof{
		{idx: 0, proof: yuv.PixelProof{Commitment: a.PubKey()}},
		{idx: 1, proof: yuv.PixelProof{Commitment: b.PubKey()}},
	}
	order2 := []indexedProof{
		{idx: 0, proof: yuv.PixelProof{Commitment: b.PubKey()}},
		{idx: 1, proof: yuv.PixelProof{Commitment: a.PubKey()}},
	}
	outputs := []indexedProof{{idx: 0, proof: yuv.PixelProof{Commitment: a.PubKey()}}}

	h1 := hashCommitments(order1, outputs)
	h2 := hashCommitments(order2, outputs)
	if h1 != h2 {
		t.Fatal("hashCommitments must be invariant to which vin holds which input commitment")
	}
}
