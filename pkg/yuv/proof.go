package yuv

import "github.com/btcsuite/btcd/btcec/v2"

// ProofKind tags the closed variant set of PixelProof. A tagged union with
// a single dispatch point is preferred here over an interface with open
// implementations, so that the isolated validator's switch over kinds can
// be checked for exhaustiveness by a reviewer.
type ProofKind uint8

const (
	ProofSigP2WPKH ProofKind = iota
	ProofMultisig
	ProofBulletproof
	ProofLightningHTLC
	ProofEmptyPixel
)

func (k ProofKind) String() string {
	switch k {
	case ProofSigP2WPKH:
		return "SigP2WPKH"
	case ProofMultisig:
		return "Multisig"
	case ProofBulletproof:
		return "Bulletproof"
	case ProofLightningHTLC:
		return "LightningHTLC"
	case ProofEmptyPixel:
		return "EmptyPixel"
	default:
		return "Unknown"
	}
}

// HTLCData carries the BOLT-3 offered/received HTLC script parameters
// needed to reconstruct the (pixel-tweaked) witness script.
type HTLCData struct {
	Offered          bool
	PaymentHash160   [20]byte
	RemoteHTLCPubkey [33]byte
	LocalHTLCPubkey  [33]byte
	RevocationPubkey [33]byte
	CltvExpiry       uint32 // only meaningful for received (non-Offered) HTLCs
}

// PixelProof is the tagged union of evidence that a pixel is attached to a
// given Bitcoin input or output. Only Bulletproof hides the plaintext
// pixel, carrying a Pedersen commitment and range proof instead.
type PixelProof struct {
	Kind ProofKind

	// Populated for all kinds, including Bulletproof: the chroma (asset
	// id) is public even when the amount is hidden, so Pixel.Chroma is
	// set and Pixel.Luma is left zero for Bulletproof proofs — the real
	// amount lives only in Commitment. The anonymous participant keys of
	// Multisig carry Pixel only on the tweaked first participant.
	Pixel Pixel

	// SigP2WPKH / Bulletproof / EmptyPixel.
	Recipient *btcec.PublicKey

	// Multisig.
	Participants []*btcec.PublicKey
	Threshold    uint8

	// Bulletproof.
	Commitment     *btcec.PublicKey // Pedersen commitment point
	Committer      *btcec.PublicKey // signer identity before chroma aggregation
	RangeProof     []byte
	Signature      []byte // Schnorr sig over G_all, output proofs only
	ChromaSignature []byte // Schnorr sig over G_chroma, output proofs only

	// LightningHTLC.
	HTLC HTLCData
}

// IsEmptyPixelKind reports whether this proof represents the EmptyPixel
// variant (untweaked spend of a non-yuv or change output).
func (p PixelProof) IsEmptyPixelKind() bool {
	return p.Kind == ProofEmptyPixel
}

// EffectivePixel returns the pixel this proof asserts, treating
// EmptyPixel as the zero pixel and Bulletproof as carrying no plaintext
// pixel (callers must not sum its Luma into conservation checks directly;
// use the commitment-based check in the bulletproof branch instead).
func (p PixelProof) EffectivePixel() Pixel {
	if p.Kind == ProofEmptyPixel {
		return Pixel{}
	}
	return p.Pixel
}
