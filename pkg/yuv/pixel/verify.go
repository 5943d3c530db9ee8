package pixel

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/pkg/yuv"
)

// ErrScriptMismatch is returned by MatchesOutput when the output's
// script_pubkey does not match the one derived from the proof.
var ErrScriptMismatch = errors.New("pixel: proof does not match output script")

// MatchesOutput verifies a PixelProof against the corresponding Bitcoin
// output's script_pubkey, implementing SPEC_FULL.md §4.1.1.
func MatchesOutput(proof yuv.PixelProof, out *wire.TxOut, net *chaincfg.Params) error {
	want, err := expectedOutputScript(proof, net)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, out.PkScript) {
		return ErrScriptMismatch
	}
	return nil
}

func expectedOutputScript(proof yuv.PixelProof, net *chaincfg.Params) ([]byte, error) {
	switch proof.Kind {
	case yuv.ProofSigP2WPKH, yuv.ProofBulletproof:
		tweaked := TweakPubKey(proof.Recipient, proof.Pixel)
		return P2WPKHScript(tweaked, net)

	case yuv.ProofMultisig:
		if len(proof.Participants) == 0 {
			return nil, errors.New("pixel: multisig proof has no participants")
		}
		tweakedFirst := TweakPubKey(proof.Participants[0], proof.Pixel)
		script, err := MultisigWitnessScript(tweakedFirst, proof.Participants[1:], proof.Threshold)
		if err != nil {
			return nil, err
		}
		return P2WSHScript(script, net)

	case yuv.ProofLightningHTLC:
		script, err := HTLCScript(proof.Pixel, proof.HTLC)
		if err != nil {
			return nil, err
		}
		return P2WSHScript(script, net)

	case yuv.ProofEmptyPixel:
		return P2WPKHScript(proof.Recipient, net)

	default:
		return nil, errors.New("pixel: unknown proof kind")
	}
}

// MatchesInputWitness verifies a PixelProof against the witness stack of
// the corresponding Bitcoin input, implementing SPEC_FULL.md §4.1.2. For
// P2WPKH it expects a two-element witness (signature, pubkey); for
// Multisig it expects the standard CHECKMULTISIG witness stack plus a
// trailing witness script, with the tweaked first key embedded in it.
func MatchesInputWitness(proof yuv.PixelProof, witness wire.TxWitness) (*btcec.PublicKey, error) {
	switch proof.Kind {
	case yuv.ProofSigP2WPKH, yuv.ProofBulletproof, yuv.ProofEmptyPixel:
		if len(witness) != 2 {
			return nil, errors.New("pixel: expected 2-element P2WPKH witness")
		}
		pub, err := btcec.ParsePubKey(witness[1])
		if err != nil {
			return nil, err
		}
		want := proof.Recipient
		if proof.Kind != yuv.ProofEmptyPixel {
			want = TweakPubKey(proof.Recipient, proof.Pixel)
		}
		if !bytes.Equal(pub.SerializeCompressed(), want.SerializeCompressed()) {
			return nil, errors.New("pixel: witness pubkey does not match tweaked recipient")
		}
		return pub, nil

	case yuv.ProofMultisig:
		if len(witness) < 2 {
			return nil, errors.New("pixel: malformed multisig witness")
		}
		script := witness[len(witness)-1]
		tweakedFirst := TweakPubKey(proof.Participants[0], proof.Pixel)
		want, err := MultisigWitnessScript(tweakedFirst, proof.Participants[1:], proof.Threshold)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(script, want) {
			return nil, errors.New("pixel: witness script does not match tweaked multisig")
		}
		return tweakedFirst, nil

	case yuv.ProofLightningHTLC:
		if len(witness) < 2 {
			return nil, errors.New("pixel: malformed HTLC witness")
		}
		script := witness[len(witness)-1]
		want, err := HTLCScript(proof.Pixel, proof.HTLC)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(script, want) {
			return nil, errors.New("pixel: witness script does not match tweaked HTLC")
		}
		return nil, nil

	default:
		return nil, errors.New("pixel: unknown proof kind")
	}
}

// IssuerWitnessPubkey matches a single input's P2WPKH witness pubkey
// against either the chroma itself (x-only) or the even-parity tweak of
// the chroma by the empty pixel, per SPEC_FULL.md §4.1 Issue check 4.
func IssuerWitnessPubkey(witness wire.TxWitness, chroma yuv.Chroma) (bool, error) {
	if len(witness) != 2 {
		return false, nil
	}
	pub, err := btcec.ParsePubKey(witness[1])
	if err != nil {
		return false, nil
	}
	if XOnly(pub) == chroma {
		return true, nil
	}
	tweaked, err := EmptyPixelTweak(chroma)
	if err != nil {
		return false, err
	}
	return XOnly(pub) == XOnly(tweaked), nil
}
