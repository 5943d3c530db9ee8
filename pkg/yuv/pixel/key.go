// Package pixel derives pixel-tweaked keys and the scripts that pay to
// them, per SPEC_FULL.md §4.1.1/§4.1.2.
//
// Grounded on the teacher's P2WPKH/address construction idiom
// (Fantasim-hdpay/internal/wallet/btc.go: Hash160 + NewAddressWitnessPubKeyHash)
// and on the taproot-key-tweaking pattern confirmed in the pack by
// other_examples' taproot-assets itest, which pulls in exactly
// btcec/v2 + btcec/v2/schnorr for this kind of tweaked-key verification.
package pixel

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/rawblock/yuvd/pkg/yuv"
)

// HashPixel returns hash(pixel) as used by the additive tweak
// PixelKey = recipient + hash(pixel)*G. The luma amount (and blinding
// factor, if present) and the chroma are all folded into the hash so
// that distinct pixels never collide onto the same tweak.
func HashPixel(p yuv.Pixel) [32]byte {
	h := sha256.New()
	h.Write(p.Chroma[:])
	h.Write(p.Luma.Amount[:])
	if p.Luma.HasBlinding {
		h.Write(p.Luma.Blinding[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// TweakPubKey computes recipient + hash(pixel)*G, normalized to even-y
// (x-only) form as required by SPEC_FULL.md §4.1.1.
func TweakPubKey(recipient *btcec.PublicKey, p yuv.Pixel) *btcec.PublicKey {
	digest := HashPixel(p)

	var tweakScalar btcec.ModNScalar
	tweakScalar.SetByteSlice(digest[:])

	var tweakPoint, recipientPoint, sumPoint btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&tweakScalar, &tweakPoint)
	recipient.AsJacobian(&recipientPoint)
	btcec.AddNonConst(&tweakPoint, &recipientPoint, &sumPoint)
	sumPoint.ToAffine()

	tweaked := btcec.NewPublicKey(&sumPoint.X, &sumPoint.Y)
	return toEvenY(tweaked)
}

// toEvenY returns the public key with even-y-coordinate, per BIP-340
// x-only convention (negating Y — equivalently negating the underlying
// scalar — when it is odd).
func toEvenY(pub *btcec.PublicKey) *btcec.PublicKey {
	if pub.Y().Bit(0) == 0 {
		return pub
	}
	var p btcec.JacobianPoint
	pub.AsJacobian(&p)
	p.Y.Negate(1)
	p.Y.Normalize()
	return btcec.NewPublicKey(&p.X, &p.Y)
}

// XOnly returns the 32-byte x-only serialization of pub.
func XOnly(pub *btcec.PublicKey) [32]byte {
	var out [32]byte
	copy(out[:], pub.X().Bytes())
	return out
}

// EmptyPixelTweak computes PixelKey(EmptyPixel, chromaPubkey), the
// even-parity tweak of the chroma's own pubkey by the zero pixel — the
// alternate form an Issue transaction's issuer input is allowed to spend
// from (SPEC_FULL.md §4.1 Issue check 4), enabling spend of a tweaked
// change UTXO.
func EmptyPixelTweak(chroma yuv.Chroma) (*btcec.PublicKey, error) {
	chromaPub, err := btcec.ParsePubKey(append([]byte{0x02}, chroma[:]...))
	if err != nil {
		return nil, err
	}
	return TweakPubKey(chromaPub, yuv.Pixel{Chroma: yuv.Chroma{}}), nil
}

// P2WPKHScript builds the script_pubkey paying to the hash160 of pub,
// P2WPKH-style.
func P2WPKHScript(pub *btcec.PublicKey, net *chaincfg.Params) ([]byte, error) {
	witnessProg := btcutil.Hash160(pub.SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(witnessProg, net)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

// P2WSHScript wraps a raw witness script in a P2WSH script_pubkey.
func P2WSHScript(witnessScript []byte, net *chaincfg.Params) ([]byte, error) {
	h := sha256.Sum256(witnessScript)
	addr, err := btcutil.NewAddressWitnessScriptHash(h[:], net)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

// MultisigWitnessScript builds the canonical sorted M-of-N witness script
// for Multisig proofs, with the first participant replaced by its
// pixel-tweaked form.
func MultisigWitnessScript(tweakedFirst *btcec.PublicKey, rest []*btcec.PublicKey, threshold uint8) ([]byte, error) {
	keys := make([][]byte, 0, 1+len(rest))
	keys = append(keys, tweakedFirst.SerializeCompressed())
	for _, k := range rest {
		keys = append(keys, k.SerializeCompressed())
	}
	sortCompressedKeys(keys)

	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(threshold))
	for _, k := range keys {
		builder.AddData(k)
	}
	builder.AddInt64(int64(len(keys)))
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	return builder.Script()
}

func sortCompressedKeys(keys [][]byte) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && lessBytes(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
