package pixel

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/pkg/yuv"
)

// oddYSibling returns the public key sharing pub's x-coordinate but with
// the opposite y-parity, used to exercise the x-only comparisons below
// against a witness pubkey that happens to carry odd parity.
func oddYSibling(pub *btcec.PublicKey) *btcec.PublicKey {
	var p btcec.JacobianPoint
	pub.AsJacobian(&p)
	p.Y.Negate(1)
	p.Y.Normalize()
	return btcec.NewPublicKey(&p.X, &p.Y)
}

func mustPriv(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("btcec.NewPrivateKey: %v", err)
	}
	return priv
}

func TestIssuerWitnessPubkeyChromaMatch(t *testing.T) {
	priv := mustPriv(t)
	chroma := XOnly(priv.PubKey())

	witness := wire.TxWitness{{0x01}, priv.PubKey().SerializeCompressed()}
	ok, err := IssuerWitnessPubkey(witness, chroma)
	if err != nil {
		t.Fatalf("IssuerWitnessPubkey: %v", err)
	}
	if !ok {
		t.Fatal("expected chroma owner's own pubkey to match")
	}
}

// TestIssuerWitnessPubkeyTweakedEmptyPixelOddParity exercises SPEC_FULL.md
// §4.1 Issue check 4's second branch with a witness pubkey whose
// y-coordinate has the opposite parity from EmptyPixelTweak's even-y
// normalized output; the x-coordinates are identical, so the comparison
// must be x-only on both sides to accept it.
func TestIssuerWitnessPubkeyTweakedEmptyPixelOddParity(t *testing.T) {
	priv := mustPriv(t)
	chroma := XOnly(priv.PubKey())

	tweaked, err := EmptyPixelTweak(chroma)
	if err != nil {
		t.Fatalf("EmptyPixelTweak: %v", err)
	}
	sibling := oddYSibling(tweaked)
	if sibling.SerializeCompressed()[0] == tweaked.SerializeCompressed()[0] {
		t.Fatal("test setup bug: sibling must carry the opposite parity byte")
	}

	witness := wire.TxWitness{{0x01}, sibling.SerializeCompressed()}
	ok, err := IssuerWitnessPubkey(witness, chroma)
	if err != nil {
		t.Fatalf("IssuerWitnessPubkey: %v", err)
	}
	if !ok {
		t.Fatal("odd-parity sibling of the tweaked-empty-pixel key must still match (x-only comparison)")
	}
}

func TestIssuerWitnessPubkeyRejectsUnrelatedKey(t *testing.T) {
	chroma := XOnly(mustPriv(t).PubKey())
	unrelated := mustPriv(t)

	witness := wire.TxWitness{{0x01}, unrelated.PubKey().SerializeCompressed()}
	ok, err := IssuerWitnessPubkey(witness, chroma)
	if err != nil {
		t.Fatalf("IssuerWitnessPubkey: %v", err)
	}
	if ok {
		t.Fatal("an unrelated key must not match either branch")
	}
}

func TestMatchesOutputSigP2WPKHRoundTrip(t *testing.T) {
	priv := mustPriv(t)
	pixel := yuv.Pixel{Chroma: XOnly(priv.PubKey()), Luma: yuv.NewLuma(42)}

	script, err := P2WPKHScript(TweakPubKey(priv.PubKey(), pixel), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("P2WPKHScript: %v", err)
	}

	proof := yuv.PixelProof{Kind: yuv.ProofSigP2WPKH, Pixel: pixel, Recipient: priv.PubKey()}
	out := &wire.TxOut{PkScript: script, Value: 10_000}
	if err := MatchesOutput(proof, out, &chaincfg.RegressionNetParams); err != nil {
		t.Fatalf("MatchesOutput: %v", err)
	}
}

func TestMatchesOutputRejectsWrongPixel(t *testing.T) {
	priv := mustPriv(t)
	pixel := yuv.Pixel{Chroma: XOnly(priv.PubKey()), Luma: yuv.NewLuma(42)}
	script, err := P2WPKHScript(TweakPubKey(priv.PubKey(), pixel), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("P2WPKHScript: %v", err)
	}

	wrongPixel := yuv.Pixel{Chroma: pixel.Chroma, Luma: yuv.NewLuma(43)}
	proof := yuv.PixelProof{Kind: yuv.ProofSigP2WPKH, Pixel: wrongPixel, Recipient: priv.PubKey()}
	out := &wire.TxOut{PkScript: script, Value: 10_000}
	if err := MatchesOutput(proof, out, &chaincfg.RegressionNetParams); err == nil {
		t.Fatal("expected a luma mismatch to change the tweak and fail MatchesOutput")
	}
}

func TestTweakPubKeyIsXOnlyStable(t *testing.T) {
	priv := mustPriv(t)
	pixel := yuv.Pixel{Chroma: XOnly(priv.PubKey()), Luma: yuv.NewLuma(7)}

	a := TweakPubKey(priv.PubKey(), pixel)
	b := TweakPubKey(priv.PubKey(), pixel)
	if XOnly(a) != XOnly(b) {
		t.Fatal("TweakPubKey must be deterministic for the same recipient/pixel")
	}
	if a.Y().Bit(0) != 0 {
		t.Fatal("TweakPubKey must always normalize to even-y")
	}
}
