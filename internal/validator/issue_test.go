package validator

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/pixel"
)

func mustPriv(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("btcec.NewPrivateKey: %v", err)
	}
	return priv
}

// issueTx builds a one-output Issue transaction whose single input's
// witness directly carries the chroma owner's pubkey (check 4's first
// branch) and whose output carries a SigP2WPKH proof matching the
// corresponding tweaked script (check 3).
func issueTx(t *testing.T, issuer *btcec.PrivateKey, recipient *btcec.PrivateKey, amount uint64) *yuv.Tx {
	t.Helper()
	chroma := pixel.XOnly(issuer.PubKey())
	p := yuv.Pixel{Chroma: chroma, Luma: yuv.NewLuma(amount)}

	script, err := pixel.P2WPKHScript(pixel.TweakPubKey(recipient.PubKey(), p), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("P2WPKHScript: %v", err)
	}

	btx := wire.NewMsgTx(2)
	btx.AddTxIn(&wire.TxIn{Witness: wire.TxWitness{{0x01}, issuer.PubKey().SerializeCompressed()}})
	btx.AddTxOut(&wire.TxOut{Value: 10_000, PkScript: script})

	return &yuv.Tx{
		Bitcoin: btx,
		Type:    yuv.TxTypeIssue,
		Issue: &yuv.IssueData{
			OutputProofs: map[uint32]yuv.PixelProof{
				0: {Kind: yuv.ProofSigP2WPKH, Pixel: p, Recipient: recipient.PubKey()},
			},
		},
	}
}

func TestCheckIssueValid(t *testing.T) {
	issuer, recipient := mustPriv(t), mustPriv(t)
	tx := issueTx(t, issuer, recipient, 100)
	if err := Check(tx, &chaincfg.RegressionNetParams); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckIssueRejectsWitnessFromUnrelatedKey(t *testing.T) {
	issuer, recipient := mustPriv(t), mustPriv(t)
	tx := issueTx(t, issuer, recipient, 100)

	impostor := mustPriv(t)
	tx.Bitcoin.TxIn[0].Witness = wire.TxWitness{{0x01}, impostor.PubKey().SerializeCompressed()}

	err := Check(tx, &chaincfg.RegressionNetParams)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindIssuerNotOwner {
		t.Fatalf("Check = %v, want KindIssuerNotOwner", err)
	}
}

func TestCheckIssueRejectsMismatchedOutputProofChroma(t *testing.T) {
	issuer, recipient := mustPriv(t), mustPriv(t)
	tx := issueTx(t, issuer, recipient, 100)

	// Add a second output proof under a different chroma; sameChroma must
	// now reject the batch.
	other := mustPriv(t)
	p2 := yuv.Pixel{Chroma: pixel.XOnly(other.PubKey()), Luma: yuv.NewLuma(1)}
	script, err := pixel.P2WPKHScript(pixel.TweakPubKey(recipient.PubKey(), p2), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("P2WPKHScript: %v", err)
	}
	tx.Bitcoin.AddTxOut(&wire.TxOut{Value: 5_000, PkScript: script})
	tx.Issue.OutputProofs[1] = yuv.PixelProof{Kind: yuv.ProofSigP2WPKH, Pixel: p2, Recipient: recipient.PubKey()}

	err = Check(tx, &chaincfg.RegressionNetParams)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindNotSameChroma {
		t.Fatalf("Check = %v, want KindNotSameChroma", err)
	}
}

func TestCheckIssueRejectsScriptMismatch(t *testing.T) {
	issuer, recipient := mustPriv(t), mustPriv(t)
	tx := issueTx(t, issuer, recipient, 100)

	// Corrupt the proof's claimed amount so the derived tweak no longer
	// matches the output script actually on the transaction.
	proof := tx.Issue.OutputProofs[0]
	proof.Pixel.Luma = yuv.NewLuma(999)
	tx.Issue.OutputProofs[0] = proof

	err := Check(tx, &chaincfg.RegressionNetParams)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindInvalidProof {
		t.Fatalf("Check = %v, want KindInvalidProof", err)
	}
}

func TestCheckIssueAcceptsTweakedEmptyPixelIssuerWitness(t *testing.T) {
	issuer, recipient := mustPriv(t), mustPriv(t)
	tx := issueTx(t, issuer, recipient, 100)

	chroma := pixel.XOnly(issuer.PubKey())
	tweaked, err := pixel.EmptyPixelTweak(chroma)
	if err != nil {
		t.Fatalf("EmptyPixelTweak: %v", err)
	}
	tx.Bitcoin.TxIn[0].Witness = wire.TxWitness{{0x01}, tweaked.SerializeCompressed()}

	if err := Check(tx, &chaincfg.RegressionNetParams); err != nil {
		t.Fatalf("Check: %v", err)
	}
}
