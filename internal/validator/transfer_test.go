package validator

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/pixel"
)

// transferTx builds a single-input, single-output Transfer moving amount
// of chroma from sender to recipient, both proved via SigP2WPKH.
func transferTx(t *testing.T, sender, recipient *btcec.PrivateKey, chroma yuv.Chroma, inAmount, outAmount uint64) *yuv.Tx {
	t.Helper()
	inPixel := yuv.Pixel{Chroma: chroma, Luma: yuv.NewLuma(inAmount)}
	outPixel := yuv.Pixel{Chroma: chroma, Luma: yuv.NewLuma(outAmount)}

	outScript, err := pixel.P2WPKHScript(pixel.TweakPubKey(recipient.PubKey(), outPixel), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("P2WPKHScript: %v", err)
	}

	// The prior output's own script is never re-examined by checkTransfer;
	// only the spending input's witness (against InputProofs) matters.
	btx := wire.NewMsgTx(2)
	btx.AddTxIn(&wire.TxIn{Witness: wire.TxWitness{{0x01}, pixel.TweakPubKey(sender.PubKey(), inPixel).SerializeCompressed()}})
	btx.AddTxOut(&wire.TxOut{Value: 10_000, PkScript: outScript})

	return &yuv.Tx{
		Bitcoin: btx,
		Type:    yuv.TxTypeTransfer,
		Transfer: &yuv.TransferData{
			InputProofs: map[uint32]yuv.PixelProof{
				0: {Kind: yuv.ProofSigP2WPKH, Pixel: inPixel, Recipient: sender.PubKey()},
			},
			OutputProofs: map[uint32]yuv.PixelProof{
				0: {Kind: yuv.ProofSigP2WPKH, Pixel: outPixel, Recipient: recipient.PubKey()},
			},
		},
	}
}

func TestCheckTransferConservationHolds(t *testing.T) {
	sender, recipient := mustPriv(t), mustPriv(t)
	chroma := pixel.XOnly(mustPriv(t).PubKey())
	tx := transferTx(t, sender, recipient, chroma, 50, 50)

	if err := Check(tx, &chaincfg.RegressionNetParams); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestCheckTransferRejectsConservationViolation(t *testing.T) {
	sender, recipient := mustPriv(t), mustPriv(t)
	chroma := pixel.XOnly(mustPriv(t).PubKey())
	tx := transferTx(t, sender, recipient, chroma, 50, 40)

	err := Check(tx, &chaincfg.RegressionNetParams)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindConservationRulesViolated {
		t.Fatalf("Check = %v, want KindConservationRulesViolated", err)
	}
}

func TestCheckTransferRejectsWitnessMismatch(t *testing.T) {
	sender, recipient := mustPriv(t), mustPriv(t)
	chroma := pixel.XOnly(mustPriv(t).PubKey())
	tx := transferTx(t, sender, recipient, chroma, 50, 50)

	impostor := mustPriv(t)
	tx.Bitcoin.TxIn[0].Witness = wire.TxWitness{{0x01}, impostor.PubKey().SerializeCompressed()}

	err := Check(tx, &chaincfg.RegressionNetParams)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindInvalidProof {
		t.Fatalf("Check = %v, want KindInvalidProof", err)
	}
}

func TestCheckTransferRejectsMixedBulletproofAndPlaintext(t *testing.T) {
	sender, recipient := mustPriv(t), mustPriv(t)
	chroma := pixel.XOnly(mustPriv(t).PubKey())
	tx := transferTx(t, sender, recipient, chroma, 50, 50)

	bp := tx.Transfer.OutputProofs[0]
	bp.Kind = yuv.ProofBulletproof
	bp.Commitment = recipient.PubKey()
	tx.Transfer.OutputProofs[0] = bp

	// The output's script must still match a Bulletproof's tweak derivation
	// (TweakPubKey from Recipient/Pixel, same as SigP2WPKH) so the failure
	// observed is the mixed-kind conservation check, not a script mismatch.
	script, err := pixel.P2WPKHScript(pixel.TweakPubKey(recipient.PubKey(), bp.Pixel), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("P2WPKHScript: %v", err)
	}
	tx.Bitcoin.TxOut[0].PkScript = script

	err = Check(tx, &chaincfg.RegressionNetParams)
	ce, ok := err.(*CheckError)
	if !ok || ce.Kind != KindMixedBulletproofsAndNonBulletproofs {
		t.Fatalf("Check = %v, want KindMixedBulletproofsAndNonBulletproofs", err)
	}
}
