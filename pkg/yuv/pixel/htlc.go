package pixel

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/rawblock/yuvd/pkg/yuv"
)

// HTLCScript builds the BOLT-3 offered/received HTLC witness script with
// both HTLC-path pubkeys tweaked by hash(pixel), per SPEC_FULL.md §4.1.1.
// This mirrors lnd/dcrlnd's well-known HTLC script templates
// (lnwallet/script_utils.go in the wider lightning-client family; see
// other_examples' backend-engineer1-land lnwallet script tests for the
// offered/received shape this follows), generalized to tweak both
// the remote and local HTLC keys instead of leaving them untweaked.
//
// This path carries the spec's own open question forward: it is part of
// the validator's closed variant set but has no end-to-end test in the
// source this was distilled from either.
func HTLCScript(p yuv.Pixel, d yuv.HTLCData) ([]byte, error) {
	remote, err := btcec.ParsePubKey(d.RemoteHTLCPubkey[:])
	if err != nil {
		return nil, err
	}
	local, err := btcec.ParsePubKey(d.LocalHTLCPubkey[:])
	if err != nil {
		return nil, err
	}
	revocation, err := btcec.ParsePubKey(d.RevocationPubkey[:])
	if err != nil {
		return nil, err
	}

	tweakedRemote := TweakPubKey(remote, p)
	tweakedLocal := TweakPubKey(local, p)

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(btcutil.Hash160(revocation.SerializeCompressed()))
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddData(tweakedRemote.SerializeCompressed())
	builder.AddOp(txscript.OP_SWAP)
	builder.AddOp(txscript.OP_SIZE)
	builder.AddInt64(32)
	builder.AddOp(txscript.OP_EQUAL)

	if d.Offered {
		builder.AddOp(txscript.OP_NOTIF)
		builder.AddOp(txscript.OP_DROP)
		builder.AddInt64(2)
		builder.AddOp(txscript.OP_SWAP)
		builder.AddData(tweakedLocal.SerializeCompressed())
		builder.AddInt64(2)
		builder.AddOp(txscript.OP_CHECKMULTISIG)
		builder.AddOp(txscript.OP_ELSE)
		builder.AddOp(txscript.OP_HASH160)
		builder.AddData(d.PaymentHash160[:])
		builder.AddOp(txscript.OP_EQUALVERIFY)
		builder.AddOp(txscript.OP_CHECKSIG)
		builder.AddOp(txscript.OP_ENDIF)
	} else {
		builder.AddOp(txscript.OP_IF)
		builder.AddOp(txscript.OP_HASH160)
		builder.AddData(d.PaymentHash160[:])
		builder.AddOp(txscript.OP_EQUALVERIFY)
		builder.AddInt64(2)
		builder.AddOp(txscript.OP_SWAP)
		builder.AddData(tweakedLocal.SerializeCompressed())
		builder.AddInt64(2)
		builder.AddOp(txscript.OP_CHECKMULTISIG)
		builder.AddOp(txscript.OP_ELSE)
		builder.AddData(int64ToScriptNum(d.CltvExpiry))
		builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
		builder.AddOp(txscript.OP_DROP)
		builder.AddOp(txscript.OP_CHECKSIG)
		builder.AddOp(txscript.OP_ENDIF)
	}
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

func int64ToScriptNum(v uint32) []byte {
	return txscript.ScriptNum(int64(v)).Bytes()
}
