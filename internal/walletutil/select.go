// Package walletutil is the non-production wallet/tx-builder example
// SPEC_FULL.md's Non-Goals section carves out: largest-first UTXO
// selection over pixel-bearing outputs, built only to exercise
// pkg/yuv/pixel's PixelKey tweaking end-to-end. It is not consensus
// code and the node never imports it at runtime.
//
// Grounded on the teacher's UTXO model and logging idiom
// (Fantasim-hdpay/internal/tx/btc_utxo.go's models.UTXO shape and
// log/slog calls), adapted from fetched-from-Esplora UTXOs to
// store-resident pixel outputs.
package walletutil

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/pixel"
)

// PixelUTXO is a spendable, pixel-bearing Bitcoin output.
type PixelUTXO struct {
	Outpoint yuv.Outpoint
	Pixel    yuv.Pixel
	SatValue int64
}

// SelectLargestFirst greedily selects UTXOs of chroma, largest-luma
// first, until their combined luma is at least target. It returns
// ErrInsufficientFunds if the full candidate set still falls short.
//
// This is deliberately the simplest coin-selection policy that exists;
// real wallets also weigh fee rate and privacy, which is exactly why
// SPEC_FULL.md's Non-Goals exclude "UTXO selection beyond
// largest-first" from this node's scope.
func SelectLargestFirst(candidates []PixelUTXO, chroma yuv.Chroma, target yuv.Luma) ([]PixelUTXO, yuv.Luma, error) {
	var pool []PixelUTXO
	for _, c := range candidates {
		if c.Pixel.Chroma == chroma {
			pool = append(pool, c)
		}
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].Pixel.Luma.Cmp(pool[j].Pixel.Luma) > 0
	})

	var picked []PixelUTXO
	sum := yuv.Luma{}
	for _, u := range pool {
		if sum.Cmp(target) >= 0 {
			break
		}
		picked = append(picked, u)
		sum = sum.Add(u.Pixel.Luma)
	}

	if sum.Cmp(target) < 0 {
		return nil, sum, fmt.Errorf("walletutil: %w: have %d, need %d", ErrInsufficientFunds, sum.Uint64(), target.Uint64())
	}

	slog.Debug("selected pixel UTXOs",
		"chroma", chroma.String(),
		"picked", len(picked),
		"target", target.Uint64(),
		"selected", sum.Uint64(),
	)
	return picked, sum, nil
}

// ErrInsufficientFunds is returned when no combination of candidates
// reaches the requested target luma.
var ErrInsufficientFunds = fmt.Errorf("insufficient pixel funds")

// TweakedOutputScript derives the script_pubkey a P2WPKH output paying
// pixel p to recipient must carry, the thing a wallet needs to know
// before it can build the raw transaction that spends the selected
// UTXOs. It exists purely to exercise pkg/yuv/pixel.TweakPubKey end to
// end from this package's selection output.
func TweakedOutputScript(recipient *btcec.PublicKey, p yuv.Pixel, net *chaincfg.Params) ([]byte, error) {
	tweaked := pixel.TweakPubKey(recipient, p)
	return pixel.P2WPKHScript(tweaked, net)
}
