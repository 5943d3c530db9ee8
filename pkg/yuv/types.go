// Package yuv defines the core data model of the pixel protocol: chromas,
// lumas, pixels, pixel keys and the yuv transaction types that travel
// alongside Bitcoin transactions.
package yuv

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChromaSize is the length of a chroma: a 32-byte x-only public key.
const ChromaSize = 32

// LumaSize is the length of a luma amount, stored as a 16-byte big-endian
// unsigned integer (up to 128 bits).
const LumaSize = 16

// Chroma identifies a token type by the x-only public key of its issuer.
type Chroma [ChromaSize]byte

// ErrInvalidChromaLength is returned when decoding a chroma from bytes of
// the wrong length.
var ErrInvalidChromaLength = errors.New("yuv: invalid chroma length")

// IsZero reports whether c is the all-zero sentinel chroma used by
// EmptyPixel proofs.
func (c Chroma) IsZero() bool {
	return c == Chroma{}
}

// String renders the chroma as lowercase hex.
func (c Chroma) String() string {
	return hex.EncodeToString(c[:])
}

// ChromaFromBytes copies b into a Chroma, requiring an exact length match.
func ChromaFromBytes(b []byte) (Chroma, error) {
	var c Chroma
	if len(b) != ChromaSize {
		return c, fmt.Errorf("%w: got %d bytes", ErrInvalidChromaLength, len(b))
	}
	copy(c[:], b)
	return c, nil
}

// Luma is a non-negative amount of up to 128 bits, optionally carrying a
// blinding factor for the Bulletproof range-commitment branch.
type Luma struct {
	Amount   [LumaSize]byte // big-endian u128
	Blinding [LumaSize]byte // only meaningful alongside a Bulletproof proof
	HasBlinding bool
}

// NewLuma builds a Luma from a uint64 amount (the common case; values above
// 64 bits must be constructed via LumaFromBigEndian).
func NewLuma(amount uint64) Luma {
	var l Luma
	putUint128(l.Amount[:], amount)
	return l
}

// LumaFromBigEndian builds a Luma from a raw 16-byte big-endian value.
func LumaFromBigEndian(b [LumaSize]byte) Luma {
	return Luma{Amount: b}
}

// Uint64 returns the low 64 bits of the amount; callers that might carry
// full 128-bit amounts should operate on Amount directly.
func (l Luma) Uint64() uint64 {
	var v uint64
	for _, b := range l.Amount[8:] {
		v = v<<8 | uint64(b)
	}
	return v
}

// IsZero reports whether the amount is zero, irrespective of blinding.
func (l Luma) IsZero() bool {
	return l.Amount == [LumaSize]byte{}
}

// Add returns l+o performed on the 128-bit big-endian amount with
// saturating-on-overflow semantics (overflow cannot occur for legitimate
// supplies bounded by max_supply checks upstream, but we never wrap
// silently into a smaller value).
func (l Luma) Add(o Luma) Luma {
	var out Luma
	var carry uint16
	for i := LumaSize - 1; i >= 0; i-- {
		sum := uint16(l.Amount[i]) + uint16(o.Amount[i]) + carry
		out.Amount[i] = byte(sum)
		carry = sum >> 8
	}
	if carry != 0 {
		for i := range out.Amount {
			out.Amount[i] = 0xff
		}
	}
	return out
}

// Cmp compares two 128-bit big-endian amounts; result <0, 0, >0 like bytes.Compare.
func (l Luma) Cmp(o Luma) int {
	for i := 0; i < LumaSize; i++ {
		if l.Amount[i] != o.Amount[i] {
			if l.Amount[i] < o.Amount[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func putUint128(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0 && v > 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// Pixel is the (luma, chroma) pair semantically attached to a Bitcoin output.
type Pixel struct {
	Luma   Luma
	Chroma Chroma
}

// IsEmpty reports whether this is the EmptyPixel sentinel: zero luma and
// zero chroma.
func (p Pixel) IsEmpty() bool {
	return p.Luma.IsZero() && p.Chroma.IsZero()
}

// Outpoint identifies a Bitcoin UTXO by its creating transaction id and
// output index; it is the key used by the freeze state machine and by
// parent-dependency resolution in the DAG attacher.
type Outpoint struct {
	Txid chainhash.Hash
	Vout uint32
}

// String renders the outpoint as "<txid>:<vout>".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Txid.String(), o.Vout)
}
