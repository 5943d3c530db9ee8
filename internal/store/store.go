// Package store defines the typed key-value contract SPEC_FULL.md §4.2
// requires of the node's persistence layer, plus the in-memory
// (internal/store/memstore) and bbolt-backed (internal/store/bboltstore)
// implementations of it.
package store

import (
	"context"

	"github.com/rawblock/yuvd/pkg/yuv"
)

// Store is the abstract key-value contract every logical map in
// SPEC_FULL.md §4.2 is built on. Implementations back it with whatever
// storage engine they like; callers never see the underlying bytes.
type Store interface {
	// YuvTx returns the attached transaction for txid, or ok=false if it
	// is not attached (or does not exist at all).
	YuvTx(ctx context.Context, txid [32]byte) (tx *yuv.Tx, ok bool, err error)
	PutYuvTx(ctx context.Context, txid [32]byte, tx *yuv.Tx) error

	LastIndexed(ctx context.Context) (hash [32]byte, ok bool, err error)
	SetLastIndexed(ctx context.Context, hash [32]byte) error

	Frozen(ctx context.Context, out yuv.Outpoint) (entry *yuv.FrozenTxEntry, ok bool, err error)
	PutFrozen(ctx context.Context, out yuv.Outpoint, entry *yuv.FrozenTxEntry) error
	DeleteFrozen(ctx context.Context, out yuv.Outpoint) error

	Invalid(ctx context.Context, txid [32]byte) (tx *yuv.Tx, ok bool, err error)
	PutInvalid(ctx context.Context, txid [32]byte, tx *yuv.Tx) error

	ChromaInfo(ctx context.Context, chroma yuv.Chroma) (info *yuv.ChromaInfo, ok bool, err error)
	PutChromaInfo(ctx context.Context, chroma yuv.Chroma, info *yuv.ChromaInfo) error

	// PageCount returns the number of attachment pages started so far;
	// the last of them may be partly filled.
	PageCount(ctx context.Context) (uint64, error)
	SetPageCount(ctx context.Context, n uint64) error

	// Page returns the ordered list of txids attached to page i.
	Page(ctx context.Context, i uint64) ([][32]byte, error)
	AppendPage(ctx context.Context, i uint64, txid [32]byte) error

	// Flush durably persists any buffered writes. Implementations that
	// write through on every call may treat this as a no-op.
	Flush(ctx context.Context) error

	Close() error
}

// ErrNotFound is a sentinel for lookups that find no value but hit no
// underlying storage error either. The Store methods report absence via
// the ok bool instead, matching SPEC_FULL.md's get/put contract; nothing
// in this repository returns ErrNotFound.
type ErrNotFound struct{ Key string }

func (e *ErrNotFound) Error() string { return "store: not found: " + e.Key }
