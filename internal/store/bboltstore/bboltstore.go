// Package bboltstore is the production store.Store backend, a single
// bbolt file holding one bucket per SPEC_FULL.md §4.2 logical map. The
// bucket-per-map layout and open/close lifecycle follow the bbolt usage
// in rubin-protocol's node/store package; this module adds the
// page/page_count namespaces the DAG attacher's pagination needs.
package bboltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/wire"
)

var (
	bucketYuvTx       = []byte("ytx")
	bucketLastIndexed = []byte("lidx")
	bucketFrozen      = []byte("frz")
	bucketInvalid     = []byte("inv")
	bucketChromaInfo  = []byte("chi")
	bucketMeta        = []byte("meta")
	bucketPages       = []byte("pg")

	keyLastIndexed = []byte("tip")
	keyPageCount   = []byte("page_count")
)

// Store is a bbolt-backed store.Store.
type Store struct {
	db *bolt.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if absent) the bbolt file at path and ensures every
// required bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bboltstore: open %s: %w", path, err)
	}
	buckets := [][]byte{bucketYuvTx, bucketLastIndexed, bucketFrozen, bucketInvalid, bucketChromaInfo, bucketMeta, bucketPages}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Flush(_ context.Context) error { return nil }

func (s *Store) YuvTx(_ context.Context, txid [32]byte) (*yuv.Tx, bool, error) {
	var out *yuv.Tx
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketYuvTx).Get(txid[:])
		if v == nil {
			return nil
		}
		decoded, err := wire.DecodeTxBytes(v)
		if err != nil {
			return err
		}
		out = decoded
		return nil
	})
	return out, out != nil, err
}

func (s *Store) PutYuvTx(_ context.Context, txid [32]byte, ytx *yuv.Tx) error {
	raw, err := wire.EncodeTxBytes(ytx)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketYuvTx).Put(txid[:], raw)
	})
}

func (s *Store) LastIndexed(_ context.Context) ([32]byte, bool, error) {
	var out [32]byte
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketLastIndexed).Get(keyLastIndexed)
		if v == nil {
			return nil
		}
		if len(v) != 32 {
			return fmt.Errorf("bboltstore: corrupt last_indexed entry")
		}
		copy(out[:], v)
		ok = true
		return nil
	})
	return out, ok, err
}

func (s *Store) SetLastIndexed(_ context.Context, hash [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLastIndexed).Put(keyLastIndexed, hash[:])
	})
}

func (s *Store) Frozen(_ context.Context, out yuv.Outpoint) (*yuv.FrozenTxEntry, bool, error) {
	key := encodeOutpoint(out)
	var entry *yuv.FrozenTxEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketFrozen).Get(key)
		if v == nil {
			return nil
		}
		e, err := decodeFrozenEntry(v)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, entry != nil, err
}

func (s *Store) PutFrozen(_ context.Context, out yuv.Outpoint, entry *yuv.FrozenTxEntry) error {
	key := encodeOutpoint(out)
	val := encodeFrozenEntry(entry)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFrozen).Put(key, val)
	})
}

func (s *Store) DeleteFrozen(_ context.Context, out yuv.Outpoint) error {
	key := encodeOutpoint(out)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFrozen).Delete(key)
	})
}

func (s *Store) Invalid(_ context.Context, txid [32]byte) (*yuv.Tx, bool, error) {
	var out *yuv.Tx
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketInvalid).Get(txid[:])
		if v == nil {
			return nil
		}
		decoded, err := wire.DecodeTxBytes(v)
		if err != nil {
			return err
		}
		out = decoded
		return nil
	})
	return out, out != nil, err
}

func (s *Store) PutInvalid(_ context.Context, txid [32]byte, ytx *yuv.Tx) error {
	raw, err := wire.EncodeTxBytes(ytx)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInvalid).Put(txid[:], raw)
	})
}

func (s *Store) ChromaInfo(_ context.Context, chroma yuv.Chroma) (*yuv.ChromaInfo, bool, error) {
	var out *yuv.ChromaInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketChromaInfo).Get(chroma[:])
		if v == nil {
			return nil
		}
		ci, err := decodeChromaInfo(v)
		if err != nil {
			return err
		}
		out = ci
		return nil
	})
	return out, out != nil, err
}

func (s *Store) PutChromaInfo(_ context.Context, chroma yuv.Chroma, info *yuv.ChromaInfo) error {
	val := encodeChromaInfo(info)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChromaInfo).Put(chroma[:], val)
	})
}

func (s *Store) PageCount(_ context.Context) (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get(keyPageCount)
		if len(v) == 8 {
			n = binary.LittleEndian.Uint64(v)
		}
		return nil
	})
	return n, err
}

func (s *Store) SetPageCount(_ context.Context, n uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyPageCount, b[:])
	})
}

func (s *Store) Page(_ context.Context, i uint64) ([][32]byte, error) {
	var out [][32]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPages).Get(pageKey(i))
		out = decodeTxidList(v)
		return nil
	})
	return out, err
}

func (s *Store) AppendPage(_ context.Context, i uint64, txid [32]byte) error {
	key := pageKey(i)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPages)
		cur := decodeTxidList(b.Get(key))
		cur = append(cur, txid)
		return b.Put(key, encodeTxidList(cur))
	})
}

func pageKey(i uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], i)
	return b[:]
}

func encodeTxidList(ids [][32]byte) []byte {
	out := make([]byte, len(ids)*32)
	for i, id := range ids {
		copy(out[i*32:], id[:])
	}
	return out
}

func decodeTxidList(b []byte) [][32]byte {
	if len(b)%32 != 0 {
		return nil
	}
	out := make([][32]byte, 0, len(b)/32)
	for i := 0; i+32 <= len(b); i += 32 {
		var id [32]byte
		copy(id[:], b[i:i+32])
		out = append(out, id)
	}
	return out
}

func encodeOutpoint(o yuv.Outpoint) []byte {
	key := make([]byte, 36)
	copy(key[:32], o.Txid[:])
	binary.LittleEndian.PutUint32(key[32:], o.Vout)
	return key
}

func encodeFrozenEntry(e *yuv.FrozenTxEntry) []byte {
	out := make([]byte, 0, len(e.TxIDs)*32)
	for _, id := range e.TxIDs {
		out = append(out, id[:]...)
	}
	return out
}

func decodeFrozenEntry(b []byte) (*yuv.FrozenTxEntry, error) {
	if len(b)%32 != 0 {
		return nil, fmt.Errorf("bboltstore: corrupt frozen entry")
	}
	ids := decodeTxidList(b)
	e := &yuv.FrozenTxEntry{}
	for _, id := range ids {
		e.TxIDs = append(e.TxIDs, id)
	}
	return e, nil
}

// encodeChromaInfo is a small hand-rolled layout (no announcement: 1 flag
// byte of 0; else 1, name/symbol length-prefixed, decimals, max_supply,
// is_freezable, total_supply), in the same straight-line style as
// pkg/yuv/wire rather than a generic serialization library.
func encodeChromaInfo(ci *yuv.ChromaInfo) []byte {
	var out []byte
	if ci.Announcement == nil {
		out = append(out, 0)
	} else {
		a := ci.Announcement
		out = append(out, 1)
		out = append(out, a.Chroma[:]...)
		out = appendLenPrefixed(out, []byte(a.Name))
		out = appendLenPrefixed(out, []byte(a.Symbol))
		out = append(out, a.Decimals)
		out = append(out, a.MaxSupply.Amount[:]...)
		if a.IsFreezable {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	out = append(out, ci.TotalSupply.Amount[:]...)
	return out
}

func decodeChromaInfo(b []byte) (*yuv.ChromaInfo, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("bboltstore: truncated chroma info")
	}
	ci := &yuv.ChromaInfo{}
	hasAnn := b[0]
	b = b[1:]
	if hasAnn == 1 {
		a := &yuv.ChromaAnnouncement{}
		if len(b) < yuv.ChromaSize {
			return nil, fmt.Errorf("bboltstore: truncated chroma info")
		}
		copy(a.Chroma[:], b[:yuv.ChromaSize])
		b = b[yuv.ChromaSize:]

		name, rest, err := readLenPrefixed(b)
		if err != nil {
			return nil, err
		}
		a.Name = string(name)
		b = rest

		symbol, rest, err := readLenPrefixed(b)
		if err != nil {
			return nil, err
		}
		a.Symbol = string(symbol)
		b = rest

		if len(b) < 1+yuv.LumaSize+1 {
			return nil, fmt.Errorf("bboltstore: truncated chroma info")
		}
		a.Decimals = b[0]
		b = b[1:]
		copy(a.MaxSupply.Amount[:], b[:yuv.LumaSize])
		b = b[yuv.LumaSize:]
		a.IsFreezable = b[0] == 1
		b = b[1:]
		ci.Announcement = a
	}
	if len(b) != yuv.LumaSize {
		return nil, fmt.Errorf("bboltstore: truncated chroma info total_supply")
	}
	copy(ci.TotalSupply.Amount[:], b)
	return ci, nil
}

func appendLenPrefixed(out []byte, b []byte) []byte {
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(b)))
	out = append(out, l[:]...)
	return append(out, b...)
}

func readLenPrefixed(b []byte) (val []byte, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("bboltstore: truncated length-prefixed field")
	}
	n := int(binary.LittleEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < n {
		return nil, nil, fmt.Errorf("bboltstore: truncated length-prefixed field")
	}
	return b[:n], b[n:], nil
}
