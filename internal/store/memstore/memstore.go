// Package memstore is an in-memory store.Store used by internal/testkit
// and by unit tests across the pipeline packages. It has no durability
// and no disk footprint; every map is protected by a single mutex since
// the checker worker pool is the only concurrent writer SPEC_FULL.md
// envisions for a store handle.
package memstore

import (
	"context"
	"sync"

	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	yuvTx       map[[32]byte]*yuv.Tx
	lastIndexed [32]byte
	hasIndexed  bool
	frozen      map[yuv.Outpoint]*yuv.FrozenTxEntry
	invalid     map[[32]byte]*yuv.Tx
	chromaInfo  map[yuv.Chroma]*yuv.ChromaInfo
	pageCount   uint64
	pages       map[uint64][][32]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		yuvTx:      make(map[[32]byte]*yuv.Tx),
		frozen:     make(map[yuv.Outpoint]*yuv.FrozenTxEntry),
		invalid:    make(map[[32]byte]*yuv.Tx),
		chromaInfo: make(map[yuv.Chroma]*yuv.ChromaInfo),
		pages:      make(map[uint64][][32]byte),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) YuvTx(_ context.Context, txid [32]byte) (*yuv.Tx, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.yuvTx[txid]
	return tx, ok, nil
}

func (s *Store) PutYuvTx(_ context.Context, txid [32]byte, tx *yuv.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.yuvTx[txid] = tx
	return nil
}

func (s *Store) LastIndexed(_ context.Context) ([32]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastIndexed, s.hasIndexed, nil
}

func (s *Store) SetLastIndexed(_ context.Context, hash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastIndexed = hash
	s.hasIndexed = true
	return nil
}

func (s *Store) Frozen(_ context.Context, out yuv.Outpoint) (*yuv.FrozenTxEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.frozen[out]
	return e, ok, nil
}

func (s *Store) PutFrozen(_ context.Context, out yuv.Outpoint, entry *yuv.FrozenTxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen[out] = entry
	return nil
}

func (s *Store) DeleteFrozen(_ context.Context, out yuv.Outpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.frozen, out)
	return nil
}

func (s *Store) Invalid(_ context.Context, txid [32]byte) (*yuv.Tx, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.invalid[txid]
	return tx, ok, nil
}

func (s *Store) PutInvalid(_ context.Context, txid [32]byte, tx *yuv.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalid[txid] = tx
	return nil
}

func (s *Store) ChromaInfo(_ context.Context, chroma yuv.Chroma) (*yuv.ChromaInfo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ci, ok := s.chromaInfo[chroma]
	return ci, ok, nil
}

func (s *Store) PutChromaInfo(_ context.Context, chroma yuv.Chroma, info *yuv.ChromaInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chromaInfo[chroma] = info
	return nil
}

func (s *Store) PageCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageCount, nil
}

func (s *Store) SetPageCount(_ context.Context, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCount = n
	return nil
}

func (s *Store) Page(_ context.Context, i uint64) ([][32]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([][32]byte(nil), s.pages[i]...), nil
}

func (s *Store) AppendPage(_ context.Context, i uint64, txid [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[i] = append(s.pages[i], txid)
	return nil
}

func (s *Store) Flush(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
