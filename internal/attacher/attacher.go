// Package attacher is the DAG attacher of SPEC_FULL.md §4.5: it holds
// the in-memory dependency graph of not-yet-attached transfers (deps,
// inverse_deps, stored_txs), promotes transactions to attached once
// every parent is resolved, and paginates the attached stream. The
// mutex-protected-map-of-structs shape and the single owning task
// follow internal/heuristics/investigation.go's InvestigationManager;
// unlike that manager, this graph is purely in-memory working state,
// paged out to the store only as flattened txid lists.
package attacher

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// Params configures pagination and cleanup.
type Params struct {
	TxPerPage          int
	CleanupPeriod      time.Duration // default 1h
	TxOutdatedDuration time.Duration // default 24h
}

type storedTx struct {
	tx        *yuv.Tx
	createdAt time.Time
}

// Attacher holds the DAG attacher's in-memory state; it is not safe for
// concurrent use from more than one goroutine at a time (SPEC_FULL.md §5:
// "attachment is serialized through the single attacher task"), except
// for the cleanup timer which takes the same mutex.
type Attacher struct {
	store  store.Store
	bus    *bus.Bus
	params Params

	mu          sync.Mutex
	deps        map[[32]byte]map[[32]byte]struct{} // child -> unresolved parents
	inverseDeps map[[32]byte]map[[32]byte]struct{} // parent -> waiting children
	storedTxs   map[[32]byte]storedTx
}

// New builds an empty Attacher.
func New(st store.Store, b *bus.Bus, params Params) *Attacher {
	if params.CleanupPeriod <= 0 {
		params.CleanupPeriod = time.Hour
	}
	if params.TxOutdatedDuration <= 0 {
		params.TxOutdatedDuration = 24 * time.Hour
	}
	if params.TxPerPage <= 0 {
		params.TxPerPage = 1000
	}
	return &Attacher{
		store:       st,
		bus:         b,
		params:      params,
		deps:        make(map[[32]byte]map[[32]byte]struct{}),
		inverseDeps: make(map[[32]byte]map[[32]byte]struct{}),
		storedTxs:   make(map[[32]byte]storedTx),
	}
}

// Run subscribes to CheckedTxs and attaches batches as they arrive,
// alongside a periodic cleanup sweep, until ctx is cancelled.
func (a *Attacher) Run(ctx context.Context) {
	in := bus.Subscribe[bus.CheckedTxs](a.bus, 1000)
	ticker := time.NewTicker(a.params.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-in:
			if !ok {
				return
			}
			if err := a.AttachTxs(ctx, batch.Txs); err != nil {
				log.Printf("attacher: attach_txs failed: %v", err)
			}
		case <-ticker.C:
			a.cleanup()
		}
	}
}

// AttachTxs implements SPEC_FULL.md §4.5 attach_txs.
func (a *Attacher) AttachTxs(ctx context.Context, txs []*yuv.Tx) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var attached []*yuv.Tx
	var queue [][32]byte

	for _, tx := range txs {
		txid := txHash(tx)

		if tx.Type == yuv.TxTypeIssue || tx.Type == yuv.TxTypeAnnouncement {
			if a.isAttached(ctx, txid) {
				continue
			}
			if err := a.promote(ctx, txid, tx, &attached); err != nil {
				return err
			}
			queue = append(queue, a.drainInverseDeps(txid)...)
			continue
		}

		// Transfer: resolve each input-proof's parent.
		remaining := make(map[[32]byte]struct{})
		for vin := range tx.Transfer.InputProofs {
			if int(vin) >= len(tx.Bitcoin.TxIn) {
				continue
			}
			parentTxid := [32]byte(tx.Bitcoin.TxIn[vin].PreviousOutPoint.Hash)
			if a.isAttached(ctx, parentTxid) {
				continue
			}
			remaining[parentTxid] = struct{}{}
			if a.inverseDeps[parentTxid] == nil {
				a.inverseDeps[parentTxid] = make(map[[32]byte]struct{})
			}
			a.inverseDeps[parentTxid][txid] = struct{}{}
		}

		if a.isAttached(ctx, txid) {
			continue
		}
		a.storedTxs[txid] = storedTx{tx: tx, createdAt: time.Now()}
		if len(remaining) == 0 {
			if err := a.promote(ctx, txid, tx, &attached); err != nil {
				return err
			}
			queue = append(queue, a.drainInverseDeps(txid)...)
		} else {
			a.deps[txid] = remaining
		}
	}

	// Loop: pop each queued child; promote if all parents now attached.
	for len(queue) > 0 {
		childID := queue[0]
		queue = queue[1:]

		remaining, pending := a.deps[childID]
		if !pending || len(remaining) > 0 {
			continue
		}
		st, ok := a.storedTxs[childID]
		if !ok {
			continue
		}
		delete(a.deps, childID)
		if err := a.promote(ctx, childID, st.tx, &attached); err != nil {
			return err
		}
		queue = append(queue, a.drainInverseDeps(childID)...)
	}

	if len(attached) > 0 {
		bus.Send(a.bus, bus.AttachedTxs{Txs: attached})
	}
	return nil
}

// promote marks txid attached: persists it, appends it to attached, and
// removes it from storedTxs (it is no longer pending).
func (a *Attacher) promote(ctx context.Context, txid [32]byte, tx *yuv.Tx, attached *[]*yuv.Tx) error {
	if err := a.store.PutYuvTx(ctx, txid, tx); err != nil {
		return err
	}
	if tx.Type == yuv.TxTypeAnnouncement && tx.Announce.Freeze != nil {
		entry, ok, err := a.store.Frozen(ctx, tx.Announce.Freeze.Outpoint)
		if err != nil {
			return err
		}
		if !ok {
			entry = &yuv.FrozenTxEntry{}
		}
		// The checker pool records the toggle when it accepts the freeze,
		// so append only if it is not there yet: each toggle counts once.
		recorded := false
		for _, id := range entry.TxIDs {
			if id == txid {
				recorded = true
				break
			}
		}
		if !recorded {
			entry.TxIDs = append(entry.TxIDs, txid)
			if err := a.store.PutFrozen(ctx, tx.Announce.Freeze.Outpoint, entry); err != nil {
				return err
			}
		}
	}
	if err := a.appendToPage(ctx, txid); err != nil {
		return err
	}
	delete(a.storedTxs, txid)
	*attached = append(*attached, tx)
	return nil
}

// drainInverseDeps removes parentTxid as an unresolved dependency from
// every child waiting on it, returning the ids of children now unblocked
// enough to re-check (i.e. every remaining child, whether or not it
// still has other unresolved parents — the caller's loop re-tests).
func (a *Attacher) drainInverseDeps(parentTxid [32]byte) [][32]byte {
	children := a.inverseDeps[parentTxid]
	delete(a.inverseDeps, parentTxid)

	out := make([][32]byte, 0, len(children))
	for child := range children {
		if rem, ok := a.deps[child]; ok {
			delete(rem, parentTxid)
		}
		out = append(out, child)
	}
	return out
}

func (a *Attacher) isAttached(ctx context.Context, txid [32]byte) bool {
	_, ok, err := a.store.YuvTx(ctx, txid)
	return err == nil && ok
}

func (a *Attacher) appendToPage(ctx context.Context, txid [32]byte) error {
	count, err := a.store.PageCount(ctx)
	if err != nil {
		return err
	}
	var lastPage uint64
	if count > 0 {
		lastPage = count - 1
	}
	page, err := a.store.Page(ctx, lastPage)
	if err != nil {
		return err
	}
	if count == 0 || len(page) >= a.params.TxPerPage {
		newPage := count
		if err := a.store.AppendPage(ctx, newPage, txid); err != nil {
			return err
		}
		return a.store.SetPageCount(ctx, count+1)
	}
	return a.store.AppendPage(ctx, lastPage, txid)
}

// cleanup scans storedTxs for entries older than tx_outdated_duration and
// removes them, plus every descendant reachable via inverse_deps; this is
// the sole mechanism preventing unbounded memory growth (SPEC_FULL.md §4.5).
func (a *Attacher) cleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-a.params.TxOutdatedDuration)
	var stale [][32]byte
	for txid, st := range a.storedTxs {
		if st.createdAt.Before(cutoff) {
			stale = append(stale, txid)
		}
	}
	if len(stale) == 0 {
		return
	}

	toRemove := make(map[[32]byte]struct{})
	queue := append([][32]byte(nil), stale...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, done := toRemove[id]; done {
			continue
		}
		toRemove[id] = struct{}{}
		queue = append(queue, setKeys(a.inverseDeps[id])...)
	}

	for id := range toRemove {
		for parent := range a.deps[id] {
			if children := a.inverseDeps[parent]; children != nil {
				delete(children, id)
				if len(children) == 0 {
					delete(a.inverseDeps, parent)
				}
			}
		}
		delete(a.storedTxs, id)
		delete(a.deps, id)
		delete(a.inverseDeps, id)
	}
	log.Printf("attacher: cleanup purged %d outdated DAG entries", len(toRemove))
}

func setKeys(m map[[32]byte]struct{}) [][32]byte {
	out := make([][32]byte, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func txHash(tx *yuv.Tx) [32]byte {
	return [32]byte(tx.Bitcoin.TxHash())
}
