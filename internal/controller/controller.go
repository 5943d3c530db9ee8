// Package controller is the single-task event broker of SPEC_FULL.md
// §4.6: it owns the per-peer inventory view, the "newly attached" INV
// outbox, the reorg hook, and the GetData fan-out from the checker. Its
// map-of-connections-behind-a-mutex shape and broadcast-on-a-channel
// idiom follow the teacher's websocket Hub; peer identity and the
// per-peer state machine are new work the Hub's anonymous-client model
// never needed.
package controller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// PeerState is a peer's position in the handshake state machine;
// only Active peers receive/send INVs and DATA.
type PeerState int

const (
	PeerNew PeerState = iota
	PeerHandshaked
	PeerActive
	PeerDisconnected
)

// Peer is the controller's view of one gossip connection.
type Peer struct {
	ID    bus.PeerID
	State PeerState
	Known map[[32]byte]struct{} // txids this peer is already known to have
}

// Send is the narrow contract the controller needs to push gossip
// messages to a peer; internal/p2p supplies the real implementation.
type Send interface {
	SendInv(peer bus.PeerID, txids [][32]byte) error
	SendGetData(peer bus.PeerID, txids [][32]byte) error
}

// Params configures outbox timing.
type Params struct {
	InvSharingInterval time.Duration
	MaxInvSize         int
}

// Controller is the event broker described in SPEC_FULL.md §4.6.
type Controller struct {
	bus    *bus.Bus
	send   Send
	params Params

	recomputeFreeze func(context.Context, yuv.Outpoint) error

	mu     sync.Mutex
	peers  map[bus.PeerID]*Peer
	outbox [][32]byte // newly attached txids awaiting the next INV flush
}

// New builds a Controller. recomputeFreeze is invoked by OnReorg for
// every outpoint the reorg may have invalidated freeze state for; a nil
// recomputeFreeze makes OnReorg a no-op logger, matching the prior
// behavior for callers that never feed it reorgs.
func New(b *bus.Bus, send Send, params Params, recomputeFreeze func(context.Context, yuv.Outpoint) error) *Controller {
	if params.InvSharingInterval <= 0 {
		params.InvSharingInterval = 10 * time.Second
	}
	if params.MaxInvSize <= 0 {
		params.MaxInvSize = 500
	}
	return &Controller{
		bus:             b,
		send:            send,
		params:          params,
		recomputeFreeze: recomputeFreeze,
		peers:           make(map[bus.PeerID]*Peer),
	}
}

// RegisterPeer adds a new peer in the New state.
func (c *Controller) RegisterPeer(id bus.PeerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[id] = &Peer{ID: id, State: PeerNew, Known: make(map[[32]byte]struct{})}
}

// AdvancePeer transitions a peer's state machine forward (New ->
// Handshaked -> Active), or marks it Disconnected from any state.
func (c *Controller) AdvancePeer(id bus.PeerID, state PeerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.peers[id]; ok {
		p.State = state
	}
}

// Run drains AttachedTxs and InvalidTxs/GetData from the bus and flushes
// the INV outbox to every Active peer on InvSharingInterval, until ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context) {
	attached := bus.Subscribe[bus.AttachedTxs](c.bus, 1000)
	getData := bus.Subscribe[bus.GetData](c.bus, 1000)
	invalid := bus.Subscribe[bus.InvalidTxs](c.bus, 1000)

	ticker := time.NewTicker(c.params.InvSharingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-attached:
			if !ok {
				return
			}
			c.enqueueOutbox(batch.Txs)
		case req, ok := <-getData:
			if !ok {
				return
			}
			c.fanOutGetData(req)
		case inv, ok := <-invalid:
			if !ok {
				return
			}
			log.Printf("controller: %d txs rejected (sender=%v)", len(inv.Ids), inv.Sender)
		case <-ticker.C:
			c.flushOutbox()
		}
	}
}

func (c *Controller) enqueueOutbox(txs []*yuv.Tx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tx := range txs {
		c.outbox = append(c.outbox, [32]byte(tx.Bitcoin.TxHash()))
	}
}

func (c *Controller) flushOutbox() {
	c.mu.Lock()
	batch := c.outbox
	c.outbox = nil
	active := make([]*Peer, 0, len(c.peers))
	for _, p := range c.peers {
		if p.State == PeerActive {
			active = append(active, p)
		}
	}
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	for start := 0; start < len(batch); start += c.params.MaxInvSize {
		end := start + c.params.MaxInvSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]
		for _, p := range active {
			unseen := c.filterKnown(p, chunk)
			if len(unseen) == 0 {
				continue
			}
			if err := c.send.SendInv(p.ID, unseen); err != nil {
				log.Printf("controller: send_inv to %s failed: %v", p.ID, err)
			}
		}
	}
}

func (c *Controller) filterKnown(p *Peer, txids [][32]byte) [][32]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][32]byte, 0, len(txids))
	for _, id := range txids {
		if _, known := p.Known[id]; known {
			continue
		}
		p.Known[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (c *Controller) fanOutGetData(req bus.GetData) {
	if err := c.send.SendGetData(req.Receiver, req.Txids); err != nil {
		log.Printf("controller: send_getdata to %s failed: %v", req.Receiver, err)
	}
}

// OnReorg implements the reorg hook: when the indexer observes a block
// that invalidates previously attached freeze state, it forces an eager
// recompute of every affected outpoint's freeze entry rather than waiting
// for a subsequent Transfer to touch it, per SPEC_FULL.md invariant I6.
func (c *Controller) OnReorg(ctx context.Context, affected []yuv.Outpoint) {
	log.Printf("controller: reorg invalidates freeze state for %d outpoints", len(affected))
	if c.recomputeFreeze == nil {
		return
	}
	for _, outpoint := range affected {
		if err := c.recomputeFreeze(ctx, outpoint); err != nil {
			log.Printf("controller: reorg recompute for outpoint %x:%d failed: %v", outpoint.Txid, outpoint.Vout, err)
		}
	}
}
