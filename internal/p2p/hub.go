package p2p

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rawblock/yuvd/internal/bus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // peer-to-peer listener, not a browser-facing endpoint
	},
}

const writeTimeout = 5 * time.Second

type peerConn struct {
	id   bus.PeerID
	conn *websocket.Conn
	out  chan []byte
}

// Hub maintains the set of active peer connections and dispatches
// inbound gossip onto the event bus. Its clients-map-plus-mutex and
// write-deadline-then-drop pattern are the teacher's Hub, generalized
// from an anonymous broadcast set to addressable per-peer connections.
type Hub struct {
	bus *bus.Bus

	mu    sync.Mutex
	peers map[bus.PeerID]*peerConn

	onHandshake func(bus.PeerID, Handshake)
	onGetData   func(bus.PeerID, [][32]byte)
}

// NewHub builds an empty Hub. onGetData is invoked whenever a peer asks
// for data we may hold; the caller is expected to look the txids up in
// its store and answer with SendYuvTxs. A nil onGetData silently drops
// inbound GetData requests.
func NewHub(b *bus.Bus, onHandshake func(bus.PeerID, Handshake), onGetData func(bus.PeerID, [][32]byte)) *Hub {
	return &Hub{
		bus:         b,
		peers:       make(map[bus.PeerID]*peerConn),
		onHandshake: onHandshake,
		onGetData:   onGetData,
	}
}

// Accept upgrades an inbound HTTP connection to websocket and registers
// it under a freshly generated id; several peers behind the same NAT'd
// address must not collide onto one map entry, so the connecting IP is
// kept only as a label and a uuid carries the actual identity.
func (h *Hub) Accept(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("p2p: upgrade failed: %v", err)
		return
	}
	id := bus.PeerID(fmt.Sprintf("%s-%s", c.ClientIP(), uuid.NewString()))
	h.serve(id, conn)
}

// Dial opens an outbound websocket connection to addr and registers it.
func (h *Hub) Dial(id bus.PeerID, addr string) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return err
	}
	go h.serve(id, conn)
	return nil
}

func (h *Hub) serve(id bus.PeerID, conn *websocket.Conn) {
	pc := &peerConn{id: id, conn: conn, out: make(chan []byte, 256)}

	h.mu.Lock()
	h.peers[id] = pc
	h.mu.Unlock()
	log.Printf("p2p: peer %s connected", id)

	done := make(chan struct{})
	go h.writeLoop(pc, done)
	h.readLoop(pc)

	close(done)
	h.mu.Lock()
	delete(h.peers, id)
	h.mu.Unlock()
	conn.Close()
	log.Printf("p2p: peer %s disconnected", id)
}

func (h *Hub) writeLoop(pc *peerConn, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-pc.out:
			_ = pc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := pc.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("p2p: write to %s failed: %v", pc.id, err)
				return
			}
		}
	}
}

func (h *Hub) readLoop(pc *peerConn) {
	for {
		_, raw, err := pc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("p2p: read from %s failed: %v", pc.id, err)
			}
			return
		}
		h.dispatch(pc.id, raw)
	}
}

func (h *Hub) dispatch(from bus.PeerID, raw []byte) {
	kind, payload, err := decodeEnvelope(raw)
	if err != nil {
		log.Printf("p2p: malformed envelope from %s: %v", from, err)
		return
	}

	switch kind {
	case KindHandshake:
		var hs Handshake
		if err := unmarshalPayload(payload, &hs); err != nil {
			return
		}
		if h.onHandshake != nil {
			h.onHandshake(from, hs)
		}

	case KindInv:
		var inv Inv
		if err := unmarshalPayload(payload, &inv); err != nil {
			return
		}
		bus.Send(h.bus, bus.GetData{Txids: inv.Txids, Receiver: from})

	case KindGetData:
		var gd GetData
		if err := unmarshalPayload(payload, &gd); err != nil {
			return
		}
		if h.onGetData != nil {
			h.onGetData(from, gd.Txids)
		}

	case KindYuvTxs:
		var txs YuvTxs
		if err := unmarshalPayload(payload, &txs); err != nil {
			return
		}
		decoded, err := DecodeYuvTxs(txs)
		if err != nil {
			log.Printf("p2p: decode yuvtxs from %s failed: %v", from, err)
			return
		}
		sender := from
		bus.Send(h.bus, bus.NewTxs{Txs: decoded, Sender: &sender})

	default:
		log.Printf("p2p: unknown envelope kind %q from %s", kind, from)
	}
}

func (h *Hub) send(id bus.PeerID, kind Kind, payload any) error {
	h.mu.Lock()
	pc, ok := h.peers[id]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("p2p: no connection to peer %s", id)
	}
	raw, err := encodeEnvelope(kind, payload)
	if err != nil {
		return err
	}
	select {
	case pc.out <- raw:
		return nil
	default:
		return fmt.Errorf("p2p: outbound queue full for peer %s", id)
	}
}

// SendHandshake, SendInv, SendGetData, SendYuvTxs implement the outbound
// half of the protocol; SendInv/SendGetData also satisfy
// internal/controller.Send.

func (h *Hub) SendHandshake(id bus.PeerID, hs Handshake) error {
	return h.send(id, KindHandshake, hs)
}

func (h *Hub) SendInv(id bus.PeerID, txids [][32]byte) error {
	return h.send(id, KindInv, Inv{Txids: txids})
}

func (h *Hub) SendGetData(id bus.PeerID, txids [][32]byte) error {
	return h.send(id, KindGetData, GetData{Txids: txids})
}

func (h *Hub) SendYuvTxs(id bus.PeerID, msg YuvTxs) error {
	return h.send(id, KindYuvTxs, msg)
}
