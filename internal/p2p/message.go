// Package p2p is the gossip transport of SPEC_FULL.md §6.2: a JSON
// envelope of Handshake/Inv/GetData/YuvTxs messages carried over
// websocket connections. The Hub's map-of-connections-behind-a-mutex
// and write-deadline-then-drop shape is lifted straight from the
// teacher's internal/api/websocket.go Hub; here it fans messages to one
// specific peer instead of broadcasting identical bytes to every
// dashboard client, and it reads structured gossip instead of ignoring
// inbound frames.
package p2p

import (
	"encoding/json"
	"fmt"

	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/wire"
)

// Kind tags the one-of envelope carried over the websocket connection.
type Kind string

const (
	KindHandshake Kind = "handshake"
	KindInv       Kind = "inv"
	KindGetData   Kind = "getdata"
	KindYuvTxs    Kind = "yuvtxs"
)

// Envelope is the wire-level JSON frame; Payload is re-marshalled into
// the concrete type named by Kind.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Handshake carries a peer's node id, network and chain position. The
// Hub hands a received Handshake to its onHandshake callback; it sends
// no reply of its own and changes no peer's state.
type Handshake struct {
	NodeID     string `json:"node_id"`
	Network    string `json:"network"`
	YuvGenesis int64  `json:"yuv_genesis"`
	BestHeight int64  `json:"best_height"`
}

// Inv advertises a batch of txids the sender has but does not assume the
// receiver has.
type Inv struct {
	Txids [][32]byte `json:"txids"`
}

// GetData requests the full transaction bodies for a batch of txids.
type GetData struct {
	Txids [][32]byte `json:"txids"`
}

// YuvTxs carries consensus-encoded transaction bodies, answering a
// GetData (or arriving unsolicited after a broadcast).
type YuvTxs struct {
	Raw [][]byte `json:"raw"`
}

func encodeEnvelope(kind Kind, payload any) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Kind: kind, Payload: p})
}

func decodeEnvelope(raw []byte) (Kind, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, err
	}
	return env.Kind, env.Payload, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}

// EncodeYuvTxs consensus-encodes a batch of transactions for a YuvTxs
// payload, reusing pkg/yuv/wire's straight-line tx codec rather than
// inventing a second serialization for the same struct.
func EncodeYuvTxs(txs []*yuv.Tx) (YuvTxs, error) {
	out := YuvTxs{Raw: make([][]byte, 0, len(txs))}
	for _, tx := range txs {
		b, err := wire.EncodeTxBytes(tx)
		if err != nil {
			return YuvTxs{}, fmt.Errorf("p2p: encode tx: %w", err)
		}
		out.Raw = append(out.Raw, b)
	}
	return out, nil
}

// DecodeYuvTxs is the inverse of EncodeYuvTxs.
func DecodeYuvTxs(msg YuvTxs) ([]*yuv.Tx, error) {
	out := make([]*yuv.Tx, 0, len(msg.Raw))
	for _, b := range msg.Raw {
		tx, err := wire.DecodeTxBytes(b)
		if err != nil {
			return nil, fmt.Errorf("p2p: decode tx: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}
