// Package wire implements the consensus encoding of SPEC_FULL.md §6.4: the
// binary framing shared by the P2P gossip transport and the storage
// blobs. Hand-written straight-line encoders, per spec.md §9's design
// note rejecting reflection/macro generation — each kind gets its own
// explicit Encode/Decode pair instead.
package wire

import (
	"bytes"
	"fmt"
	"io"

	btcwire "github.com/btcsuite/btcd/wire"

	"github.com/rawblock/yuvd/pkg/yuv"
)

const protocolVersion = 1

// EncodeTx serializes a yuv.Tx: BitcoinTx || TypeTag(u8) || TypeBody.
func EncodeTx(w io.Writer, tx *yuv.Tx) error {
	if err := tx.Bitcoin.Serialize(w); err != nil {
		return fmt.Errorf("wire: serialize bitcoin tx: %w", err)
	}
	if err := writeUint8(w, uint8(tx.Type)); err != nil {
		return err
	}
	switch tx.Type {
	case yuv.TxTypeIssue:
		return encodeIssue(w, tx.Issue)
	case yuv.TxTypeTransfer:
		return encodeTransfer(w, tx.Transfer)
	case yuv.TxTypeAnnouncement:
		return encodeAnnouncement(w, tx.Announce)
	default:
		return fmt.Errorf("wire: unknown tx type tag %d", tx.Type)
	}
}

// DecodeTx is the inverse of EncodeTx (property P6).
func DecodeTx(r io.Reader) (*yuv.Tx, error) {
	btx := &btcwire.MsgTx{}
	if err := btx.Deserialize(r); err != nil {
		return nil, fmt.Errorf("wire: deserialize bitcoin tx: %w", err)
	}
	tagByte, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	tag := yuv.TxTypeTag(tagByte)

	tx := &yuv.Tx{Bitcoin: btx, Type: tag}
	switch tag {
	case yuv.TxTypeIssue:
		tx.Issue, err = decodeIssue(r)
	case yuv.TxTypeTransfer:
		tx.Transfer, err = decodeTransfer(r)
	case yuv.TxTypeAnnouncement:
		tx.Announce, err = decodeAnnouncement(r)
	default:
		return nil, fmt.Errorf("wire: unknown tx type tag %d", tag)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// EncodeTxBytes / DecodeTxBytes are convenience wrappers for storage blobs.
func EncodeTxBytes(tx *yuv.Tx) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeTx(&buf, tx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeTxBytes(b []byte) (*yuv.Tx, error) {
	return DecodeTx(bytes.NewReader(b))
}

func encodeIssue(w io.Writer, d *yuv.IssueData) error {
	if err := encodeProofMap(w, d.OutputProofs); err != nil {
		return err
	}
	if d.Announcement == nil {
		return writeUint8(w, 0)
	}
	if err := writeUint8(w, 1); err != nil {
		return err
	}
	return encodeIssueAnnouncement(w, d.Announcement)
}

func decodeIssue(r io.Reader) (*yuv.IssueData, error) {
	proofs, err := decodeProofMap(r)
	if err != nil {
		return nil, err
	}
	has, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	d := &yuv.IssueData{OutputProofs: proofs}
	if has == 1 {
		d.Announcement, err = decodeIssueAnnouncement(r)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func encodeTransfer(w io.Writer, d *yuv.TransferData) error {
	if err := encodeProofMap(w, d.InputProofs); err != nil {
		return err
	}
	return encodeProofMap(w, d.OutputProofs)
}

func decodeTransfer(r io.Reader) (*yuv.TransferData, error) {
	in, err := decodeProofMap(r)
	if err != nil {
		return nil, err
	}
	out, err := decodeProofMap(r)
	if err != nil {
		return nil, err
	}
	return &yuv.TransferData{InputProofs: in, OutputProofs: out}, nil
}

// encodeProofMap writes `u32 count` followed by (u32 vout, PixelProof) pairs.
func encodeProofMap(w io.Writer, m map[uint32]yuv.PixelProof) error {
	// Deterministic order for round-trip + wire stability.
	keys := sortedKeys(m)
	if err := writeUint32(w, uint32(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeUint32(w, k); err != nil {
			return err
		}
		if err := encodeProof(w, m[k]); err != nil {
			return err
		}
	}
	return nil
}

func decodeProofMap(r io.Reader) (map[uint32]yuv.PixelProof, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]yuv.PixelProof, count)
	for i := uint32(0); i < count; i++ {
		vout, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		proof, err := decodeProof(r)
		if err != nil {
			return nil, err
		}
		out[vout] = proof
	}
	return out, nil
}

func sortedKeys(m map[uint32]yuv.PixelProof) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
