package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeBytesFixed(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

func readBytesFixed(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// writeVarBytes writes a u32-length-prefixed byte slice.
func writeVarBytes(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	return writeBytesFixed(w, b)
}

func readVarBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n > 1<<24 {
		return nil, fmt.Errorf("wire: implausible var-bytes length %d", n)
	}
	return readBytesFixed(r, int(n))
}

func writePubkey(w io.Writer, pub *btcec.PublicKey) error {
	if pub == nil {
		return writeUint8(w, 0)
	}
	if err := writeUint8(w, 1); err != nil {
		return err
	}
	return writeBytesFixed(w, pub.SerializeCompressed())
}

func readPubkey(r io.Reader) (*btcec.PublicKey, error) {
	present, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	b, err := readBytesFixed(r, 33)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(b)
}

func writePubkeyList(w io.Writer, pubs []*btcec.PublicKey) error {
	if err := writeUint32(w, uint32(len(pubs))); err != nil {
		return err
	}
	for _, p := range pubs {
		if err := writeBytesFixed(w, p.SerializeCompressed()); err != nil {
			return err
		}
	}
	return nil
}

func readPubkeyList(r io.Reader) ([]*btcec.PublicKey, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]*btcec.PublicKey, 0, n)
	for i := uint32(0); i < n; i++ {
		b, err := readBytesFixed(r, 33)
		if err != nil {
			return nil, err
		}
		pub, err := btcec.ParsePubKey(b)
		if err != nil {
			return nil, err
		}
		out = append(out, pub)
	}
	return out, nil
}
