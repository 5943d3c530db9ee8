package wire

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// InventoryKind tags the one variant of Inventory the spec defines today
// (Ytx); kept as a tagged union rather than a bare Txid type so the wire
// format has room to grow without breaking the one-byte tag convention.
type InventoryKind uint8

const InventoryYtx InventoryKind = 0

// Inventory is the tagged union {Ytx(Txid)} with its one-byte tag. The
// p2p package's Inv and GetData messages carry plain txid lists and do
// not use this type.
type Inventory struct {
	Kind InventoryKind
	Txid chainhash.Hash
}

// EncodeInventory writes the one-byte tag followed by the 32-byte txid.
func EncodeInventory(w io.Writer, inv Inventory) error {
	if err := writeUint8(w, uint8(inv.Kind)); err != nil {
		return err
	}
	return writeBytesFixed(w, inv.Txid[:])
}

// DecodeInventory is the inverse of EncodeInventory.
func DecodeInventory(r io.Reader) (Inventory, error) {
	tag, err := readUint8(r)
	if err != nil {
		return Inventory{}, err
	}
	if InventoryKind(tag) != InventoryYtx {
		return Inventory{}, fmt.Errorf("wire: unknown inventory tag %d", tag)
	}
	txidB, err := readBytesFixed(r, chainhash.HashSize)
	if err != nil {
		return Inventory{}, err
	}
	hash, err := chainhash.NewHash(txidB)
	if err != nil {
		return Inventory{}, err
	}
	return Inventory{Kind: InventoryYtx, Txid: *hash}, nil
}

// EncodeInventoryList writes a u32 count followed by each Inventory.
func EncodeInventoryList(w io.Writer, invs []Inventory) error {
	if err := writeUint32(w, uint32(len(invs))); err != nil {
		return err
	}
	for _, inv := range invs {
		if err := EncodeInventory(w, inv); err != nil {
			return err
		}
	}
	return nil
}

// DecodeInventoryList is the inverse of EncodeInventoryList.
func DecodeInventoryList(r io.Reader) ([]Inventory, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]Inventory, 0, n)
	for i := uint32(0); i < n; i++ {
		inv, err := DecodeInventory(r)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
