package wire

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rawblock/yuvd/pkg/yuv"
)

func encodeAnnouncement(w io.Writer, a *yuv.AnnouncementData) error {
	switch {
	case a.Chroma != nil:
		if err := writeUint8(w, 0); err != nil {
			return err
		}
		return encodeChromaAnnouncement(w, a.Chroma)
	case a.Issue != nil:
		if err := writeUint8(w, 1); err != nil {
			return err
		}
		return encodeIssueAnnouncement(w, a.Issue)
	case a.Freeze != nil:
		if err := writeUint8(w, 2); err != nil {
			return err
		}
		return encodeFreezeAnnouncement(w, a.Freeze)
	default:
		return fmt.Errorf("wire: empty announcement body")
	}
}

func decodeAnnouncement(r io.Reader) (*yuv.AnnouncementData, error) {
	tag, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	a := &yuv.AnnouncementData{}
	switch tag {
	case 0:
		a.Chroma, err = decodeChromaAnnouncement(r)
	case 1:
		a.Issue, err = decodeIssueAnnouncement(r)
	case 2:
		a.Freeze, err = decodeFreezeAnnouncement(r)
	default:
		return nil, fmt.Errorf("wire: unknown announcement tag %d", tag)
	}
	return a, err
}

func encodeChromaAnnouncement(w io.Writer, c *yuv.ChromaAnnouncement) error {
	if err := writeBytesFixed(w, c.Chroma[:]); err != nil {
		return err
	}
	if err := writeVarBytes(w, []byte(c.Name)); err != nil {
		return err
	}
	if err := writeVarBytes(w, []byte(c.Symbol)); err != nil {
		return err
	}
	if err := writeUint8(w, c.Decimals); err != nil {
		return err
	}
	if err := writeBytesFixed(w, c.MaxSupply.Amount[:]); err != nil {
		return err
	}
	freezable := uint8(0)
	if c.IsFreezable {
		freezable = 1
	}
	return writeUint8(w, freezable)
}

func decodeChromaAnnouncement(r io.Reader) (*yuv.ChromaAnnouncement, error) {
	chromaB, err := readBytesFixed(r, yuv.ChromaSize)
	if err != nil {
		return nil, err
	}
	chroma, err := yuv.ChromaFromBytes(chromaB)
	if err != nil {
		return nil, err
	}
	nameB, err := readVarBytes(r)
	if err != nil {
		return nil, err
	}
	symbolB, err := readVarBytes(r)
	if err != nil {
		return nil, err
	}
	decimals, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	maxSupplyB, err := readBytesFixed(r, yuv.LumaSize)
	if err != nil {
		return nil, err
	}
	var maxSupply [yuv.LumaSize]byte
	copy(maxSupply[:], maxSupplyB)
	freezableByte, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	return &yuv.ChromaAnnouncement{
		Chroma:      chroma,
		Name:        string(nameB),
		Symbol:      string(symbolB),
		Decimals:    decimals,
		MaxSupply:   yuv.LumaFromBigEndian(maxSupply),
		IsFreezable: freezableByte == 1,
	}, nil
}

func encodeIssueAnnouncement(w io.Writer, a *yuv.IssueAnnouncement) error {
	if err := writeBytesFixed(w, a.Chroma[:]); err != nil {
		return err
	}
	return writeBytesFixed(w, a.Amount.Amount[:])
}

func decodeIssueAnnouncement(r io.Reader) (*yuv.IssueAnnouncement, error) {
	chromaB, err := readBytesFixed(r, yuv.ChromaSize)
	if err != nil {
		return nil, err
	}
	chroma, err := yuv.ChromaFromBytes(chromaB)
	if err != nil {
		return nil, err
	}
	amtB, err := readBytesFixed(r, yuv.LumaSize)
	if err != nil {
		return nil, err
	}
	var amt [yuv.LumaSize]byte
	copy(amt[:], amtB)
	return &yuv.IssueAnnouncement{Chroma: chroma, Amount: yuv.LumaFromBigEndian(amt)}, nil
}

func encodeFreezeAnnouncement(w io.Writer, f *yuv.FreezeAnnouncement) error {
	if err := writeBytesFixed(w, f.Outpoint.Txid[:]); err != nil {
		return err
	}
	return writeUint32(w, f.Outpoint.Vout)
}

func decodeFreezeAnnouncement(r io.Reader) (*yuv.FreezeAnnouncement, error) {
	txidB, err := readBytesFixed(r, chainhash.HashSize)
	if err != nil {
		return nil, err
	}
	hash, err := chainhash.NewHash(txidB)
	if err != nil {
		return nil, err
	}
	vout, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	return &yuv.FreezeAnnouncement{Outpoint: yuv.Outpoint{Txid: *hash, Vout: vout}}, nil
}
