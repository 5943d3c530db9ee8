package wire

import (
	"fmt"
	"io"

	"github.com/rawblock/yuvd/pkg/yuv"
)

func encodeProof(w io.Writer, p yuv.PixelProof) error {
	if err := writeUint8(w, uint8(p.Kind)); err != nil {
		return err
	}
	switch p.Kind {
	case yuv.ProofSigP2WPKH:
		if err := encodePixel(w, p.Pixel); err != nil {
			return err
		}
		return writePubkey(w, p.Recipient)

	case yuv.ProofMultisig:
		if err := encodePixel(w, p.Pixel); err != nil {
			return err
		}
		if err := writePubkeyList(w, p.Participants); err != nil {
			return err
		}
		return writeUint8(w, p.Threshold)

	case yuv.ProofBulletproof:
		if err := encodePixel(w, p.Pixel); err != nil {
			return err
		}
		if err := writePubkey(w, p.Recipient); err != nil {
			return err
		}
		if err := writePubkey(w, p.Commitment); err != nil {
			return err
		}
		if err := writePubkey(w, p.Committer); err != nil {
			return err
		}
		if err := writeVarBytes(w, p.RangeProof); err != nil {
			return err
		}
		if err := writeVarBytes(w, p.Signature); err != nil {
			return err
		}
		return writeVarBytes(w, p.ChromaSignature)

	case yuv.ProofLightningHTLC:
		if err := encodePixel(w, p.Pixel); err != nil {
			return err
		}
		return encodeHTLCData(w, p.HTLC)

	case yuv.ProofEmptyPixel:
		return writePubkey(w, p.Recipient)

	default:
		return fmt.Errorf("wire: unknown proof kind %d", p.Kind)
	}
}

func decodeProof(r io.Reader) (yuv.PixelProof, error) {
	kindByte, err := readUint8(r)
	if err != nil {
		return yuv.PixelProof{}, err
	}
	kind := yuv.ProofKind(kindByte)
	p := yuv.PixelProof{Kind: kind}

	switch kind {
	case yuv.ProofSigP2WPKH:
		if p.Pixel, err = decodePixel(r); err != nil {
			return p, err
		}
		p.Recipient, err = readPubkey(r)

	case yuv.ProofMultisig:
		if p.Pixel, err = decodePixel(r); err != nil {
			return p, err
		}
		if p.Participants, err = readPubkeyList(r); err != nil {
			return p, err
		}
		p.Threshold, err = readUint8(r)

	case yuv.ProofBulletproof:
		if p.Pixel, err = decodePixel(r); err != nil {
			return p, err
		}
		if p.Recipient, err = readPubkey(r); err != nil {
			return p, err
		}
		if p.Commitment, err = readPubkey(r); err != nil {
			return p, err
		}
		if p.Committer, err = readPubkey(r); err != nil {
			return p, err
		}
		if p.RangeProof, err = readVarBytes(r); err != nil {
			return p, err
		}
		if p.Signature, err = readVarBytes(r); err != nil {
			return p, err
		}
		p.ChromaSignature, err = readVarBytes(r)

	case yuv.ProofLightningHTLC:
		if p.Pixel, err = decodePixel(r); err != nil {
			return p, err
		}
		p.HTLC, err = decodeHTLCData(r)

	case yuv.ProofEmptyPixel:
		p.Recipient, err = readPubkey(r)

	default:
		return p, fmt.Errorf("wire: unknown proof kind %d", kind)
	}
	return p, err
}

func encodePixel(w io.Writer, p yuv.Pixel) error {
	if err := writeBytesFixed(w, p.Chroma[:]); err != nil {
		return err
	}
	if err := writeBytesFixed(w, p.Luma.Amount[:]); err != nil {
		return err
	}
	if p.Luma.HasBlinding {
		if err := writeUint8(w, 1); err != nil {
			return err
		}
		return writeBytesFixed(w, p.Luma.Blinding[:])
	}
	return writeUint8(w, 0)
}

func decodePixel(r io.Reader) (yuv.Pixel, error) {
	var p yuv.Pixel
	chromaB, err := readBytesFixed(r, yuv.ChromaSize)
	if err != nil {
		return p, err
	}
	p.Chroma, err = yuv.ChromaFromBytes(chromaB)
	if err != nil {
		return p, err
	}
	amtB, err := readBytesFixed(r, yuv.LumaSize)
	if err != nil {
		return p, err
	}
	var amt [yuv.LumaSize]byte
	copy(amt[:], amtB)
	p.Luma = yuv.LumaFromBigEndian(amt)

	hasBlinding, err := readUint8(r)
	if err != nil {
		return p, err
	}
	if hasBlinding == 1 {
		blindB, err := readBytesFixed(r, yuv.LumaSize)
		if err != nil {
			return p, err
		}
		copy(p.Luma.Blinding[:], blindB)
		p.Luma.HasBlinding = true
	}
	return p, nil
}

func encodeHTLCData(w io.Writer, d yuv.HTLCData) error {
	offered := uint8(0)
	if d.Offered {
		offered = 1
	}
	if err := writeUint8(w, offered); err != nil {
		return err
	}
	if err := writeBytesFixed(w, d.PaymentHash160[:]); err != nil {
		return err
	}
	if err := writeBytesFixed(w, d.RemoteHTLCPubkey[:]); err != nil {
		return err
	}
	if err := writeBytesFixed(w, d.LocalHTLCPubkey[:]); err != nil {
		return err
	}
	if err := writeBytesFixed(w, d.RevocationPubkey[:]); err != nil {
		return err
	}
	return writeUint32(w, d.CltvExpiry)
}

func decodeHTLCData(r io.Reader) (yuv.HTLCData, error) {
	var d yuv.HTLCData
	offered, err := readUint8(r)
	if err != nil {
		return d, err
	}
	d.Offered = offered == 1

	b, err := readBytesFixed(r, 20)
	if err != nil {
		return d, err
	}
	copy(d.PaymentHash160[:], b)

	b, err = readBytesFixed(r, 33)
	if err != nil {
		return d, err
	}
	copy(d.RemoteHTLCPubkey[:], b)

	b, err = readBytesFixed(r, 33)
	if err != nil {
		return d, err
	}
	copy(d.LocalHTLCPubkey[:], b)

	b, err = readBytesFixed(r, 33)
	if err != nil {
		return d, err
	}
	copy(d.RevocationPubkey[:], b)

	d.CltvExpiry, err = readUint32(r)
	return d, err
}
