// Package announcement encodes and decodes the OP_RETURN wire format
// carrying chroma, issue and freeze announcements (SPEC_FULL.md §6.3).
//
// Grounded on the teacher's OP_RETURN inspection style
// (internal/heuristics/script_analysis.go: isOPReturn / classifyOPReturn),
// generalized from classification-only to full round-trip encode/decode.
package announcement

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// Magic is the 3-byte prefix identifying a yuv announcement pushdata.
var Magic = [3]byte{'y', 'u', 'v'}

// Kind is the 2-byte big-endian announcement discriminator.
type Kind uint16

const (
	KindChroma  Kind = 0x0000
	KindFreeze  Kind = 0x0001
	KindIssue   Kind = 0x0002
)

// Parse errors, named so callers can match on them; a parse failure of any
// kind is a protocol error per SPEC_FULL.md §7 item 6: logged at debug
// level and silently ignored, never fatal.
var (
	ErrShortLength            = errors.New("announcement: short length")
	ErrInvalidPrefix          = errors.New("announcement: invalid prefix")
	ErrUnknownAnnouncementKind = errors.New("announcement: unknown kind")
)

// ErrInvalidAnnouncementData wraps a field-level decode failure with a
// human-readable reason.
type ErrInvalidAnnouncementData struct {
	Msg string
}

func (e *ErrInvalidAnnouncementData) Error() string {
	return fmt.Sprintf("announcement: invalid data: %s", e.Msg)
}

// opReturnPrefix is the single byte identifying an OP_RETURN script.
const opReturnPrefix = 0x6a

// IsOpReturn reports whether script begins with OP_RETURN.
func IsOpReturn(script []byte) bool {
	return len(script) > 0 && script[0] == opReturnPrefix
}

// pushData extracts the pushed data from a single-push OP_RETURN script,
// skipping the OP_RETURN opcode and the push-length prefix(es). Only the
// common single small-push form used by yuv announcements is supported;
// anything else is treated as "not a yuv announcement" by the caller.
func pushData(script []byte) ([]byte, error) {
	if !IsOpReturn(script) {
		return nil, ErrInvalidPrefix
	}
	body := script[1:]
	if len(body) == 0 {
		return nil, ErrShortLength
	}
	op := body[0]
	switch {
	case op >= 1 && op <= 75:
		if len(body) < 1+int(op) {
			return nil, ErrShortLength
		}
		return body[1 : 1+int(op)], nil
	case op == 0x4c: // OP_PUSHDATA1
		if len(body) < 2 {
			return nil, ErrShortLength
		}
		n := int(body[1])
		if len(body) < 2+n {
			return nil, ErrShortLength
		}
		return body[2 : 2+n], nil
	case op == 0x4d: // OP_PUSHDATA2
		if len(body) < 3 {
			return nil, ErrShortLength
		}
		n := int(binary.LittleEndian.Uint16(body[1:3]))
		if len(body) < 3+n {
			return nil, ErrShortLength
		}
		return body[3 : 3+n], nil
	default:
		return nil, ErrInvalidPrefix
	}
}

// Announcement is the decoded result: exactly one field is non-nil.
type Announcement struct {
	Chroma *yuv.ChromaAnnouncement
	Freeze *yuv.FreezeAnnouncement
	Issue  *yuv.IssueAnnouncement
}

// Parse decodes a Bitcoin OP_RETURN script into an Announcement. Any
// structural problem returns one of the sentinel/ErrInvalidAnnouncementData
// errors above; none are fatal to the caller.
func Parse(script []byte) (*Announcement, error) {
	payload, err := pushData(script)
	if err != nil {
		return nil, err
	}
	if len(payload) < 5 {
		return nil, ErrShortLength
	}
	if !bytes.Equal(payload[:3], Magic[:]) {
		return nil, ErrInvalidPrefix
	}
	kind := Kind(binary.BigEndian.Uint16(payload[3:5]))
	body := payload[5:]

	switch kind {
	case KindChroma:
		return parseChroma(body)
	case KindFreeze:
		return parseFreeze(body)
	case KindIssue:
		return parseIssue(body)
	default:
		return nil, ErrUnknownAnnouncementKind
	}
}

func parseChroma(b []byte) (*Announcement, error) {
	if len(b) < yuv.ChromaSize+1 {
		return nil, ErrShortLength
	}
	chroma, _ := yuv.ChromaFromBytes(b[:yuv.ChromaSize])
	b = b[yuv.ChromaSize:]

	nameLen := int(b[0])
	b = b[1:]
	if len(b) < nameLen+1 {
		return nil, ErrShortLength
	}
	name := string(b[:nameLen])
	b = b[nameLen:]

	symbolLen := int(b[0])
	b = b[1:]
	if len(b) < symbolLen+1+yuv.LumaSize+1 {
		return nil, ErrShortLength
	}
	symbol := string(b[:symbolLen])
	b = b[symbolLen:]

	decimals := b[0]
	b = b[1:]

	var maxSupply [yuv.LumaSize]byte
	copy(maxSupply[:], b[:yuv.LumaSize])
	b = b[yuv.LumaSize:]

	isFreezable := b[0] != 0

	return &Announcement{Chroma: &yuv.ChromaAnnouncement{
		Chroma:      chroma,
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		MaxSupply:   yuv.LumaFromBigEndian(maxSupply),
		IsFreezable: isFreezable,
	}}, nil
}

func parseFreeze(b []byte) (*Announcement, error) {
	if len(b) < 32+4 {
		return nil, ErrShortLength
	}
	var txid [32]byte
	copy(txid[:], b[:32])
	vout := binary.BigEndian.Uint32(b[32:36])

	hash, err := chainhash.NewHash(txid[:])
	if err != nil {
		return nil, &ErrInvalidAnnouncementData{Msg: err.Error()}
	}

	return &Announcement{Freeze: &yuv.FreezeAnnouncement{
		Outpoint: yuv.Outpoint{Txid: *hash, Vout: vout},
	}}, nil
}

func parseIssue(b []byte) (*Announcement, error) {
	if len(b) < yuv.ChromaSize+yuv.LumaSize {
		return nil, ErrShortLength
	}
	chroma, _ := yuv.ChromaFromBytes(b[:yuv.ChromaSize])
	var amount [yuv.LumaSize]byte
	copy(amount[:], b[yuv.ChromaSize:yuv.ChromaSize+yuv.LumaSize])

	return &Announcement{Issue: &yuv.IssueAnnouncement{
		Chroma: chroma,
		Amount: yuv.LumaFromBigEndian(amount),
	}}, nil
}

// Encode serializes an Announcement back into an OP_RETURN script
// (round-trip inverse of Parse, per spec.md property P7).
func Encode(a *Announcement) ([]byte, error) {
	var kind Kind
	var body []byte

	switch {
	case a.Chroma != nil:
		kind = KindChroma
		body = encodeChroma(a.Chroma)
	case a.Freeze != nil:
		kind = KindFreeze
		body = encodeFreeze(a.Freeze)
	case a.Issue != nil:
		kind = KindIssue
		body = encodeIssue(a.Issue)
	default:
		return nil, errors.New("announcement: empty announcement")
	}

	payload := make([]byte, 0, 5+len(body))
	payload = append(payload, Magic[:]...)
	kindBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(kindBytes, uint16(kind))
	payload = append(payload, kindBytes...)
	payload = append(payload, body...)

	return buildOpReturnScript(payload), nil
}

func encodeChroma(c *yuv.ChromaAnnouncement) []byte {
	var buf bytes.Buffer
	buf.Write(c.Chroma[:])
	buf.WriteByte(byte(len(c.Name)))
	buf.WriteString(c.Name)
	buf.WriteByte(byte(len(c.Symbol)))
	buf.WriteString(c.Symbol)
	buf.WriteByte(c.Decimals)
	buf.Write(c.MaxSupply.Amount[:])
	if c.IsFreezable {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func encodeFreeze(f *yuv.FreezeAnnouncement) []byte {
	var buf bytes.Buffer
	txid := f.Outpoint.Txid
	buf.Write(txid[:])
	vout := make([]byte, 4)
	binary.BigEndian.PutUint32(vout, f.Outpoint.Vout)
	buf.Write(vout)
	return buf.Bytes()
}

func encodeIssue(i *yuv.IssueAnnouncement) []byte {
	var buf bytes.Buffer
	buf.Write(i.Chroma[:])
	buf.Write(i.Amount.Amount[:])
	return buf.Bytes()
}

// buildOpReturnScript wraps payload in an OP_RETURN push, choosing the
// push opcode per Bitcoin Script's standard pushdata rules.
func buildOpReturnScript(payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(opReturnPrefix)
	n := len(payload)
	switch {
	case n <= 75:
		buf.WriteByte(byte(n))
	case n <= 0xff:
		buf.WriteByte(0x4c)
		buf.WriteByte(byte(n))
	default:
		buf.WriteByte(0x4d)
		lenBytes := make([]byte, 2)
		binary.LittleEndian.PutUint16(lenBytes, uint16(n))
		buf.Write(lenBytes)
	}
	buf.Write(payload)
	return buf.Bytes()
}
