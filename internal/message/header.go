// Package message implements the DNS message codec: header, question, and
// record section framing atop the name and rdata codecs.
package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dnsscience/stubresolve/internal/rdata"
)

var (
	ErrMessageTooShort  = errors.New("message: too short")
	ErrTruncatedMessage = errors.New("message: truncated (TC set), retry over TCP")
)

// HeaderFlags are the six boolean flags carried in the header's second
// 16-bit word. Bit positions match RFC 1035/4035: AA=10, TC=9, RD=8, RA=7,
// AD=5, CD=4, counting from the most significant bit as bit 15.
//
// The RA bit is read and written at bit 7 consistently; an earlier draft of
// this codec read RA from bit 8 (the same bit as RD) on parse while writing
// it correctly on encode, which made a round-tripped message silently flip
// RA. Bit 7 is used on both paths here.
type HeaderFlags struct {
	AA bool
	TC bool
	RD bool
	RA bool
	AD bool
	CD bool
}

func (f HeaderFlags) bits() uint16 {
	var v uint16
	if f.AA {
		v |= 1 << 10
	}
	if f.TC {
		v |= 1 << 9
	}
	if f.RD {
		v |= 1 << 8
	}
	if f.RA {
		v |= 1 << 7
	}
	if f.AD {
		v |= 1 << 5
	}
	if f.CD {
		v |= 1 << 4
	}
	return v
}

func parseHeaderFlags(v uint16) HeaderFlags {
	return HeaderFlags{
		AA: v&(1<<10) != 0,
		TC: v&(1<<9) != 0,
		RD: v&(1<<8) != 0,
		RA: v&(1<<7) != 0,
		AD: v&(1<<5) != 0,
		CD: v&(1<<4) != 0,
	}
}

// Header is the 12-byte fixed DNS message header. The section counts are
// stored explicitly rather than derived: Parse fills them from the wire
// (and they then agree with the parsed section lengths), but Encode writes
// them as stored, trusting the caller to keep them consistent with the
// Message's section slices when building a message by hand.
type Header struct {
	ID      uint16
	QR      bool
	Opcode  rdata.Opcode
	Flags   HeaderFlags
	RCode   rdata.RCode
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

func parseHeader(msg []byte) (Header, error) {
	if len(msg) < 12 {
		return Header{}, ErrMessageTooShort
	}
	id := binary.BigEndian.Uint16(msg[0:2])
	word := binary.BigEndian.Uint16(msg[2:4])
	qr := word&(1<<15) != 0
	opcode, err := rdata.ParseOpcode(uint8((word >> 11) & 0x0f))
	if err != nil {
		return Header{}, fmt.Errorf("parse header: %w", err)
	}
	flags := parseHeaderFlags(word)
	rcode := rdata.RCode(word & 0x0f)
	return Header{
		ID: id, QR: qr, Opcode: opcode, Flags: flags, RCode: rcode,
		QDCount: binary.BigEndian.Uint16(msg[4:6]),
		ANCount: binary.BigEndian.Uint16(msg[6:8]),
		NSCount: binary.BigEndian.Uint16(msg[8:10]),
		ARCount: binary.BigEndian.Uint16(msg[10:12]),
	}, nil
}

func (h Header) encodeInto(w io.Writer) (int, error) {
	var buf [12]byte
	binary.BigEndian.PutUint16(buf[0:2], h.ID)

	word := h.Flags.bits() | uint16(h.Opcode)<<11 | uint16(h.RCode)&0x0f
	if h.QR {
		word |= 1 << 15
	}
	binary.BigEndian.PutUint16(buf[2:4], word)

	binary.BigEndian.PutUint16(buf[4:6], h.QDCount)
	binary.BigEndian.PutUint16(buf[6:8], h.ANCount)
	binary.BigEndian.PutUint16(buf[8:10], h.NSCount)
	binary.BigEndian.PutUint16(buf[10:12], h.ARCount)

	n, err := w.Write(buf[:])
	return n, err
}
