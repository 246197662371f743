package rdata

import (
	"fmt"
	"io"
)

// OptionCode identifies an EDNS0 option. The space is open; Unknown codes
// still round-trip by carrying their raw numeric value. [RFC 6891]
type OptionCode uint16

const (
	OptionCodeCookie  OptionCode = 10
	OptionCodePadding OptionCode = 12
)

func (c OptionCode) String() string {
	switch c {
	case OptionCodeCookie:
		return "COOKIE"
	case OptionCodePadding:
		return "PADDING"
	default:
		return fmt.Sprintf("OPT%d", uint16(c))
	}
}

// OPT carries the EDNS0 pseudo-record's option list. The surrounding OPT
// pseudo-record's payload size, extended RCODE bits, version and DO flag
// live in the owning message record, not here: this type is only the
// variable-length RDATA, a sequence of (code, length, data) options.
type OPT struct {
	Options map[OptionCode][]byte
}

func parseOPT(c *Cursor, end int) (Rdata, error) {
	opts := make(map[OptionCode][]byte)
	for c.Offset < end {
		code, err := c.readUint16()
		if err != nil {
			return nil, fmt.Errorf("parse OPT: %w", err)
		}
		optLen, err := c.readUint16()
		if err != nil {
			return nil, fmt.Errorf("parse OPT: %w", err)
		}
		data, err := c.readBytes(int(optLen))
		if err != nil {
			return nil, fmt.Errorf("parse OPT: %w", err)
		}
		opts[OptionCode(code)] = data
	}
	return &OPT{Options: opts}, nil
}

func (r *OPT) Type() RecordType { return TypeOPT }

func (r *OPT) EncodeInto(w io.Writer) (int, error) {
	written := 0
	for code, data := range r.Options {
		if err := writeUint16(w, uint16(code)); err != nil {
			return written, err
		}
		if err := writeUint16(w, uint16(len(data))); err != nil {
			return written, err
		}
		if _, err := w.Write(data); err != nil {
			return written, err
		}
		written += 4 + len(data)
	}
	return written, nil
}

func (r *OPT) Canonicalize() {}

func (r *OPT) String() string {
	s := ""
	for code, data := range r.Options {
		s += fmt.Sprintf("%s:%x ", code, data)
	}
	return s
}
