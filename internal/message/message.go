package message

import (
	"fmt"
	"io"

	"github.com/dnsscience/stubresolve/internal/rdata"
)

// Message is a full DNS message: header plus the four ordered sections.
type Message struct {
	Header     Header
	Questions  []Question
	Answer     []Record
	Authority  []Record
	Additional []Record
}

// Parse decodes a complete DNS message. If the header's TC bit is set, it
// returns ErrTruncatedMessage immediately without attempting to parse the
// sections, since a truncated reply's section bytes cannot be trusted; the
// caller should retry the query over TCP.
func Parse(msg []byte) (*Message, error) {
	h, err := parseHeader(msg)
	if err != nil {
		return nil, err
	}
	if h.Flags.TC {
		return nil, ErrTruncatedMessage
	}

	offset := 12
	m := &Message{Header: h}

	m.Questions = make([]Question, h.QDCount)
	for i := 0; i < int(h.QDCount); i++ {
		q, err := parseQuestion(msg, &offset)
		if err != nil {
			return nil, fmt.Errorf("parse question %d: %w", i, err)
		}
		m.Questions[i] = q
	}

	if m.Answer, err = parseSection(msg, &offset, int(h.ANCount)); err != nil {
		return nil, fmt.Errorf("parse answer: %w", err)
	}
	if m.Authority, err = parseSection(msg, &offset, int(h.NSCount)); err != nil {
		return nil, fmt.Errorf("parse authority: %w", err)
	}
	if m.Additional, err = parseSection(msg, &offset, int(h.ARCount)); err != nil {
		return nil, fmt.Errorf("parse additional: %w", err)
	}

	// EDNS combined RCODE: promote the OPT record's extended-RCODE high
	// bits into the header only after every section has been parsed.
	if opt := findOPT(m.Additional); opt != nil {
		m.Header.RCode = rdata.RCode(uint16(opt.ExtRCodeHigh)<<4 | uint16(h.RCode)&0x0f)
	}

	return m, nil
}

func parseSection(msg []byte, offset *int, count int) ([]Record, error) {
	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		r, err := parseRecord(msg, offset)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func findOPT(additional []Record) *OptRecord {
	for _, r := range additional {
		if opt, ok := r.(*OptRecord); ok {
			return opt
		}
	}
	return nil
}

// EncodeInto writes the message to w, using the header's stored section
// counts verbatim rather than recomputing them from the section slices: a
// caller that hand-builds an inconsistent Message gets exactly the bytes
// it asked for.
func (m *Message) EncodeInto(w io.Writer) (int, error) {
	written, err := m.Header.encodeInto(w)
	if err != nil {
		return written, err
	}
	for _, q := range m.Questions {
		n, err := q.encodeInto(w)
		written += n
		if err != nil {
			return written, err
		}
	}
	for _, section := range [][]Record{m.Answer, m.Authority, m.Additional} {
		for _, r := range section {
			n, err := r.encodeInto(w)
			written += n
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
