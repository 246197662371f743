package message

import (
	"fmt"
	"io"

	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
)

// Question is one entry of a message's question section.
type Question struct {
	QName  name.Name
	QType  rdata.RecordType
	QClass rdata.Class
}

func parseQuestion(msg []byte, offset *int) (Question, error) {
	qname, err := name.Parse(msg, offset, name.Allowed)
	if err != nil {
		return Question{}, fmt.Errorf("parse question: %w", err)
	}
	if *offset+4 > len(msg) {
		return Question{}, ErrMessageTooShort
	}
	qtype := rdata.RecordType(uint16(msg[*offset])<<8 | uint16(msg[*offset+1]))
	qclass, err := rdata.ParseClass(uint16(msg[*offset+2])<<8 | uint16(msg[*offset+3]))
	if err != nil {
		return Question{}, fmt.Errorf("parse question: %w", err)
	}
	*offset += 4
	return Question{QName: qname, QType: qtype, QClass: qclass}, nil
}

func (q Question) encodeInto(w io.Writer) (int, error) {
	n, err := q.QName.EncodeInto(w)
	if err != nil {
		return n, err
	}
	var buf [4]byte
	buf[0], buf[1] = byte(q.QType>>8), byte(q.QType)
	buf[2], buf[3] = byte(q.QClass>>8), byte(q.QClass)
	m, err := w.Write(buf[:])
	return n + m, err
}
