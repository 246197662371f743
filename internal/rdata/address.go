package rdata

import (
	"fmt"
	"io"
	"net"
)

// A is an IPv4 address record. [RFC 1035]
type A struct {
	Address net.IP
}

func parseA(c *Cursor) (Rdata, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return nil, fmt.Errorf("parse A: %w", err)
	}
	return &A{Address: net.IP(b).To4()}, nil
}

func (r *A) Type() RecordType { return TypeA }

func (r *A) EncodeInto(w io.Writer) (int, error) {
	ip := r.Address.To4()
	if ip == nil {
		return 0, fmt.Errorf("encode A: not an IPv4 address: %v", r.Address)
	}
	n, err := w.Write(ip)
	return n, err
}

func (r *A) Canonicalize() {}

func (r *A) String() string { return r.Address.String() }

// AAAA is an IPv6 address record. [RFC 3596]
type AAAA struct {
	Address net.IP
}

func parseAAAA(c *Cursor) (Rdata, error) {
	b, err := c.readBytes(16)
	if err != nil {
		return nil, fmt.Errorf("parse AAAA: %w", err)
	}
	return &AAAA{Address: net.IP(b)}, nil
}

func (r *AAAA) Type() RecordType { return TypeAAAA }

func (r *AAAA) EncodeInto(w io.Writer) (int, error) {
	ip := r.Address.To16()
	if ip == nil {
		return 0, fmt.Errorf("encode AAAA: not an IPv6 address: %v", r.Address)
	}
	n, err := w.Write(ip)
	return n, err
}

func (r *AAAA) Canonicalize() {}

func (r *AAAA) String() string { return r.Address.String() }
