package rdata

import (
	"encoding/hex"
	"fmt"
	"io"
)

// Unknown carries the raw RDATA bytes of a record type this codec does not
// specifically parse, preserving RFC 3597's "\# <len> <hex>" unknown-RR
// presentation form so any type can round-trip.
type Unknown struct {
	RType RecordType
	Raw   []byte
}

func parseUnknown(rtype RecordType, c *Cursor, rdlength int) (Rdata, error) {
	raw, err := c.readBytes(rdlength)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rtype, err)
	}
	return &Unknown{RType: rtype, Raw: raw}, nil
}

func (r *Unknown) Type() RecordType { return r.RType }

func (r *Unknown) EncodeInto(w io.Writer) (int, error) {
	n, err := w.Write(r.Raw)
	return n, err
}

func (r *Unknown) Canonicalize() {}

func (r *Unknown) String() string {
	return fmt.Sprintf("\\# %d %s", len(r.Raw), hex.EncodeToString(r.Raw))
}
