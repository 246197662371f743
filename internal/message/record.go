package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
)

var ErrOptOwnerNotRoot = errors.New("message: OPT record owner must be root")

// Record is either an OptRecord (the EDNS0 pseudo-record) or a
// NonOptRecord. Both satisfy this interface so message sections can hold a
// uniform slice; type-switch on the concrete type to act on one kind.
type Record interface {
	encodeInto(w io.Writer) (int, error)
	owner() name.Name
}

// OptRecord is the EDNS0 pseudo-record (RFC 6891). Its owner is always
// root; the class and TTL wire slots are repurposed to carry payload size
// and the extended-RCODE/version/DO bits instead of a real class and TTL.
type OptRecord struct {
	PayloadSize  uint16
	ExtRCodeHigh uint8
	Version      uint8
	DO           bool
	// ZReserved preserves the 15 non-DO bits of the Z field across a
	// parse/encode round trip; real traffic always leaves these zero.
	ZReserved uint16
	Options   map[rdata.OptionCode][]byte
}

func (r *OptRecord) owner() name.Name { return name.Root() }

func (r *OptRecord) encodeInto(w io.Writer) (int, error) {
	n1, err := name.Root().EncodeInto(w)
	if err != nil {
		return n1, err
	}
	written := n1
	if err := writeU16(w, uint16(rdata.TypeOPT)); err != nil {
		return written, err
	}
	written += 2
	if err := writeU16(w, r.PayloadSize); err != nil {
		return written, err
	}
	written += 2

	z := r.ZReserved &^ (1 << 15)
	if r.DO {
		z |= 1 << 15
	}
	ttlSlot := uint32(r.ExtRCodeHigh)<<24 | uint32(r.Version)<<16 | uint32(z)
	if err := writeU32(w, ttlSlot); err != nil {
		return written, err
	}
	written += 4

	opt := &rdata.OPT{Options: r.Options}
	var body bytes.Buffer
	if _, err := opt.EncodeInto(&body); err != nil {
		return written, err
	}
	if err := writeU16(w, uint16(body.Len())); err != nil {
		return written, err
	}
	written += 2
	n2, err := w.Write(body.Bytes())
	return written + n2, err
}

// NonOptRecord is a resource record other than OPT: owner, type, class,
// TTL, and RDATA. The encoded RDATA cache is filled on parse and must be
// refreshed (via RefreshRDATACache) after any mutation of Data before the
// record is used for wire I/O or DNSSEC, per the owning invariant: a
// record exclusively owns both its structured RDATA and its cached bytes.
type NonOptRecord struct {
	Owner name.Name
	RType rdata.RecordType
	Class rdata.Class
	TTL   uint32
	Data  rdata.Rdata

	encodedRDATA []byte
}

// NewNonOptRecord builds a record from structured RDATA, computing the
// initial encoded cache.
func NewNonOptRecord(owner name.Name, rtype rdata.RecordType, class rdata.Class, ttl uint32, data rdata.Rdata) (*NonOptRecord, error) {
	r := &NonOptRecord{Owner: owner, RType: rtype, Class: class, TTL: ttl, Data: data}
	if err := r.RefreshRDATACache(); err != nil {
		return nil, err
	}
	return r, nil
}

// RefreshRDATACache re-encodes Data into the cached byte buffer used for
// wire I/O and DNSSEC signature-base construction. Call this after any
// mutation that affects RDATA bytes, including Canonicalize.
func (r *NonOptRecord) RefreshRDATACache() error {
	var buf bytes.Buffer
	if _, err := r.Data.EncodeInto(&buf); err != nil {
		return fmt.Errorf("refresh rdata cache: %w", err)
	}
	r.encodedRDATA = buf.Bytes()
	return nil
}

// EncodedRDATA returns the cached encoded RDATA bytes.
func (r *NonOptRecord) EncodedRDATA() []byte { return r.encodedRDATA }

// Canonicalize lowercases any names embedded in Data and refreshes the
// RDATA cache to match.
func (r *NonOptRecord) Canonicalize() error {
	r.Data.Canonicalize()
	return r.RefreshRDATACache()
}

func (r *NonOptRecord) owner() name.Name { return r.Owner }

// EncodeInto writes the record's full wire form (owner, type, class, ttl,
// rdlength, cached RDATA bytes). Exported for the DNSSEC engine's
// signature-base construction, which needs each canonicalized record's
// wire bytes outside of a Message's own section encoding.
func (r *NonOptRecord) EncodeInto(w io.Writer) (int, error) { return r.encodeInto(w) }

func (r *NonOptRecord) encodeInto(w io.Writer) (int, error) {
	n1, err := r.Owner.EncodeInto(w)
	if err != nil {
		return n1, err
	}
	written := n1
	if err := writeU16(w, uint16(r.RType)); err != nil {
		return written, err
	}
	written += 2
	if err := writeU16(w, uint16(r.Class)); err != nil {
		return written, err
	}
	written += 2
	if err := writeU32(w, r.TTL); err != nil {
		return written, err
	}
	written += 4
	if err := writeU16(w, uint16(len(r.encodedRDATA))); err != nil {
		return written, err
	}
	written += 2
	n2, err := w.Write(r.encodedRDATA)
	return written + n2, err
}

func writeU16(w io.Writer, v uint16) error {
	_, err := w.Write([]byte{byte(v >> 8), byte(v)})
	return err
}

func writeU32(w io.Writer, v uint32) error {
	_, err := w.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	return err
}

// parseRecord reads one Record starting at *offset, dispatching to
// OptRecord parsing when the wire type is OPT.
func parseRecord(msg []byte, offset *int) (Record, error) {
	owner, err := name.Parse(msg, offset, name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if *offset+2 > len(msg) {
		return nil, ErrMessageTooShort
	}
	rtype := rdata.RecordType(uint16(msg[*offset])<<8 | uint16(msg[*offset+1]))
	*offset += 2

	if rtype == rdata.TypeOPT {
		return parseOptRecord(owner, msg, offset)
	}
	return parseNonOptRecord(owner, rtype, msg, offset)
}

func parseOptRecord(owner name.Name, msg []byte, offset *int) (Record, error) {
	if !owner.IsRoot() {
		return nil, ErrOptOwnerNotRoot
	}
	if *offset+8 > len(msg) {
		return nil, ErrMessageTooShort
	}
	payloadSize := uint16(msg[*offset])<<8 | uint16(msg[*offset+1])
	extRCodeHigh := msg[*offset+2]
	version := msg[*offset+3]
	z := uint16(msg[*offset+4])<<8 | uint16(msg[*offset+5])
	rdlength := uint16(msg[*offset+6])<<8 | uint16(msg[*offset+7])
	*offset += 8

	parsed, err := rdata.Parse(rdata.TypeOPT, msg, *offset, int(rdlength))
	if err != nil {
		return nil, fmt.Errorf("parse OPT: %w", err)
	}
	*offset += int(rdlength)

	opt, ok := parsed.(*rdata.OPT)
	if !ok {
		return nil, fmt.Errorf("parse OPT: unexpected rdata type %T", parsed)
	}
	return &OptRecord{
		PayloadSize: payloadSize, ExtRCodeHigh: extRCodeHigh, Version: version,
		DO: z&(1<<15) != 0, ZReserved: z &^ (1 << 15), Options: opt.Options,
	}, nil
}

func parseNonOptRecord(owner name.Name, rtype rdata.RecordType, msg []byte, offset *int) (Record, error) {
	if *offset+8 > len(msg) {
		return nil, ErrMessageTooShort
	}
	class, err := rdata.ParseClass(uint16(msg[*offset])<<8 | uint16(msg[*offset+1]))
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	ttl := uint32(msg[*offset+2])<<24 | uint32(msg[*offset+3])<<16 | uint32(msg[*offset+4])<<8 | uint32(msg[*offset+5])
	rdlength := uint16(msg[*offset+6])<<8 | uint16(msg[*offset+7])
	*offset += 8

	rdataStart := *offset
	if rdataStart+int(rdlength) > len(msg) {
		return nil, ErrMessageTooShort
	}
	raw := make([]byte, rdlength)
	copy(raw, msg[rdataStart:rdataStart+int(rdlength)])

	// Dispatch from a cursor independent of the main offset: name-bearing
	// RDATA may jump elsewhere in the message via compression, but the
	// section cursor always advances by exactly rdlength.
	parsed, err := rdata.Parse(rtype, msg, rdataStart, int(rdlength))
	if err != nil {
		return nil, fmt.Errorf("parse record rdata: %w", err)
	}
	*offset = rdataStart + int(rdlength)

	return &NonOptRecord{Owner: owner, RType: rtype, Class: class, TTL: ttl, Data: parsed, encodedRDATA: raw}, nil
}
