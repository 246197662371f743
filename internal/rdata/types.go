// Package rdata implements the wire codecs for DNS resource record data: one
// type per supported RecordType, each able to parse itself from a cursor,
// encode itself to a buffer, and (when it carries embedded names) produce a
// DNSSEC canonical form.
package rdata

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dnsscience/stubresolve/internal/name"
)

// RecordType is a DNS TYPE value. The zero value is not a valid type; unknown
// values round-trip via the Unknown variant instead of being rejected.
type RecordType uint16

const (
	TypeA          RecordType = 1
	TypeNS         RecordType = 2
	TypeCNAME      RecordType = 5
	TypeSOA        RecordType = 6
	TypePTR        RecordType = 12
	TypeHINFO      RecordType = 13
	TypeMX         RecordType = 15
	TypeTXT        RecordType = 16
	TypeRP         RecordType = 17
	TypeAAAA       RecordType = 28
	TypeLOC        RecordType = 29
	TypeSRV        RecordType = 33
	TypeNAPTR      RecordType = 35
	TypeCERT       RecordType = 37
	TypeDNAME      RecordType = 39
	TypeOPT        RecordType = 41
	TypeDS         RecordType = 43
	TypeSSHFP      RecordType = 44
	TypeRRSIG      RecordType = 46
	TypeNSEC       RecordType = 47
	TypeDNSKEY     RecordType = 48
	TypeNSEC3      RecordType = 50
	TypeNSEC3PARAM RecordType = 51
	TypeTLSA       RecordType = 52
	TypeOPENPGPKEY RecordType = 61
	TypeCAA        RecordType = 257
)

var typeNames = map[RecordType]string{
	TypeA: "A", TypeNS: "NS", TypeCNAME: "CNAME", TypeSOA: "SOA", TypePTR: "PTR",
	TypeHINFO: "HINFO", TypeMX: "MX", TypeTXT: "TXT", TypeRP: "RP", TypeAAAA: "AAAA",
	TypeLOC: "LOC", TypeSRV: "SRV", TypeNAPTR: "NAPTR", TypeCERT: "CERT",
	TypeDNAME: "DNAME", TypeOPT: "OPT", TypeDS: "DS", TypeSSHFP: "SSHFP",
	TypeRRSIG: "RRSIG", TypeNSEC: "NSEC", TypeDNSKEY: "DNSKEY", TypeNSEC3: "NSEC3",
	TypeNSEC3PARAM: "NSEC3PARAM", TypeTLSA: "TLSA", TypeOPENPGPKEY: "OPENPGPKEY",
	TypeCAA: "CAA",
}

// String renders the record type's mnemonic, or "TYPE<n>" for unrecognized
// values so unknown types still round-trip in text form.
func (t RecordType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}

var typeMnemonics map[string]RecordType

func init() {
	typeMnemonics = make(map[string]RecordType, len(typeNames))
	for t, s := range typeNames {
		typeMnemonics[s] = t
	}
}

// ErrUnknownMnemonic is returned by ParseRecordType for a mnemonic not in
// the canonical table (this package does not accept "TYPE<n>" as input).
var ErrUnknownMnemonic = errors.New("rdata: unknown record type mnemonic")

// ParseRecordType looks up a record type by its canonical mnemonic (case
// insensitive), the inverse of RecordType.String for the named types.
func ParseRecordType(s string) (RecordType, error) {
	t, ok := typeMnemonics[strings.ToUpper(s)]
	if !ok {
		return 0, ErrUnknownMnemonic
	}
	return t, nil
}

// Class is a DNS CLASS value.
type Class uint16

const (
	ClassIN   Class = 1
	ClassCH   Class = 3
	ClassHS   Class = 4
	ClassNONE Class = 254
	ClassANY  Class = 255
)

var classNames = map[Class]string{
	ClassIN: "IN", ClassCH: "CH", ClassHS: "HS", ClassNONE: "NONE", ClassANY: "ANY",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CLASS%d", uint16(c))
}

var ErrInvalidClass = errors.New("rdata: invalid class")

// ParseClass validates a wire class value.
func ParseClass(v uint16) (Class, error) {
	switch Class(v) {
	case ClassIN, ClassCH, ClassHS, ClassNONE, ClassANY:
		return Class(v), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidClass, v)
}

// Opcode is a DNS OPCODE value.
type Opcode uint8

const (
	OpcodeQUERY  Opcode = 0
	OpcodeIQUERY Opcode = 1
	OpcodeSTATUS Opcode = 2
	OpcodeNOTIFY Opcode = 4
	OpcodeUPDATE Opcode = 5
	OpcodeDSO    Opcode = 6
)

var ErrInvalidOpcode = errors.New("rdata: invalid opcode")

func ParseOpcode(v uint8) (Opcode, error) {
	switch Opcode(v) {
	case OpcodeQUERY, OpcodeIQUERY, OpcodeSTATUS, OpcodeNOTIFY, OpcodeUPDATE, OpcodeDSO:
		return Opcode(v), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidOpcode, v)
}

// RCode is a DNS RCODE value, including the extended range expressible via
// EDNS (up to 12 bits / 0-4095, though only values through BADCOOKIE=23 are
// currently assigned).
type RCode uint16

const (
	RCodeNOERROR       RCode = 0
	RCodeFORMERR       RCode = 1
	RCodeSERVFAIL      RCode = 2
	RCodeNXDOMAIN      RCode = 3
	RCodeNOTIMP        RCode = 4
	RCodeREFUSED       RCode = 5
	RCodeYXDOMAIN      RCode = 6
	RCodeYXRRSET       RCode = 7
	RCodeNXRRSET       RCode = 8
	RCodeNOTAUTH       RCode = 9
	RCodeNOTZONE       RCode = 10
	RCodeDSOTYPENI     RCode = 11
	RCodeBADVERSBADSIG RCode = 16
	RCodeBADKEY        RCode = 17
	RCodeBADTIME       RCode = 18
	RCodeBADMODE       RCode = 19
	RCodeBADNAME       RCode = 20
	RCodeBADALG        RCode = 21
	RCodeBADTRUNC      RCode = 22
	RCodeBADCOOKIE     RCode = 23
)

func (r RCode) String() string {
	switch r {
	case RCodeNOERROR:
		return "NOERROR"
	case RCodeFORMERR:
		return "FORMERR"
	case RCodeSERVFAIL:
		return "SERVFAIL"
	case RCodeNXDOMAIN:
		return "NXDOMAIN"
	case RCodeNOTIMP:
		return "NOTIMP"
	case RCodeREFUSED:
		return "REFUSED"
	case RCodeYXDOMAIN:
		return "YXDOMAIN"
	case RCodeYXRRSET:
		return "YXRRSET"
	case RCodeNXRRSET:
		return "NXRRSET"
	case RCodeNOTAUTH:
		return "NOTAUTH"
	case RCodeNOTZONE:
		return "NOTZONE"
	case RCodeDSOTYPENI:
		return "DSOTYPENI"
	case RCodeBADVERSBADSIG:
		return "BADVERSBADSIG"
	case RCodeBADKEY:
		return "BADKEY"
	case RCodeBADTIME:
		return "BADTIME"
	case RCodeBADMODE:
		return "BADMODE"
	case RCodeBADNAME:
		return "BADNAME"
	case RCodeBADALG:
		return "BADALG"
	case RCodeBADTRUNC:
		return "BADTRUNC"
	case RCodeBADCOOKIE:
		return "BADCOOKIE"
	default:
		return fmt.Sprintf("RCODE%d", uint16(r))
	}
}

// Rdata is the sum type over all supported record data payloads. Concrete
// types are pointers so Canonicalize can mutate in place.
type Rdata interface {
	// Type returns the record type this payload belongs to.
	Type() RecordType
	// EncodeInto writes the wire-format RDATA (without the preceding
	// RDLENGTH) and returns the number of bytes written.
	EncodeInto(w io.Writer) (int, error)
	// Canonicalize lowercases any embedded names in place. A no-op for
	// variants that carry no names.
	Canonicalize()
	// String renders the RDATA in a human-readable presentation form.
	String() string
}

// Cursor is a read position into a complete DNS message, used so that
// name-bearing RDATA can follow compression pointers that reach outside the
// RDATA's own byte range.
type Cursor struct {
	Msg    []byte
	Offset int
}

func (c *Cursor) readByte() (byte, error) {
	if c.Offset >= len(c.Msg) {
		return 0, io.ErrUnexpectedEOF
	}
	b := c.Msg[c.Offset]
	c.Offset++
	return b, nil
}

func (c *Cursor) readUint16() (uint16, error) {
	if c.Offset+2 > len(c.Msg) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(c.Msg[c.Offset])<<8 | uint16(c.Msg[c.Offset+1])
	c.Offset += 2
	return v, nil
}

func (c *Cursor) readUint32() (uint32, error) {
	if c.Offset+4 > len(c.Msg) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(c.Msg[c.Offset])<<24 | uint32(c.Msg[c.Offset+1])<<16 |
		uint32(c.Msg[c.Offset+2])<<8 | uint32(c.Msg[c.Offset+3])
	c.Offset += 4
	return v, nil
}

func (c *Cursor) readBytes(n int) ([]byte, error) {
	if c.Offset+n > len(c.Msg) {
		return nil, io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	copy(b, c.Msg[c.Offset:c.Offset+n])
	c.Offset += n
	return b, nil
}

func (c *Cursor) readName(comp name.Compression) (name.Name, error) {
	return name.Parse(c.Msg, &c.Offset, comp)
}

// Parse dispatches to the codec for rtype, reading exactly rdlength bytes of
// RDATA starting at msg[offset] (name-bearing fields may still read outside
// [offset, offset+rdlength) when following a compression pointer, per the
// wire format). Returns the parsed Rdata; the caller is responsible for
// repositioning msg's cursor to offset+rdlength afterwards, since compressed
// names can leave the cursor anywhere.
func Parse(rtype RecordType, msg []byte, offset int, rdlength int) (Rdata, error) {
	c := &Cursor{Msg: msg, Offset: offset}
	end := offset + rdlength
	if end > len(msg) {
		return nil, io.ErrUnexpectedEOF
	}

	var (
		r   Rdata
		err error
	)
	switch rtype {
	case TypeA:
		r, err = parseA(c)
	case TypeAAAA:
		r, err = parseAAAA(c)
	case TypeNS:
		r, err = parseNS(c)
	case TypeCNAME:
		r, err = parseCNAME(c)
	case TypeDNAME:
		r, err = parseDNAME(c)
	case TypePTR:
		r, err = parsePTR(c)
	case TypeSOA:
		r, err = parseSOA(c)
	case TypeMX:
		r, err = parseMX(c)
	case TypeHINFO:
		r, err = parseHINFO(c, end)
	case TypeTXT:
		r, err = parseTXT(c, end)
	case TypeRP:
		r, err = parseRP(c)
	case TypeNAPTR:
		r, err = parseNAPTR(c, end)
	case TypeSRV:
		r, err = parseSRV(c)
	case TypeCERT:
		r, err = parseCERT(c, end)
	case TypeLOC:
		r, err = parseLOC(c)
	case TypeOPT:
		r, err = parseOPT(c, end)
	case TypeDS:
		r, err = parseDS(c, end)
	case TypeSSHFP:
		r, err = parseSSHFP(c, end)
	case TypeTLSA:
		r, err = parseTLSA(c, end)
	case TypeOPENPGPKEY:
		r, err = parseOPENPGPKEY(c, end)
	case TypeDNSKEY:
		r, err = parseDNSKEY(c, end)
	case TypeRRSIG:
		r, err = parseRRSIG(c, end)
	case TypeNSEC:
		r, err = parseNSEC(c, rdlength, offset)
	case TypeNSEC3:
		r, err = parseNSEC3(c, rdlength, offset)
	case TypeNSEC3PARAM:
		r, err = parseNSEC3PARAM(c)
	case TypeCAA:
		r, err = parseCAA(c, end)
	default:
		r, err = parseUnknown(rtype, c, rdlength)
	}
	return r, err
}
