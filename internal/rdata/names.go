package rdata

import (
	"fmt"
	"io"

	"github.com/dnsscience/stubresolve/internal/name"
)

// NS designates an authoritative name server for the owner's zone. [RFC 1035]
type NS struct {
	Nsdname name.Name
}

func parseNS(c *Cursor) (Rdata, error) {
	n, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse NS: %w", err)
	}
	return &NS{Nsdname: n}, nil
}

func (r *NS) Type() RecordType                { return TypeNS }
func (r *NS) EncodeInto(w io.Writer) (int, error) { return r.Nsdname.EncodeInto(w) }
func (r *NS) Canonicalize()                   { r.Nsdname.Canonicalize() }
func (r *NS) String() string                  { return r.Nsdname.String() }

// CNAME is a canonical name alias. [RFC 1035]
type CNAME struct {
	Canonical name.Name
}

func parseCNAME(c *Cursor) (Rdata, error) {
	n, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse CNAME: %w", err)
	}
	return &CNAME{Canonical: n}, nil
}

func (r *CNAME) Type() RecordType                { return TypeCNAME }
func (r *CNAME) EncodeInto(w io.Writer) (int, error) { return r.Canonical.EncodeInto(w) }
func (r *CNAME) Canonicalize()                   { r.Canonical.Canonicalize() }
func (r *CNAME) String() string                  { return r.Canonical.String() }

// DNAME substitutes a subtree of the namespace with another domain. [RFC 6672]
type DNAME struct {
	Target name.Name
}

func parseDNAME(c *Cursor) (Rdata, error) {
	// The target must not be compressed on the wire, but we accept a
	// compressed name on parse for robustness against senders that violate
	// this; only encode refuses compression (we never emit it at all).
	n, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse DNAME: %w", err)
	}
	return &DNAME{Target: n}, nil
}

func (r *DNAME) Type() RecordType                { return TypeDNAME }
func (r *DNAME) EncodeInto(w io.Writer) (int, error) { return r.Target.EncodeInto(w) }
func (r *DNAME) Canonicalize()                   { r.Target.Canonicalize() }
func (r *DNAME) String() string                  { return r.Target.String() }

// PTR points to another location in the domain name space. [RFC 1035]
type PTR struct {
	Ptrdname name.Name
}

func parsePTR(c *Cursor) (Rdata, error) {
	n, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse PTR: %w", err)
	}
	return &PTR{Ptrdname: n}, nil
}

func (r *PTR) Type() RecordType                { return TypePTR }
func (r *PTR) EncodeInto(w io.Writer) (int, error) { return r.Ptrdname.EncodeInto(w) }
func (r *PTR) Canonicalize()                   { r.Ptrdname.Canonicalize() }
func (r *PTR) String() string                  { return r.Ptrdname.String() }

// MX identifies a mail exchange for the owner with a preference value. [RFC 1035]
type MX struct {
	Preference uint16
	Exchange   name.Name
}

func parseMX(c *Cursor) (Rdata, error) {
	pref, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse MX: %w", err)
	}
	n, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse MX: %w", err)
	}
	return &MX{Preference: pref, Exchange: n}, nil
}

func (r *MX) Type() RecordType { return TypeMX }

func (r *MX) EncodeInto(w io.Writer) (int, error) {
	if err := writeUint16(w, r.Preference); err != nil {
		return 0, err
	}
	n, err := r.Exchange.EncodeInto(w)
	return n + 2, err
}

func (r *MX) Canonicalize() { r.Exchange.Canonicalize() }
func (r *MX) String() string { return fmt.Sprintf("%d %s", r.Preference, r.Exchange) }

// RP identifies the responsible person for a domain. [RFC 1183]
type RP struct {
	Mbox name.Name
	Txt  name.Name
}

func parseRP(c *Cursor) (Rdata, error) {
	mbox, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse RP: %w", err)
	}
	txt, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse RP: %w", err)
	}
	return &RP{Mbox: mbox, Txt: txt}, nil
}

func (r *RP) Type() RecordType { return TypeRP }

func (r *RP) EncodeInto(w io.Writer) (int, error) {
	n1, err := r.Mbox.EncodeInto(w)
	if err != nil {
		return n1, err
	}
	n2, err := r.Txt.EncodeInto(w)
	return n1 + n2, err
}

func (r *RP) Canonicalize() {
	r.Mbox.Canonicalize()
	r.Txt.Canonicalize()
}
func (r *RP) String() string { return fmt.Sprintf("%s %s", r.Mbox, r.Txt) }

// SRV locates a service. [RFC 2782]
type SRV struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   name.Name
}

func parseSRV(c *Cursor) (Rdata, error) {
	prio, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse SRV: %w", err)
	}
	weight, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse SRV: %w", err)
	}
	port, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse SRV: %w", err)
	}
	target, err := c.readName(name.Prohibited)
	if err != nil {
		return nil, fmt.Errorf("parse SRV: %w", err)
	}
	return &SRV{Priority: prio, Weight: weight, Port: port, Target: target}, nil
}

func (r *SRV) Type() RecordType { return TypeSRV }

func (r *SRV) EncodeInto(w io.Writer) (int, error) {
	if err := writeUint16(w, r.Priority); err != nil {
		return 0, err
	}
	if err := writeUint16(w, r.Weight); err != nil {
		return 2, err
	}
	if err := writeUint16(w, r.Port); err != nil {
		return 4, err
	}
	n, err := r.Target.EncodeInto(w)
	return n + 6, err
}

func (r *SRV) Canonicalize() { r.Target.Canonicalize() }
func (r *SRV) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Priority, r.Weight, r.Port, r.Target)
}

// SOA marks the start of a zone of authority. [RFC 1035]
type SOA struct {
	MName   name.Name
	RName   name.Name
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func parseSOA(c *Cursor) (Rdata, error) {
	mname, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse SOA: %w", err)
	}
	rname, err := c.readName(name.Allowed)
	if err != nil {
		return nil, fmt.Errorf("parse SOA: %w", err)
	}
	serial, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse SOA: %w", err)
	}
	refresh, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse SOA: %w", err)
	}
	retry, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse SOA: %w", err)
	}
	expire, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse SOA: %w", err)
	}
	minimum, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse SOA: %w", err)
	}
	return &SOA{
		MName: mname, RName: rname, Serial: serial, Refresh: refresh,
		Retry: retry, Expire: expire, Minimum: minimum,
	}, nil
}

func (r *SOA) Type() RecordType { return TypeSOA }

func (r *SOA) EncodeInto(w io.Writer) (int, error) {
	n1, err := r.MName.EncodeInto(w)
	if err != nil {
		return n1, err
	}
	n2, err := r.RName.EncodeInto(w)
	if err != nil {
		return n1 + n2, err
	}
	for _, v := range []uint32{r.Serial, r.Refresh, r.Retry, r.Expire, r.Minimum} {
		if err := writeUint32(w, v); err != nil {
			return n1 + n2, err
		}
	}
	return n1 + n2 + 20, nil
}

func (r *SOA) Canonicalize() {
	r.MName.Canonicalize()
	r.RName.Canonicalize()
}

func (r *SOA) String() string {
	return fmt.Sprintf("%s %s %d %d %d %d %d", r.MName, r.RName, r.Serial, r.Refresh, r.Retry, r.Expire, r.Minimum)
}

// NAPTR supports regular-expression-based rewriting of domain names. [RFC 3403]
type NAPTR struct {
	Order       uint16
	Preference  uint16
	Flags       string
	Services    string
	Regexp      string
	Replacement name.Name
}

func parseNAPTR(c *Cursor, end int) (Rdata, error) {
	order, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse NAPTR: %w", err)
	}
	pref, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse NAPTR: %w", err)
	}
	flags, err := parseString(c)
	if err != nil {
		return nil, fmt.Errorf("parse NAPTR: %w", err)
	}
	services, err := parseString(c)
	if err != nil {
		return nil, fmt.Errorf("parse NAPTR: %w", err)
	}
	regexp, err := parseString(c)
	if err != nil {
		return nil, fmt.Errorf("parse NAPTR: %w", err)
	}
	replacement, err := c.readName(name.Prohibited)
	if err != nil {
		return nil, fmt.Errorf("parse NAPTR: %w", err)
	}
	return &NAPTR{
		Order: order, Preference: pref, Flags: flags, Services: services,
		Regexp: regexp, Replacement: replacement,
	}, nil
}

func (r *NAPTR) Type() RecordType { return TypeNAPTR }

func (r *NAPTR) EncodeInto(w io.Writer) (int, error) {
	if err := writeUint16(w, r.Order); err != nil {
		return 0, err
	}
	if err := writeUint16(w, r.Preference); err != nil {
		return 2, err
	}
	written := 4
	for _, s := range []string{r.Flags, r.Services, r.Regexp} {
		n, err := encodeStringInto(s, w)
		written += n
		if err != nil {
			return written, err
		}
	}
	n, err := r.Replacement.EncodeInto(w)
	return written + n, err
}

func (r *NAPTR) Canonicalize() { r.Replacement.Canonicalize() }

func (r *NAPTR) String() string {
	return fmt.Sprintf("%d %d %q %q %q %s", r.Order, r.Preference, r.Flags, r.Services, r.Regexp, r.Replacement)
}

func writeUint16(w io.Writer, v uint16) error {
	_, err := w.Write([]byte{byte(v >> 8), byte(v)})
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	_, err := w.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	return err
}
