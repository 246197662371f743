package rdata

import (
	"encoding/base64"
	"fmt"
	"io"
)

// HINFO identifies host CPU and OS. [RFC 1035]
type HINFO struct {
	CPU string
	OS  string
}

func parseHINFO(c *Cursor, end int) (Rdata, error) {
	cpu, err := parseString(c)
	if err != nil {
		return nil, fmt.Errorf("parse HINFO: %w", err)
	}
	os, err := parseString(c)
	if err != nil {
		return nil, fmt.Errorf("parse HINFO: %w", err)
	}
	return &HINFO{CPU: cpu, OS: os}, nil
}

func (r *HINFO) Type() RecordType { return TypeHINFO }

func (r *HINFO) EncodeInto(w io.Writer) (int, error) {
	n1, err := encodeStringInto(r.CPU, w)
	if err != nil {
		return n1, err
	}
	n2, err := encodeStringInto(r.OS, w)
	return n1 + n2, err
}

func (r *HINFO) Canonicalize() {}
func (r *HINFO) String() string { return fmt.Sprintf("%q %q", r.CPU, r.OS) }

// TXT carries one or more free-form character strings. [RFC 1035]
type TXT struct {
	Strings []string
}

func parseTXT(c *Cursor, end int) (Rdata, error) {
	var strs []string
	for c.Offset < end {
		s, err := parseString(c)
		if err != nil {
			return nil, fmt.Errorf("parse TXT: %w", err)
		}
		strs = append(strs, s)
	}
	return &TXT{Strings: strs}, nil
}

func (r *TXT) Type() RecordType { return TypeTXT }

func (r *TXT) EncodeInto(w io.Writer) (int, error) {
	written := 0
	for _, s := range r.Strings {
		n, err := encodeStringInto(s, w)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (r *TXT) Canonicalize() {}

func (r *TXT) String() string {
	out := ""
	for i, s := range r.Strings {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%q", s)
	}
	return out
}

// CERT stores a public key certificate. [RFC 4398]
type CERT struct {
	CertType  uint16
	KeyTag    uint16
	Algorithm uint8
	Cert      []byte
}

func parseCERT(c *Cursor, end int) (Rdata, error) {
	certType, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse CERT: %w", err)
	}
	keyTag, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse CERT: %w", err)
	}
	alg, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse CERT: %w", err)
	}
	cert, err := c.readBytes(end - c.Offset)
	if err != nil {
		return nil, fmt.Errorf("parse CERT: %w", err)
	}
	return &CERT{CertType: certType, KeyTag: keyTag, Algorithm: alg, Cert: cert}, nil
}

func (r *CERT) Type() RecordType { return TypeCERT }

func (r *CERT) EncodeInto(w io.Writer) (int, error) {
	if err := writeUint16(w, r.CertType); err != nil {
		return 0, err
	}
	if err := writeUint16(w, r.KeyTag); err != nil {
		return 2, err
	}
	if _, err := w.Write([]byte{r.Algorithm}); err != nil {
		return 4, err
	}
	n, err := w.Write(r.Cert)
	return 5 + n, err
}

func (r *CERT) Canonicalize() {}
func (r *CERT) String() string {
	return fmt.Sprintf("%d %d %d %s", r.CertType, r.KeyTag, r.Algorithm, base64.StdEncoding.EncodeToString(r.Cert))
}
