package rdata

import (
	"encoding/hex"
	"fmt"
	"io"
)

// DS holds a delegation signer digest of a child zone's DNSKEY. [RFC 4034]
type DS struct {
	KeyTag     uint16
	Algorithm  uint8
	DigestType uint8
	Digest     []byte
}

func parseDS(c *Cursor, end int) (Rdata, error) {
	keyTag, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse DS: %w", err)
	}
	alg, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse DS: %w", err)
	}
	digestType, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse DS: %w", err)
	}
	digest, err := c.readBytes(end - c.Offset)
	if err != nil {
		return nil, fmt.Errorf("parse DS: %w", err)
	}
	return &DS{KeyTag: keyTag, Algorithm: alg, DigestType: digestType, Digest: digest}, nil
}

func (r *DS) Type() RecordType { return TypeDS }

func (r *DS) EncodeInto(w io.Writer) (int, error) {
	if err := writeUint16(w, r.KeyTag); err != nil {
		return 0, err
	}
	if _, err := w.Write([]byte{r.Algorithm, r.DigestType}); err != nil {
		return 2, err
	}
	n, err := w.Write(r.Digest)
	return 4 + n, err
}

func (r *DS) Canonicalize() {}

func (r *DS) String() string {
	return fmt.Sprintf("%d %d %d %s", r.KeyTag, r.Algorithm, r.DigestType, hex.EncodeToString(r.Digest))
}

// SSHFP stores an SSH public key fingerprint. [RFC 4255]
type SSHFP struct {
	Algorithm   uint8
	FPType      uint8
	Fingerprint []byte
}

func parseSSHFP(c *Cursor, end int) (Rdata, error) {
	alg, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse SSHFP: %w", err)
	}
	fptype, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse SSHFP: %w", err)
	}
	fp, err := c.readBytes(end - c.Offset)
	if err != nil {
		return nil, fmt.Errorf("parse SSHFP: %w", err)
	}
	return &SSHFP{Algorithm: alg, FPType: fptype, Fingerprint: fp}, nil
}

func (r *SSHFP) Type() RecordType { return TypeSSHFP }

func (r *SSHFP) EncodeInto(w io.Writer) (int, error) {
	if _, err := w.Write([]byte{r.Algorithm, r.FPType}); err != nil {
		return 0, err
	}
	n, err := w.Write(r.Fingerprint)
	return 2 + n, err
}

func (r *SSHFP) Canonicalize() {}

func (r *SSHFP) String() string {
	return fmt.Sprintf("%d %d %s", r.Algorithm, r.FPType, hex.EncodeToString(r.Fingerprint))
}

// TLSA associates a TLS certificate with a domain name. [RFC 6698]
type TLSA struct {
	CertUsage    uint8
	Selector     uint8
	MatchingType uint8
	Data         []byte
}

func parseTLSA(c *Cursor, end int) (Rdata, error) {
	usage, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse TLSA: %w", err)
	}
	selector, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse TLSA: %w", err)
	}
	matching, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse TLSA: %w", err)
	}
	data, err := c.readBytes(end - c.Offset)
	if err != nil {
		return nil, fmt.Errorf("parse TLSA: %w", err)
	}
	return &TLSA{CertUsage: usage, Selector: selector, MatchingType: matching, Data: data}, nil
}

func (r *TLSA) Type() RecordType { return TypeTLSA }

func (r *TLSA) EncodeInto(w io.Writer) (int, error) {
	if _, err := w.Write([]byte{r.CertUsage, r.Selector, r.MatchingType}); err != nil {
		return 0, err
	}
	n, err := w.Write(r.Data)
	return 3 + n, err
}

func (r *TLSA) Canonicalize() {}

func (r *TLSA) String() string {
	return fmt.Sprintf("%d %d %d %s", r.CertUsage, r.Selector, r.MatchingType, hex.EncodeToString(r.Data))
}

// OPENPGPKEY stores an OpenPGP public key as a raw transparent blob. [RFC 7929]
type OPENPGPKEY struct {
	Key []byte
}

func parseOPENPGPKEY(c *Cursor, end int) (Rdata, error) {
	key, err := c.readBytes(end - c.Offset)
	if err != nil {
		return nil, fmt.Errorf("parse OPENPGPKEY: %w", err)
	}
	return &OPENPGPKEY{Key: key}, nil
}

func (r *OPENPGPKEY) Type() RecordType { return TypeOPENPGPKEY }

func (r *OPENPGPKEY) EncodeInto(w io.Writer) (int, error) {
	n, err := w.Write(r.Key)
	return n, err
}

func (r *OPENPGPKEY) Canonicalize() {}
func (r *OPENPGPKEY) String() string { return hex.EncodeToString(r.Key) }
