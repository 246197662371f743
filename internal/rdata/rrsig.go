package rdata

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/dnsscience/stubresolve/internal/name"
)

// RRSIG covers one RRset with a digital signature. [RFC 4034]
type RRSIG struct {
	TypeCovered         RecordType
	Algorithm           Algorithm
	Labels              uint8
	OriginalTTL         uint32
	SignatureExpiration uint32
	SignatureInception  uint32
	KeyTag              uint16
	SignerName          name.Name
	Signature           []byte
}

func parseRRSIG(c *Cursor, end int) (Rdata, error) {
	typeCovered, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	alg, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	labels, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	originalTTL, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	expiration, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	inception, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	keyTag, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	signerName, err := c.readName(name.Prohibited)
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	sig, err := c.readBytes(end - c.Offset)
	if err != nil {
		return nil, fmt.Errorf("parse RRSIG: %w", err)
	}
	return &RRSIG{
		TypeCovered: RecordType(typeCovered), Algorithm: Algorithm(alg), Labels: labels,
		OriginalTTL: originalTTL, SignatureExpiration: expiration, SignatureInception: inception,
		KeyTag: keyTag, SignerName: signerName, Signature: sig,
	}, nil
}

func (r *RRSIG) Type() RecordType { return TypeRRSIG }

func (r *RRSIG) EncodeInto(w io.Writer) (int, error) {
	n, err := r.encodeWithoutSignature(w)
	if err != nil {
		return n, err
	}
	m, err := w.Write(r.Signature)
	return n + m, err
}

// EncodeIntoWithoutSignature writes the RRSIG RDATA using the same layout as
// EncodeInto but omitting the trailing signature field, as required to
// reconstruct the data that was originally signed.
func (r *RRSIG) EncodeIntoWithoutSignature(w io.Writer) (int, error) {
	return r.encodeWithoutSignature(w)
}

func (r *RRSIG) encodeWithoutSignature(w io.Writer) (int, error) {
	if err := writeUint16(w, uint16(r.TypeCovered)); err != nil {
		return 0, err
	}
	if _, err := w.Write([]byte{byte(r.Algorithm), r.Labels}); err != nil {
		return 2, err
	}
	for _, v := range []uint32{r.OriginalTTL, r.SignatureExpiration, r.SignatureInception} {
		if err := writeUint32(w, v); err != nil {
			return 4, err
		}
	}
	if err := writeUint16(w, r.KeyTag); err != nil {
		return 16, err
	}
	n, err := r.SignerName.EncodeInto(w)
	return 18 + n, err
}

func (r *RRSIG) Canonicalize() { r.SignerName.Canonicalize() }

func (r *RRSIG) String() string {
	return fmt.Sprintf("%s %d %d %d %d %d %d %s %s",
		r.TypeCovered, r.Algorithm, r.Labels, r.OriginalTTL, r.SignatureExpiration,
		r.SignatureInception, r.KeyTag, r.SignerName, base64.StdEncoding.EncodeToString(r.Signature))
}
