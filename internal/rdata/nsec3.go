package rdata

import (
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

var base32DNSSEC = base32.NewEncoding("0123456789ABCDEFGHIJKLMNOPQRSTUV").WithPadding(base32.NoPadding)

// NSEC3 authenticates denial of existence without allowing zone
// enumeration, by listing only a hash of the next owner name. [RFC 5155]
type NSEC3 struct {
	HashAlgorithm     uint8
	OptOut            bool
	Iterations        uint16
	Salt              []byte
	NextHashedOwner   []byte
	Types             []RecordType
}

func parseNSEC3(c *Cursor, rdlength, rdstart int) (Rdata, error) {
	hashAlg, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3: %w", err)
	}
	flags, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3: %w", err)
	}
	iterations, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3: %w", err)
	}
	saltLen, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3: %w", err)
	}
	var salt []byte
	if saltLen != 0 {
		salt, err = c.readBytes(int(saltLen))
		if err != nil {
			return nil, fmt.Errorf("parse NSEC3: %w", err)
		}
	}
	hashLen, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3: %w", err)
	}
	nextHashed, err := c.readBytes(int(hashLen))
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3: %w", err)
	}
	bytesRead := c.Offset - rdstart
	types, err := parseTypeBitmap(c, bytesRead, rdlength)
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3: %w", err)
	}
	return &NSEC3{
		HashAlgorithm: hashAlg, OptOut: flags&1 != 0, Iterations: iterations,
		Salt: salt, NextHashedOwner: nextHashed, Types: types,
	}, nil
}

func (r *NSEC3) Type() RecordType { return TypeNSEC3 }

func (r *NSEC3) flags() uint8 {
	if r.OptOut {
		return 1
	}
	return 0
}

func (r *NSEC3) EncodeInto(w io.Writer) (int, error) {
	if _, err := w.Write([]byte{r.HashAlgorithm, r.flags()}); err != nil {
		return 0, err
	}
	if err := writeUint16(w, r.Iterations); err != nil {
		return 2, err
	}
	written := 4
	if _, err := w.Write([]byte{byte(len(r.Salt))}); err != nil {
		return written, err
	}
	written++
	if len(r.Salt) > 0 {
		if _, err := w.Write(r.Salt); err != nil {
			return written, err
		}
		written += len(r.Salt)
	}
	if _, err := w.Write([]byte{byte(len(r.NextHashedOwner))}); err != nil {
		return written, err
	}
	written++
	if _, err := w.Write(r.NextHashedOwner); err != nil {
		return written, err
	}
	written += len(r.NextHashedOwner)
	n, err := encodeTypeBitmapInto(r.Types, w)
	return written + n, err
}

func (r *NSEC3) Canonicalize() {}

func (r *NSEC3) String() string {
	salt := "-"
	if len(r.Salt) > 0 {
		salt = strings.ToUpper(hex.EncodeToString(r.Salt))
	}
	names := make([]string, len(r.Types))
	for i, t := range r.Types {
		names[i] = t.String()
	}
	return fmt.Sprintf("%d %d %d %s %s %s",
		r.HashAlgorithm, r.flags(), r.Iterations, salt,
		base32DNSSEC.EncodeToString(r.NextHashedOwner), strings.Join(names, " "))
}

// NSEC3PARAM advertises the NSEC3 parameters used across a zone. [RFC 5155]
type NSEC3PARAM struct {
	HashAlgorithm uint8
	Flags         uint8
	Iterations    uint16
	Salt          []byte
}

func parseNSEC3PARAM(c *Cursor) (Rdata, error) {
	hashAlg, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3PARAM: %w", err)
	}
	flags, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3PARAM: %w", err)
	}
	iterations, err := c.readUint16()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3PARAM: %w", err)
	}
	saltLen, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse NSEC3PARAM: %w", err)
	}
	var salt []byte
	if saltLen != 0 {
		salt, err = c.readBytes(int(saltLen))
		if err != nil {
			return nil, fmt.Errorf("parse NSEC3PARAM: %w", err)
		}
	}
	return &NSEC3PARAM{HashAlgorithm: hashAlg, Flags: flags, Iterations: iterations, Salt: salt}, nil
}

func (r *NSEC3PARAM) Type() RecordType { return TypeNSEC3PARAM }

func (r *NSEC3PARAM) EncodeInto(w io.Writer) (int, error) {
	if _, err := w.Write([]byte{r.HashAlgorithm, r.Flags}); err != nil {
		return 0, err
	}
	if err := writeUint16(w, r.Iterations); err != nil {
		return 2, err
	}
	if _, err := w.Write([]byte{byte(len(r.Salt))}); err != nil {
		return 4, err
	}
	n, err := w.Write(r.Salt)
	return 5 + n, err
}

func (r *NSEC3PARAM) Canonicalize() {}

func (r *NSEC3PARAM) String() string {
	salt := "-"
	if len(r.Salt) > 0 {
		salt = strings.ToUpper(hex.EncodeToString(r.Salt))
	}
	return fmt.Sprintf("%d 0 %d %s", r.HashAlgorithm, r.Iterations, salt)
}
