package rdata

import (
	"fmt"
	"io"
	"math"
)

// LOC encodes a geographic position. [RFC 1876]
type LOC struct {
	Size                float64 // meters
	HorizontalPrecision float64 // meters
	VerticalPrecision   float64 // meters
	Latitude            int32   // thousandths of an arc-second, 0 at equator, negative south
	Longitude           int32   // thousandths of an arc-second, 0 at prime meridian, negative west
	Altitude            int32   // centimeters relative to the reference spheroid
}

const locVersion = 0

func decodeSizeOrPrecision(b byte) float64 {
	base := int(b >> 4)
	exp := int(b & 0x0f)
	// base*10^exp is in centimeters; the struct fields hold meters.
	return float64(base) * math.Pow(10, float64(exp)) / 100
}

func encodeSizeOrPrecision(meters float64) byte {
	// Encode as base*10^exp centimeters, matching the RFC 1876 Appendix A
	// algorithm: choose the smallest exponent that brings base into [0,9].
	cm := meters * 100
	if cm < 0 {
		cm = 0
	}
	exp := 0
	base := cm
	for base >= 10 {
		base /= 10
		exp++
	}
	return byte(int(base)<<4 | exp)
}

func parseLOC(c *Cursor) (Rdata, error) {
	version, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse LOC: %w", err)
	}
	if version != locVersion {
		return nil, fmt.Errorf("parse LOC: unsupported version %d, must be 0", version)
	}
	size, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse LOC: %w", err)
	}
	hp, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse LOC: %w", err)
	}
	vp, err := c.readByte()
	if err != nil {
		return nil, fmt.Errorf("parse LOC: %w", err)
	}
	lat, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse LOC: %w", err)
	}
	lon, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse LOC: %w", err)
	}
	alt, err := c.readUint32()
	if err != nil {
		return nil, fmt.Errorf("parse LOC: %w", err)
	}
	return &LOC{
		Size: decodeSizeOrPrecision(size), HorizontalPrecision: decodeSizeOrPrecision(hp),
		VerticalPrecision: decodeSizeOrPrecision(vp),
		Latitude:          int32(lat - (1 << 31)),
		Longitude:         int32(lon - (1 << 31)),
		Altitude:          int32(alt) - 10000000,
	}, nil
}

func (r *LOC) Type() RecordType { return TypeLOC }

func (r *LOC) EncodeInto(w io.Writer) (int, error) {
	buf := []byte{
		locVersion,
		encodeSizeOrPrecision(r.Size),
		encodeSizeOrPrecision(r.HorizontalPrecision),
		encodeSizeOrPrecision(r.VerticalPrecision),
	}
	if _, err := w.Write(buf); err != nil {
		return 0, err
	}
	for _, v := range []uint32{
		uint32(r.Latitude) + (1 << 31),
		uint32(r.Longitude) + (1 << 31),
		uint32(r.Altitude + 10000000),
	} {
		if err := writeUint32(w, v); err != nil {
			return 4, err
		}
	}
	return 16, nil
}

func (r *LOC) Canonicalize() {}

// formatAngle renders a signed arc-thousandths-of-a-second value as
// "deg mm ss.sss DIR", following RFC 1876 Appendix A.
func formatAngle(v int32, positive, negative string) string {
	dir := positive
	if v < 0 {
		dir = negative
		v = -v
	}
	total := uint32(v)
	deg := total / (1000 * 60 * 60)
	rem := total % (1000 * 60 * 60)
	min := rem / (1000 * 60)
	rem = rem % (1000 * 60)
	sec := float64(rem) / 1000.0
	return fmt.Sprintf("%d %02d %06.3f %s", deg, min, sec, dir)
}

func (r *LOC) String() string {
	lat := formatAngle(r.Latitude, "N", "S")
	lon := formatAngle(r.Longitude, "E", "W")
	altm := float64(r.Altitude) / 100.0
	return fmt.Sprintf("%s %s %.2fm %.2fm %.2fm %.2fm",
		lat, lon, altm, r.Size, r.HorizontalPrecision, r.VerticalPrecision)
}
