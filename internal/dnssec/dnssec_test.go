package dnssec

import (
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustB64(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestSerialLessRFC1982(t *testing.T) {
	assert.True(t, serialLess(1, 2))
	assert.False(t, serialLess(2, 1))
	assert.False(t, serialLess(5, 5))
	// antipodal values (exactly 2^31 apart) are asymmetric/undefined by
	// RFC 1982; this implementation treats neither as less than the other.
	a, b := uint32(0), uint32(1<<31)
	assert.False(t, serialLess(a, b))
	assert.False(t, serialLess(b, a))
}

// rfc6605Fixture builds the RFC 6605 §6.1 validation vector named in the
// concrete test scenarios: an "example.net." ECDSA P-256/SHA-256 DNSKEY
// signing a single "www.example.net. A" record.
func rfc6605Fixture(t *testing.T) (*RrSet, *message.NonOptRecord, *message.NonOptRecord) {
	t.Helper()

	owner, err := name.FromASCII("www.example.net")
	require.NoError(t, err)
	signer, err := name.FromASCII("example.net")
	require.NoError(t, err)

	aRecord, err := message.NewNonOptRecord(owner, rdata.TypeA, rdata.ClassIN, 3600,
		&rdata.A{Address: net.ParseIP("192.0.2.1")})
	require.NoError(t, err)

	inception := time.Date(2010, 8, 12, 10, 4, 39, 0, time.UTC)
	expiration := time.Date(2010, 9, 9, 10, 4, 39, 0, time.UTC)

	rrsigData := &rdata.RRSIG{
		TypeCovered:         rdata.TypeA,
		Algorithm:           rdata.AlgorithmECDSAP256SHA256,
		Labels:              3,
		OriginalTTL:         3600,
		SignatureExpiration: uint32(expiration.Unix()),
		SignatureInception:  uint32(inception.Unix()),
		KeyTag:              55648,
		SignerName:          signer,
		Signature: mustB64(t, "qx6wLYqmh+l9oCKTN6qIc+bw6ya+KJ8oMz0YP107epXAyGmt+3SNruPFKG7tZoLBLlUzGGus7ZwmwWep666VCw=="),
	}
	rrsigRecord, err := message.NewNonOptRecord(owner, rdata.TypeRRSIG, rdata.ClassIN, 3600, rrsigData)
	require.NoError(t, err)

	dnskeyData := &rdata.DNSKEY{
		Zone:             true,
		SecureEntryPoint: true,
		Algorithm:        rdata.AlgorithmECDSAP256SHA256,
		Key:              mustB64(t, "GojIhhXUN/u4v54ZQqGSnyhWJwaubCvTmeexv7bR6edbkrSqQpF64cYbcB7wNcP+e+MAnLr+Wi9xMWyQLc8NAA=="),
	}
	dnskeyRecord, err := message.NewNonOptRecord(signer, rdata.TypeDNSKEY, rdata.ClassIN, 3600, dnskeyData)
	require.NoError(t, err)

	rrset, err := NewRrSet([]*message.NonOptRecord{aRecord})
	require.NoError(t, err)

	return rrset, rrsigRecord, dnskeyRecord
}

func TestValidateECDSAP256Vector(t *testing.T) {
	rrset, rrsigRecord, dnskeyRecord := rfc6605Fixture(t)
	err := Validate(rrset, rrsigRecord, dnskeyRecord, Options{IgnoreTime: true})
	require.NoError(t, err)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	rrset, rrsigRecord, dnskeyRecord := rfc6605Fixture(t)
	dnskeyRecord.Data.(*rdata.DNSKEY).Key[0] ^= 0xff
	require.NoError(t, dnskeyRecord.RefreshRDATACache())

	err := Validate(rrset, rrsigRecord, dnskeyRecord, Options{IgnoreTime: true})
	assert.Error(t, err)
}

func TestValidateExpired(t *testing.T) {
	rrset, rrsigRecord, dnskeyRecord := rfc6605Fixture(t)
	err := Validate(rrset, rrsigRecord, dnskeyRecord, Options{Now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidateNotYetValid(t *testing.T) {
	rrset, rrsigRecord, dnskeyRecord := rfc6605Fixture(t)
	err := Validate(rrset, rrsigRecord, dnskeyRecord, Options{Now: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, ErrNotYetValid)
}

func TestValidateDNSKEYNotZoneKeyRejected(t *testing.T) {
	rrset, rrsigRecord, dnskeyRecord := rfc6605Fixture(t)
	dnskeyRecord.Data.(*rdata.DNSKEY).Zone = false
	// The flags feed the key tag, so re-point the RRSIG at the altered key
	// to reach the ZONE check, which runs after the key-tag check.
	rrsigRecord.Data.(*rdata.RRSIG).KeyTag = dnskeyRecord.Data.(*rdata.DNSKEY).KeyTag()
	err := Validate(rrset, rrsigRecord, dnskeyRecord, Options{IgnoreTime: true})
	assert.ErrorIs(t, err, ErrDNSKEYNotZoneKey)
}

func TestClampTTLScenario(t *testing.T) {
	// ttls {300,600}, rrsig original_ttl=1000, rrsig record ttl=500,
	// expiration-now=450: clamp is the minimum, 300.
	got := clampTTL(300, 1000, 450, 0, 500)
	assert.Equal(t, uint32(300), got)
}

func TestRrSetRejectsHeterogeneousRecords(t *testing.T) {
	a, err := name.FromASCII("a.example")
	require.NoError(t, err)
	b, err := name.FromASCII("b.example")
	require.NoError(t, err)
	r1, err := message.NewNonOptRecord(a, rdata.TypeA, rdata.ClassIN, 300, &rdata.A{Address: net.ParseIP("192.0.2.1")})
	require.NoError(t, err)
	r2, err := message.NewNonOptRecord(b, rdata.TypeA, rdata.ClassIN, 300, &rdata.A{Address: net.ParseIP("192.0.2.2")})
	require.NoError(t, err)

	_, err = NewRrSet([]*message.NonOptRecord{r1, r2})
	assert.ErrorIs(t, err, ErrInvalidRrSet)
}

func TestRrSetRejectsEmpty(t *testing.T) {
	_, err := NewRrSet(nil)
	assert.ErrorIs(t, err, ErrEmptyRrset)
}
