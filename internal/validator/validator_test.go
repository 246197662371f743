package validator

import (
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/dnsscience/stubresolve/internal/dnssec"
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

// fixture mirrors the RFC 6605 §6.1 vector used by the DNSSEC engine tests,
// wired up through the answer-section shape the validator driver consumes.
func fixture(t *testing.T) ([]*message.NonOptRecord, []*message.NonOptRecord) {
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
	rrsigRecord, err := message.NewNonOptRecord(owner, rdata.TypeRRSIG, rdata.ClassIN, 3600, &rdata.RRSIG{
		TypeCovered: rdata.TypeA, Algorithm: rdata.AlgorithmECDSAP256SHA256, Labels: 3,
		OriginalTTL: 3600, SignatureExpiration: uint32(expiration.Unix()), SignatureInception: uint32(inception.Unix()),
		KeyTag: 55648, SignerName: signer,
		Signature: mustB64(t, "qx6wLYqmh+l9oCKTN6qIc+bw6ya+KJ8oMz0YP107epXAyGmt+3SNruPFKG7tZoLBLlUzGGus7ZwmwWep666VCw=="),
	})
	require.NoError(t, err)

	genuineKey, err := message.NewNonOptRecord(signer, rdata.TypeDNSKEY, rdata.ClassIN, 3600, &rdata.DNSKEY{
		Zone: true, SecureEntryPoint: true, Algorithm: rdata.AlgorithmECDSAP256SHA256,
		Key: mustB64(t, "GojIhhXUN/u4v54ZQqGSnyhWJwaubCvTmeexv7bR6edbkrSqQpF64cYbcB7wNcP+e+MAnLr+Wi9xMWyQLc8NAA=="),
	})
	require.NoError(t, err)

	answer := []*message.NonOptRecord{aRecord, rrsigRecord}
	return answer, []*message.NonOptRecord{genuineKey}
}

func TestValidateSucceedsWithCoveringRRSIGAndKey(t *testing.T) {
	answer, keys := fixture(t)
	err := Validate(answer, rdata.TypeA, keys, dnssec.Options{IgnoreTime: true})
	assert.NoError(t, err)
}

// forgeKeyTagCollision builds a second DNSKEY that shares owner, algorithm
// and key tag with the genuine key but differs in key bytes, simulating a
// key-tag collision the validator must not stop early on. The RFC 4034
// App. B key tag is a plain positional-weight checksum over the RDATA
// bytes, so transposing two key bytes that fall on the same weight (both
// at an even offset from the RDATA start, here indices 0 and 2 of the key,
// landing at RDATA offsets 4 and 6) changes the key material without
// changing the checksum.
func forgeKeyTagCollision(t *testing.T, genuine *message.NonOptRecord) *message.NonOptRecord {
	t.Helper()
	orig := genuine.Data.(*rdata.DNSKEY)
	forged := &rdata.DNSKEY{Zone: true, SecureEntryPoint: orig.SecureEntryPoint, Algorithm: orig.Algorithm, Key: append([]byte(nil), orig.Key...)}
	forged.Key[0], forged.Key[2] = forged.Key[2], forged.Key[0]
	require.Equal(t, orig.KeyTag(), forged.KeyTag(), "test fixture must preserve the key tag to exercise a collision")

	rec, err := message.NewNonOptRecord(genuine.Owner, rdata.TypeDNSKEY, rdata.ClassIN, 3600, forged)
	require.NoError(t, err)
	return rec
}

func TestValidateTriesAllKeyTagCollisionCandidates(t *testing.T) {
	answer, keys := fixture(t)
	forged := forgeKeyTagCollision(t, keys[0])

	// Whichever order the collision is presented in, the validator must
	// keep trying until the genuine key succeeds.
	err := Validate(answer, rdata.TypeA, []*message.NonOptRecord{forged, keys[0]}, dnssec.Options{IgnoreTime: true})
	assert.NoError(t, err)

	err = Validate(answer, rdata.TypeA, []*message.NonOptRecord{keys[0], forged}, dnssec.Options{IgnoreTime: true})
	assert.NoError(t, err)
}

func TestValidateFailsWhenNoKeyVerifies(t *testing.T) {
	answer, keys := fixture(t)
	forged := forgeKeyTagCollision(t, keys[0])

	err := Validate(answer, rdata.TypeA, []*message.NonOptRecord{forged}, dnssec.Options{IgnoreTime: true})
	assert.Error(t, err)
}

func TestValidateNoRecordsOfQueriedType(t *testing.T) {
	answer, keys := fixture(t)
	err := Validate(answer, rdata.TypeAAAA, keys, dnssec.Options{IgnoreTime: true})
	assert.ErrorIs(t, err, ErrNoCandidateRecords)
}
