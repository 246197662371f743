package resolver

import (
	"net"
	"strings"
	"testing"

	"github.com/dnsscience/stubresolve/internal/message"
	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustName(t *testing.T, s string) name.Name {
	t.Helper()
	n, err := name.FromASCII(s)
	require.NoError(t, err)
	return n
}

func nonOpt(t *testing.T, owner name.Name, rtype rdata.RecordType, data rdata.Rdata) *message.NonOptRecord {
	t.Helper()
	r, err := message.NewNonOptRecord(owner, rtype, rdata.ClassIN, 3600, data)
	require.NoError(t, err)
	return r
}

func TestClassifyAnswerFound(t *testing.T) {
	owner := mustName(t, "www.example.com")
	reply := &message.Message{
		Answer: []message.Record{nonOpt(t, owner, rdata.TypeA, &rdata.A{Address: net.ParseIP("192.0.2.1")})},
	}
	v, _ := classify(reply, owner, rdata.TypeA, FamilyIPv6)
	assert.Equal(t, verdictAnswer, v)
}

func TestClassifyGlueReferral(t *testing.T) {
	qname := mustName(t, "www.example.com")
	zone := mustName(t, "example.com")
	nsName := mustName(t, "ns1.example.com")
	reply := &message.Message{
		Authority:  []message.Record{nonOpt(t, zone, rdata.TypeNS, &rdata.NS{Nsdname: nsName})},
		Additional: []message.Record{nonOpt(t, nsName, rdata.TypeA, &rdata.A{Address: net.ParseIP("198.51.100.1")})},
	}
	v, next := classify(reply, qname, rdata.TypeA, FamilyIPv6)
	require.Equal(t, verdictGlueReferral, v)
	assert.Equal(t, "198.51.100.1:53", next.nameserver)
	assert.True(t, next.zone.Equal(zone))
}

func TestClassifyGlueReferralPrefersConfiguredFamily(t *testing.T) {
	qname := mustName(t, "www.example.com")
	zone := mustName(t, "example.com")
	nsName := mustName(t, "ns1.example.com")
	reply := &message.Message{
		Authority: []message.Record{nonOpt(t, zone, rdata.TypeNS, &rdata.NS{Nsdname: nsName})},
		Additional: []message.Record{
			nonOpt(t, nsName, rdata.TypeA, &rdata.A{Address: net.ParseIP("198.51.100.1")}),
			nonOpt(t, nsName, rdata.TypeAAAA, &rdata.AAAA{Address: net.ParseIP("2001:db8::1")}),
		},
	}

	v, next := classify(reply, qname, rdata.TypeA, FamilyIPv4)
	require.Equal(t, verdictGlueReferral, v)
	assert.Equal(t, "198.51.100.1:53", next.nameserver)

	v, next = classify(reply, qname, rdata.TypeA, FamilyIPv6)
	require.Equal(t, verdictGlueReferral, v)
	assert.Equal(t, "[2001:db8::1]:53", next.nameserver)
}

func TestClassifyNoGlueReferral(t *testing.T) {
	qname := mustName(t, "www.example.com")
	zone := mustName(t, "example.com")
	nsName := mustName(t, "ns1.otherdomain.net")
	reply := &message.Message{
		Authority: []message.Record{nonOpt(t, zone, rdata.TypeNS, &rdata.NS{Nsdname: nsName})},
	}
	v, next := classify(reply, qname, rdata.TypeA, FamilyIPv6)
	require.Equal(t, verdictNoGlueReferral, v)
	assert.True(t, next.nsName.Equal(nsName))
}

func TestClassifyTerminalEmpty(t *testing.T) {
	reply := &message.Message{}
	v, _ := classify(reply, mustName(t, "www.example.com"), rdata.TypeA, FamilyIPv6)
	assert.Equal(t, verdictTerminal, v)
}

func TestScrubOutOfBailiwick(t *testing.T) {
	zone := mustName(t, "example.com")
	inZone := mustName(t, "www.example.com")
	outOfZone := mustName(t, "evil.attacker.net")

	reply := &message.Message{
		Answer: []message.Record{
			nonOpt(t, inZone, rdata.TypeA, &rdata.A{Address: net.ParseIP("192.0.2.1")}),
			nonOpt(t, outOfZone, rdata.TypeA, &rdata.A{Address: net.ParseIP("192.0.2.2")}),
		},
	}
	scrubOutOfBailiwick(reply, zone)
	require.Len(t, reply.Answer, 1)
	kept := reply.Answer[0].(*message.NonOptRecord)
	assert.True(t, kept.Owner.Equal(inZone))
}

func TestRandomizeCasePreservesNameIgnoringCase(t *testing.T) {
	n := mustName(t, "example.com")
	mixed := randomizeCase(n)
	assert.True(t, mixed.Equal(n))
	assert.True(t, strings.EqualFold(mixed.String(), n.String()))
}
