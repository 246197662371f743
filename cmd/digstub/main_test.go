package main

import (
	"testing"

	"github.com/dnsscience/stubresolve/internal/rdata"
	"github.com/dnsscience/stubresolve/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsBasic(t *testing.T) {
	o, err := parseArgs([]string{"example.com", "MX", "@8.8.8.8", "-p", "5353", "+do"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", o.domain)
	assert.Equal(t, rdata.TypeMX, o.qtype)
	assert.Equal(t, "8.8.8.8", o.nameserver)
	assert.Equal(t, "5353", o.port)
	assert.True(t, o.do)
}

func TestParseArgsDefaultsToA(t *testing.T) {
	o, err := parseArgs([]string{"example.com"})
	require.NoError(t, err)
	assert.Equal(t, rdata.TypeA, o.qtype)
}

func TestParseArgsReverseLookupIPv4(t *testing.T) {
	o, err := parseArgs([]string{"-x", "192.0.2.1"})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0.192.in-addr.arpa", o.domain)
	assert.Equal(t, rdata.TypePTR, o.qtype)
}

func TestParseArgsTransportKindSelection(t *testing.T) {
	o, err := parseArgs([]string{"example.com", "+tls"})
	require.NoError(t, err)
	assert.Equal(t, transport.KindTLS, o.transportKind())

	o, err = parseArgs([]string{"example.com", "+https-get"})
	require.NoError(t, err)
	assert.Equal(t, transport.KindHTTPSGet, o.transportKind())
}

func TestParseArgsRejectsUnknownOption(t *testing.T) {
	_, err := parseArgs([]string{"example.com", "+bogus"})
	assert.Error(t, err)
}

func TestParseArgsRequiresDomain(t *testing.T) {
	_, err := parseArgs([]string{"+trace"})
	assert.Error(t, err)
}

func TestReverseNameIPv6(t *testing.T) {
	rev, err := reverseName("2001:db8::1")
	require.NoError(t, err)
	assert.Contains(t, rev, "ip6.arpa")
}
