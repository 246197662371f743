package message

import (
	"bytes"
	"net"
	"testing"

	"github.com/dnsscience/stubresolve/internal/name"
	"github.com/dnsscience/stubresolve/internal/rdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeScenario(t *testing.T) {
	h := Header{ID: 0x1234, QR: false, Opcode: rdata.OpcodeQUERY, Flags: HeaderFlags{RD: true}, QDCount: 1}
	var buf bytes.Buffer
	n, err := h.encodeInto(&buf)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, []byte{
		0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}, buf.Bytes())
}

func TestHeaderRAUsesBit7OnBothPaths(t *testing.T) {
	h := Header{Flags: HeaderFlags{RA: true}}
	var buf bytes.Buffer
	_, err := h.encodeInto(&buf)
	require.NoError(t, err)

	parsed, err := parseHeader(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, parsed.Flags.RA)
	assert.False(t, parsed.Flags.RD)
}

func buildAQuestion(t *testing.T, qname string) Question {
	t.Helper()
	n, err := name.FromASCII(qname)
	require.NoError(t, err)
	return Question{QName: n, QType: rdata.TypeA, QClass: rdata.ClassIN}
}

func TestMessageRoundTripSimpleAnswer(t *testing.T) {
	owner, err := name.FromASCII("www.example.com")
	require.NoError(t, err)
	rec, err := NewNonOptRecord(owner, rdata.TypeA, rdata.ClassIN, 300, &rdata.A{Address: net.IPv4(192, 0, 2, 1)})
	require.NoError(t, err)

	m := &Message{
		Header:    Header{ID: 0xabcd, QR: true, Flags: HeaderFlags{RD: true, RA: true}, QDCount: 1, ANCount: 1},
		Questions: []Question{buildAQuestion(t, "www.example.com")},
		Answer:    []Record{rec},
	}

	var buf bytes.Buffer
	_, err = m.EncodeInto(&buf)
	require.NoError(t, err)

	parsed, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint16(0xabcd), parsed.Header.ID)
	assert.True(t, parsed.Header.QR)
	assert.True(t, parsed.Header.Flags.RA)
	require.Len(t, parsed.Answer, 1)

	got, ok := parsed.Answer[0].(*NonOptRecord)
	require.True(t, ok)
	assert.Equal(t, "www.example.com.", got.Owner.String())
	a, ok := got.Data.(*rdata.A)
	require.True(t, ok)
	assert.True(t, net.IPv4(192, 0, 2, 1).Equal(a.Address))
}

func TestMessageTruncatedReturnsError(t *testing.T) {
	h := Header{Flags: HeaderFlags{TC: true}}
	var buf bytes.Buffer
	_, err := h.encodeInto(&buf)
	require.NoError(t, err)

	_, err = Parse(buf.Bytes())
	assert.ErrorIs(t, err, ErrTruncatedMessage)
}

func TestEDNSCombinedRCodePromotedAfterParsing(t *testing.T) {
	m := &Message{
		Header: Header{QR: true, RCode: rdata.RCode(0x1)},
		Additional: []Record{&OptRecord{
			PayloadSize: 4096, ExtRCodeHigh: 0x1, Options: map[rdata.OptionCode][]byte{},
		}},
	}
	m.Header.ARCount = 1

	var buf bytes.Buffer
	_, err := m.EncodeInto(&buf)
	require.NoError(t, err)

	parsed, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, rdata.RCode(0x11), parsed.Header.RCode)
}

func TestOptRecordOwnerMustBeRoot(t *testing.T) {
	owner, err := name.FromASCII("example.com")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = owner.EncodeInto(&buf)
	require.NoError(t, err)
	buf.Write([]byte{0x00, 0x29}) // TYPE=OPT
	buf.Write([]byte{0x10, 0x00}) // payload size
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00}) // ext-rcode/version/z
	buf.Write([]byte{0x00, 0x00})             // rdlength=0

	offset := 0
	_, err = parseRecord(buf.Bytes(), &offset)
	assert.ErrorIs(t, err, ErrOptOwnerNotRoot)
}
