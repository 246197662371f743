package rdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordTypeRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		mnemonic string
		want     RecordType
	}{
		{"A", TypeA}, {"aaaa", TypeAAAA}, {"Mx", TypeMX}, {"CAA", TypeCAA},
	} {
		got, err := ParseRecordType(tc.mnemonic)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestParseRecordTypeUnknown(t *testing.T) {
	_, err := ParseRecordType("NOTAREALTYPE")
	assert.ErrorIs(t, err, ErrUnknownMnemonic)
}
