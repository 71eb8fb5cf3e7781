package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWagerParam(t *testing.T) {
	cents, ext, err := SplitWagerParam("80|abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(80), cents)
	assert.Equal(t, "abc123", ext)

	cents, ext, err = SplitWagerParam("0|round-final")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cents)
	assert.Equal(t, "round-final", ext)
}

func TestSplitWagerParam_Invalid(t *testing.T) {
	cases := []string{
		"",
		"80",
		"80|",
		"|abc123",
		"abc|abc123",
		"-5|abc123",
		"8.5|abc123",
	}
	for _, in := range cases {
		_, _, err := SplitWagerParam(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestSplitWagerParam_ExtraSeparatorStaysInID(t *testing.T) {
	cents, ext, err := SplitWagerParam("80|abc|123")
	require.NoError(t, err)
	assert.Equal(t, int64(80), cents)
	assert.Equal(t, "abc|123", ext)
}

func TestJournalEntry_IsTerminal(t *testing.T) {
	assert.False(t, (&JournalEntry{Status: JournalStatusPending}).IsTerminal())
	assert.True(t, (&JournalEntry{Status: JournalStatusProcessed}).IsTerminal())
	assert.True(t, (&JournalEntry{Status: JournalStatusFailed}).IsTerminal())
}

func TestDedupeKey_String(t *testing.T) {
	k := DedupeKey{PlayerID: 7, BankID: "bank1", Kind: JournalKindBet, ExternalTransactionID: "abc123"}
	assert.Equal(t, "7:bank1:bet:abc123", k.String())
}
