package service

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestMD5HashVerifier_VerifyToken(t *testing.T) {
	v := NewMD5HashVerifier()

	assert.True(t, v.VerifyToken("tok-1", "secret", md5hex("tok-1secret")))
	assert.False(t, v.VerifyToken("tok-1", "secret", md5hex("tok-1other")))
	assert.False(t, v.VerifyToken("tok-1", "secret", ""))
}

func TestMD5HashVerifier_VerifyToken_CaseInsensitive(t *testing.T) {
	v := NewMD5HashVerifier()

	digest := md5hex("tok-1secret")
	assert.True(t, v.VerifyToken("tok-1", "secret", strings.ToUpper(digest)))
}

func TestMD5HashVerifier_VerifyUser(t *testing.T) {
	v := NewMD5HashVerifier()

	assert.True(t, v.VerifyUser(7, "secret", md5hex("7secret")))
	assert.False(t, v.VerifyUser(8, "secret", md5hex("7secret")))
}

func TestMD5HashVerifier_VerifyBet(t *testing.T) {
	v := NewMD5HashVerifier()

	// userId + bet + win + isRoundFinished + roundId + gameId + passKey
	digest := md5hex("780|abc123" + "" + "true" + "r1" + "g1" + "secret")
	assert.True(t, v.VerifyBet(7, "80|abc123", "", "true", "r1", "g1", "secret", digest))

	// Truthy spellings normalize into the same digest input.
	assert.True(t, v.VerifyBet(7, "80|abc123", "", "1", "r1", "g1", "secret", digest))
	assert.True(t, v.VerifyBet(7, "80|abc123", "", "Yes", "r1", "g1", "secret", digest))

	// A single changed field breaks the digest.
	assert.False(t, v.VerifyBet(7, "81|abc123", "", "true", "r1", "g1", "secret", digest))
	assert.False(t, v.VerifyBet(7, "80|abc123", "", "false", "r1", "g1", "secret", digest))
}

// The digest is computed over the decoded wager value; hashing the
// still-encoded query string must fail.
func TestMD5HashVerifier_VerifyBet_DecodedValueOnly(t *testing.T) {
	v := NewMD5HashVerifier()

	encoded := "80%7Cabc123"
	decoded, err := url.QueryUnescape(encoded)
	assert.NoError(t, err)
	assert.Equal(t, "80|abc123", decoded)

	digest := md5hex("7" + decoded + "" + "" + "r1" + "g1" + "secret")
	assert.True(t, v.VerifyBet(7, decoded, "", "", "r1", "g1", "secret", digest))
	assert.False(t, v.VerifyBet(7, encoded, "", "", "r1", "g1", "secret", digest))
}

func TestMD5HashVerifier_VerifyRefund(t *testing.T) {
	v := NewMD5HashVerifier()

	assert.True(t, v.VerifyRefund(7, "abc123", "secret", md5hex("7abc123secret")))
	assert.False(t, v.VerifyRefund(7, "abc124", "secret", md5hex("7abc123secret")))
}

func TestNormalizeRoundFinished(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"true":  "true",
		"false": "false",
		"True":  "true",
		"FALSE": "false",
		"1":     "true",
		"0":     "false",
		"y":     "true",
		"n":     "false",
		"yes":   "true",
		"no":    "false",
		"t":     "true",
		"f":     "false",
		" true": "true",
		"maybe": "maybe",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRoundFinished(in), "input %q", in)
	}
}
