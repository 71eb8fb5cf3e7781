package service

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// MD5HashVerifier implements ports.HashVerifier.
//
// The provider signs each callback with MD5 over a fixed, ordered field
// concatenation followed by the bank's pass key. MD5 is a compatibility
// requirement of the external protocol, not a security mechanism; the digest
// travels in the clear alongside the fields it covers.
type MD5HashVerifier struct{}

// NewMD5HashVerifier creates a new MD5HashVerifier.
func NewMD5HashVerifier() *MD5HashVerifier {
	return &MD5HashVerifier{}
}

// VerifyToken checks MD5(token + passKey).
func (v *MD5HashVerifier) VerifyToken(token, passKey, supplied string) bool {
	return digestMatches(token+passKey, supplied)
}

// VerifyUser checks MD5(userId + passKey).
func (v *MD5HashVerifier) VerifyUser(playerID int64, passKey, supplied string) bool {
	return digestMatches(strconv.FormatInt(playerID, 10)+passKey, supplied)
}

// VerifyBet checks the settlement digest
// MD5(userId + bet + win + isRoundFinished + roundId + gameId + passKey).
// bet and win must already be URL-decoded; isRoundFinished is normalized to
// the literal strings "true"/"false", or empty when absent.
func (v *MD5HashVerifier) VerifyBet(playerID int64, bet, win, isRoundFinished, roundID, gameID, passKey, supplied string) bool {
	concat := strconv.FormatInt(playerID, 10) +
		bet +
		win +
		NormalizeRoundFinished(isRoundFinished) +
		roundID +
		gameID +
		passKey
	return digestMatches(concat, supplied)
}

// VerifyRefund checks MD5(userId + casinoTransactionId + passKey).
func (v *MD5HashVerifier) VerifyRefund(playerID int64, casinoTxID, passKey, supplied string) bool {
	return digestMatches(strconv.FormatInt(playerID, 10)+casinoTxID+passKey, supplied)
}

// NormalizeRoundFinished maps the isRoundFinished parameter to the canonical
// "true"/"false" strings the digest is computed over. Absent values stay
// empty; common truthy/falsy spellings are coerced.
func NormalizeRoundFinished(val string) string {
	s := strings.ToLower(strings.TrimSpace(val))
	switch s {
	case "", "true", "false":
		return s
	case "1", "y", "yes", "t":
		return "true"
	case "0", "n", "no", "f":
		return "false"
	}
	return s
}

func digestMatches(concat, supplied string) bool {
	if supplied == "" {
		return false
	}
	sum := md5.Sum([]byte(concat))
	return strings.EqualFold(hex.EncodeToString(sum[:]), supplied)
}
