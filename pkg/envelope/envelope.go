// Package envelope renders the provider's EXTSYSTEM wire documents.
//
// Every response is three blocks: an echo of selected request fields, a
// timestamp, and a result block. The codec is a pure function of
// (kind, fields); it performs no I/O and knows nothing about the ledger.
package envelope

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

	// timeLayout matches the provider's sample responses, e.g.
	// "03 Mar 2023 17:55:21" (UTC).
	timeLayout = "02 Jan 2006 15:04:05"
)

// Field is one echoed request tag.
type Field struct {
	Tag   string
	Value string
}

// Echo is a typed per-endpoint request-echo block. Each implementation
// renders its fields in a fixed order with fixed tag names; there is no
// runtime map iteration.
type Echo interface {
	Fields() []Field
}

// TokenEcho echoes token-authenticated callbacks (authenticate, bonusRelease).
type TokenEcho struct {
	Token string
	Hash  string
}

func (e TokenEcho) Fields() []Field {
	return []Field{{"TOKEN", e.Token}, {"HASH", e.Hash}}
}

// UserEcho echoes userId-authenticated callbacks (account).
type UserEcho struct {
	UserID string
	Hash   string
}

func (e UserEcho) Fields() []Field {
	return []Field{{"USERID", e.UserID}, {"HASH", e.Hash}}
}

// BalanceEcho echoes the balance callback, which per the provider example
// carries USERID only.
type BalanceEcho struct {
	UserID string
}

func (e BalanceEcho) Fields() []Field {
	return []Field{{"USERID", e.UserID}}
}

// BetEcho echoes the betResult callback. Bet and Win hold the URL-decoded
// parameter values.
type BetEcho struct {
	UserID          string
	Bet             string
	Win             string
	IsRoundFinished string
	RoundID         string
	GameID          string
	Hash            string
	GameSessionID   string
	ClientType      string
}

func (e BetEcho) Fields() []Field {
	return []Field{
		{"USERID", e.UserID},
		{"BET", e.Bet},
		{"WIN", e.Win},
		{"ISROUNDFINISHED", e.IsRoundFinished},
		{"ROUNDID", e.RoundID},
		{"GAMEID", e.GameID},
		{"HASH", e.Hash},
		{"GAMESESSIONID", e.GameSessionID},
		{"NEGATIVEBET", "0"},
		{"CLIENTTYPE", e.ClientType},
	}
}

// RefundEcho echoes the refundBet callback.
type RefundEcho struct {
	UserID              string
	CasinoTransactionID string
	Hash                string
}

func (e RefundEcho) Fields() []Field {
	return []Field{
		{"USERID", e.UserID},
		{"CASINOTRANSACTIONID", e.CasinoTransactionID},
		{"HASH", e.Hash},
	}
}

// Codec renders envelopes. The clock is injectable for deterministic tests.
type Codec struct {
	now func() time.Time
}

// New creates a Codec using the wall clock.
func New() *Codec {
	return &Codec{now: func() time.Time { return time.Now().UTC() }}
}

// NewWithClock creates a Codec with a fixed clock source.
func NewWithClock(now func() time.Time) *Codec {
	return &Codec{now: now}
}

// Fail renders a FAILED envelope with the given provider code and message.
func (c *Codec) Fail(echo Echo, code int, message string) []byte {
	resp := "<RESPONSE>\n" +
		"  <RESULT>FAILED</RESULT>\n" +
		"  <CODE>" + strconv.Itoa(code) + "</CODE>\n" +
		"  <MESSAGE>" + escape(message) + "</MESSAGE>\n" +
		"</RESPONSE>"
	return c.wrap(echo, resp)
}

// AccountOK renders the account-shaped success envelope
// (authenticate and account callbacks).
func (c *Codec) AccountOK(echo Echo, userID int64, username, currency string, balanceCents int64) []byte {
	resp := "<RESPONSE>\n" +
		"  <RESULT>OK</RESULT>\n" +
		"  <USERID>" + strconv.FormatInt(userID, 10) + "</USERID>\n" +
		"  <USERNAME>" + escape(username) + "</USERNAME>\n" +
		"  <CURRENCY>" + escape(currency) + "</CURRENCY>\n" +
		"  <BALANCE>" + strconv.FormatInt(balanceCents, 10) + "</BALANCE>\n" +
		"</RESPONSE>"
	return c.wrap(echo, resp)
}

// BalanceOK renders the balance-only success envelope.
func (c *Codec) BalanceOK(echo Echo, balanceCents int64) []byte {
	resp := "<RESPONSE>\n" +
		"  <RESULT>OK</RESULT>\n" +
		"  <BALANCE>" + strconv.FormatInt(balanceCents, 10) + "</BALANCE>\n" +
		"</RESPONSE>"
	return c.wrap(echo, resp)
}

// SettleOK renders the betResult success envelope.
func (c *Codec) SettleOK(echo Echo, externalTxID string, balanceCents int64) []byte {
	resp := "<RESPONSE>\n" +
		"  <RESULT>OK</RESULT>\n" +
		"  <EXTSYSTEMTRANSACTIONID>" + escape(externalTxID) + "</EXTSYSTEMTRANSACTIONID>\n" +
		"  <BALANCE>" + strconv.FormatInt(balanceCents, 10) + "</BALANCE>\n" +
		"</RESPONSE>"
	return c.wrap(echo, resp)
}

// RefundOK renders the refundBet success envelope.
func (c *Codec) RefundOK(echo Echo, externalTxID string) []byte {
	resp := "<RESPONSE>\n" +
		"  <RESULT>OK</RESULT>\n" +
		"  <EXTSYSTEMTRANSACTIONID>" + escape(externalTxID) + "</EXTSYSTEMTRANSACTIONID>\n" +
		"</RESPONSE>"
	return c.wrap(echo, resp)
}

// OK renders a bare success envelope (bonusRelease).
func (c *Codec) OK(echo Echo) []byte {
	resp := "<RESPONSE>\n" +
		"  <RESULT>OK</RESULT>\n" +
		"</RESPONSE>"
	return c.wrap(echo, resp)
}

func (c *Codec) wrap(echo Echo, response string) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("\n<EXTSYSTEM>\n  ")
	if echo != nil {
		for _, f := range echo.Fields() {
			fmt.Fprintf(&b, "<%s>%s</%s>", f.Tag, escape(f.Value), f.Tag)
		}
	}
	b.WriteString("\n  <TIME>")
	b.WriteString(c.now().Format(timeLayout))
	b.WriteString("</TIME>\n  ")
	b.WriteString(response)
	b.WriteString("\n</EXTSYSTEM>")
	return []byte(b.String())
}

func escape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
