package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"wallet-settlement-gateway/internal/core/ports"
	"wallet-settlement-gateway/pkg/apperror"
	"wallet-settlement-gateway/pkg/envelope"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CallbackHandler serves the provider's wallet callbacks. Every callback is a
// GET with query parameters and every response is an EXTSYSTEM envelope over
// HTTP 200; failures are encoded in the body, never in the transport status.
type CallbackHandler struct {
	svc   ports.SettlementService
	codec *envelope.Codec
	log   zerolog.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(svc ports.SettlementService, codec *envelope.Codec, log zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{svc: svc, codec: codec, log: log}
}

// Authenticate handles GET /betsoft/authenticate.
func (h *CallbackHandler) Authenticate(c *gin.Context) {
	echo := envelope.TokenEcho{Token: c.Query("token"), Hash: c.Query("hash")}

	res, err := h.svc.Authenticate(c.Request.Context(), ports.AuthenticateRequest{
		BankID:     c.Query("bankId"),
		Token:      c.Query("token"),
		Hash:       c.Query("hash"),
		ClientType: c.Query("clientType"),
	})
	if err != nil {
		h.fail(c, echo, err)
		return
	}
	h.write(c, h.codec.AccountOK(echo, res.PlayerID, res.DisplayName, res.Currency, res.BalanceCents))
}

// Balance handles GET /betsoft/balance.
func (h *CallbackHandler) Balance(c *gin.Context) {
	echo := envelope.BalanceEcho{UserID: c.Query("userId")}

	playerID, appErr := parsePlayerID(c)
	if appErr != nil {
		h.fail(c, echo, appErr)
		return
	}

	res, err := h.svc.Balance(c.Request.Context(), ports.UserRequest{
		BankID:   c.Query("bankId"),
		PlayerID: playerID,
		Hash:     c.Query("hash"),
	})
	if err != nil {
		h.fail(c, echo, err)
		return
	}
	h.write(c, h.codec.BalanceOK(echo, res.BalanceCents))
}

// Account handles GET /betsoft/account.
func (h *CallbackHandler) Account(c *gin.Context) {
	echo := envelope.UserEcho{UserID: c.Query("userId"), Hash: c.Query("hash")}

	playerID, appErr := parsePlayerID(c)
	if appErr != nil {
		h.fail(c, echo, appErr)
		return
	}

	res, err := h.svc.Account(c.Request.Context(), ports.UserRequest{
		BankID:   c.Query("bankId"),
		PlayerID: playerID,
		Hash:     c.Query("hash"),
	})
	if err != nil {
		h.fail(c, echo, err)
		return
	}
	h.write(c, h.codec.AccountOK(echo, res.PlayerID, res.DisplayName, res.Currency, res.BalanceCents))
}

// BetResult handles GET /betsoft/betResult.
func (h *CallbackHandler) BetResult(c *gin.Context) {
	// Providers double-encode the wager parameters, so one decode survives
	// gin's query parsing. Hashing happens over the fully decoded value.
	bet := unescape(c.Query("bet"))
	win := unescape(c.Query("win"))

	echo := envelope.BetEcho{
		UserID:          c.Query("userId"),
		Bet:             bet,
		Win:             win,
		IsRoundFinished: c.Query("isRoundFinished"),
		RoundID:         c.Query("roundId"),
		GameID:          c.Query("gameId"),
		Hash:            c.Query("hash"),
		GameSessionID:   c.Query("gameSessionId"),
		ClientType:      c.Query("clientType"),
	}

	playerID, appErr := parsePlayerID(c)
	if appErr != nil {
		h.fail(c, echo, appErr)
		return
	}

	res, err := h.svc.BetResult(c.Request.Context(), ports.BetResultRequest{
		BankID:          c.Query("bankId"),
		PlayerID:        playerID,
		Bet:             bet,
		Win:             win,
		IsRoundFinished: c.Query("isRoundFinished"),
		RoundID:         c.Query("roundId"),
		GameID:          c.Query("gameId"),
		GameSessionID:   c.Query("gameSessionId"),
		Hash:            c.Query("hash"),
	})
	if err != nil {
		h.fail(c, echo, err)
		return
	}
	h.write(c, h.codec.SettleOK(echo, res.ExternalTransactionID, res.BalanceCents))
}

// RefundBet handles GET /betsoft/refundBet.
func (h *CallbackHandler) RefundBet(c *gin.Context) {
	echo := envelope.RefundEcho{
		UserID:              c.Query("userId"),
		CasinoTransactionID: c.Query("casinoTransactionId"),
		Hash:                c.Query("hash"),
	}

	playerID, appErr := parsePlayerID(c)
	if appErr != nil {
		h.fail(c, echo, appErr)
		return
	}

	res, err := h.svc.RefundBet(c.Request.Context(), ports.RefundRequest{
		BankID:              c.Query("bankId"),
		PlayerID:            playerID,
		CasinoTransactionID: c.Query("casinoTransactionId"),
		Hash:                c.Query("hash"),
	})
	if err != nil {
		h.fail(c, echo, err)
		return
	}
	h.write(c, h.codec.RefundOK(echo, res.ExternalTransactionID))
}

// BonusRelease handles GET /betsoft/bonusRelease.
func (h *CallbackHandler) BonusRelease(c *gin.Context) {
	echo := envelope.TokenEcho{Token: c.Query("token"), Hash: c.Query("hash")}

	err := h.svc.BonusRelease(c.Request.Context(), ports.BonusReleaseRequest{
		BankID: c.Query("bankId"),
		Token:  c.Query("token"),
		Hash:   c.Query("hash"),
	})
	if err != nil {
		h.fail(c, echo, err)
		return
	}
	h.write(c, h.codec.OK(echo))
}

func (h *CallbackHandler) fail(c *gin.Context, echo envelope.Echo, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.InternalError(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("callback failed")
	} else {
		h.log.Warn().Str("code", appErr.Code).Str("path", c.Request.URL.Path).Msg("callback rejected")
	}

	h.write(c, h.codec.Fail(echo, appErr.ProviderCode, appErr.Message))
}

func (h *CallbackHandler) write(c *gin.Context, body []byte) {
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

func parsePlayerID(c *gin.Context) (int64, *apperror.AppError) {
	raw := c.Query("userId")
	if raw == "" {
		return 0, apperror.ErrMissingParams("userId")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ErrMissingParams("numeric userId")
	}
	return id, nil
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
