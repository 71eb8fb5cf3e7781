package domain

import "time"

// Wallet holds a player's balance for a single currency, in integer minor
// units (cents). Balances are fixed-point by construction; floating point is
// never used for money. One wallet per (player, currency), created lazily on
// first reference and never deleted.
type Wallet struct {
	ID           int64     `json:"wallet_id"`
	PlayerID     int64     `json:"player_id"`
	CurrencyCode string    `json:"currency_code"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
