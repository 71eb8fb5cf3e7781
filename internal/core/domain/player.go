package domain

import "fmt"

// Player is the slice of the operator's player account the gateway needs:
// a stable id and a display name for account-shaped responses.
type Player struct {
	ID          int64  `json:"player_id"`
	DisplayName string `json:"display_name"`
}

// DisplayOrDefault returns the display name, or a synthetic "user_<id>" when
// the account has none.
func (p *Player) DisplayOrDefault() string {
	if p.DisplayName == "" {
		return DefaultDisplayName(p.ID)
	}
	return p.DisplayName
}

// DefaultDisplayName is the fallback username for a player id with no
// directory entry.
func DefaultDisplayName(playerID int64) string {
	return fmt.Sprintf("user_%d", playerID)
}
