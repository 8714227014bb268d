package models

import "fmt"

// Card types derived from the staff/vehicle joins.
const (
	CardTypeStaff   = "staff"
	CardTypeVehicle = "vehicle"
	CardTypeUnknown = "unknown"
)

// Card RFID 卡（rfid_cards joined with staff / vehicles）
type Card struct {
	CardUID   string
	TenantID  *int64
	IsActive  bool
	OwnerName *string
	CardType  string
}

// UnknownCard is the stand-in used when a tag has no rfid_cards row.
func UnknownCard(uid string) *Card {
	return &Card{CardUID: uid, CardType: CardTypeUnknown}
}

// Notes renders the human-readable rfid_logs.notes value.
func (c *Card) Notes() string {
	owner := "Unknown"
	if c.OwnerName != nil && *c.OwnerName != "" {
		owner = *c.OwnerName
	}
	cardType := c.CardType
	if cardType == "" {
		cardType = CardTypeUnknown
	}
	return fmt.Sprintf("Card Type: %s, Owner: %s", cardType, owner)
}
