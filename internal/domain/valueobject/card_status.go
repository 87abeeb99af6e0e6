package valueobject

import "fmt"

// CardStatus represents the lifecycle status of a debit card.
type CardStatus string

const (
	CardStatusActive   CardStatus = "ACTIVE"
	CardStatusBlocked  CardStatus = "BLOCKED"
	CardStatusCanceled CardStatus = "CANCELED"
)

var validCardStatuses = map[CardStatus]bool{
	CardStatusActive:   true,
	CardStatusBlocked:  true,
	CardStatusCanceled: true,
}

// NewCardStatus creates a validated CardStatus from a string.
func NewCardStatus(s string) (CardStatus, error) {
	cs := CardStatus(s)
	if !validCardStatuses[cs] {
		return "", fmt.Errorf("invalid card status: %q", s)
	}
	return cs, nil
}

// String returns the string representation of the CardStatus.
func (cs CardStatus) String() string {
	return string(cs)
}

// IsUsable returns true if the card can be used for payments.
func (cs CardStatus) IsUsable() bool {
	return cs == CardStatusActive
}

// CanTransitionTo reports whether a card may move from cs to next.
// CANCELED is terminal.
func (cs CardStatus) CanTransitionTo(next CardStatus) bool {
	if !validCardStatuses[next] {
		return false
	}
	return cs != CardStatusCanceled || next == CardStatusCanceled
}
