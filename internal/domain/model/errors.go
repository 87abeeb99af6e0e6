package model

import "errors"

var (
	// ErrCardNotFound is returned when no card exists for an id.
	ErrCardNotFound = errors.New("debit card not found")

	// ErrInvalidCard is returned when card data fails validation.
	ErrInvalidCard = errors.New("invalid debit card")

	// ErrPrimaryAccountAlreadyAssigned is returned when a card already has a
	// different primary account.
	ErrPrimaryAccountAlreadyAssigned = errors.New("debit card already has a primary account")

	// ErrNoPrimaryAccount is returned when an operation needs the primary
	// account of a card that has none.
	ErrNoPrimaryAccount = errors.New("debit card has no primary account")

	// ErrCardNotUsable is returned when a payment targets a card that is not ACTIVE.
	ErrCardNotUsable = errors.New("debit card is not usable")

	// ErrInvalidAmount is returned for a payment amount that is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrConcurrentModification is returned when an optimistic update lost a race.
	ErrConcurrentModification = errors.New("debit card was modified concurrently")

	// ErrAccountNotFound is returned when the account service has no such account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountNotLinked is returned when an account is not linked to any card.
	ErrAccountNotLinked = errors.New("account is not linked to a debit card")
)
