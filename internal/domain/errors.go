package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUnknownParty       = errors.New("unknown party")
	ErrSameParty          = errors.New("transfer source and destination are the same")
	ErrInvalidBet         = errors.New("invalid bet")
	ErrUnknownGame        = fmt.Errorf("%w: unknown game", ErrInvalidBet)
	ErrInvalidChoice      = fmt.Errorf("%w: invalid choice", ErrInvalidBet)
	ErrAccountBanned      = errors.New("account banned")
	ErrAmountOutOfRange   = errors.New("amount out of range")
	ErrInsufficientPool   = errors.New("insufficient pool funds")
	ErrAlreadyProcessed   = errors.New("already processed")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrSessionDisplaced   = fmt.Errorf("%w: session displaced", ErrUnauthenticated)
	ErrSessionExpired     = fmt.Errorf("%w: session expired", ErrUnauthenticated)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
)

// BannedError carries the ban reason for login refusals.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string {
	if e.Reason == "" {
		return ErrAccountBanned.Error()
	}
	return ErrAccountBanned.Error() + ": " + e.Reason
}

func (e *BannedError) Unwrap() error { return ErrAccountBanned }

// codes are checked in order; wrapped sentinels must come before their parents.
var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidBet, "invalid_bet"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrSameParty, "invalid_transfer"},
	{ErrInsufficientPool, "insufficient_pool_funds"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrUnknownParty, "unknown_party"},
	{ErrAccountBanned, "account_banned"},
	{ErrAmountOutOfRange, "amount_out_of_range"},
	{ErrAlreadyProcessed, "already_processed"},
	{ErrSessionDisplaced, "session_displaced"},
	{ErrSessionExpired, "session_expired"},
	{ErrUnauthenticated, "unauthenticated"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrEmailTaken, "email_taken"},
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrInvalidInput, "invalid_input"},
}

// Code maps an error chain to its stable wire code.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}

// IsExpected reports whether err is a validation or state-conflict error
// rather than an integrity fault.
func IsExpected(err error) bool {
	return err != nil && Code(err) != "internal_error"
}
