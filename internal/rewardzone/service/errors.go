package service

import (
	"fmt"
	"log"
)

// Kind classifies a service failure for the HTTP boundary.
type Kind int

const (
	// KindValidation marks caller mistakes: bad amounts, missing fields.
	KindValidation Kind = iota
	// KindEligibility marks expected fulfillment refusals: cooldowns,
	// already-completed windows, premium requirements.
	KindEligibility
	// KindConflict marks operations refused because of existing state:
	// a pending withdrawal, an already-processed request.
	KindConflict
	// KindInsufficientBalance marks a withdrawal beyond the current balance.
	KindInsufficientBalance
	// KindNotFound marks unknown mission/withdrawal/user ids.
	KindNotFound
	// KindPersistence marks storage failures. The transaction is guaranteed
	// rolled back, so retrying is safe.
	KindPersistence
)

// Error is the tagged failure type returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel errors for the expected refusal paths.
var (
	ErrAlreadyCompleted    = &Error{Kind: KindEligibility, Message: "mission already completed"}
	ErrDailyCooldown       = &Error{Kind: KindEligibility, Message: "daily mission already completed today"}
	ErrWeeklyCooldown      = &Error{Kind: KindEligibility, Message: "weekly mission on cooldown"}
	ErrPremiumRequired     = &Error{Kind: KindEligibility, Message: "premium membership required"}
	ErrSpinCooldown        = &Error{Kind: KindEligibility, Message: "spin wheel on cooldown"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrPendingExists       = &Error{Kind: KindConflict, Message: "a pending withdrawal request already exists"}
	ErrAlreadyProcessed    = &Error{Kind: KindConflict, Message: "withdrawal already processed"}
	ErrUserNotFound        = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrMissionNotFound     = &Error{Kind: KindNotFound, Message: "mission not found"}
	ErrWithdrawalNotFound  = &Error{Kind: KindNotFound, Message: "withdrawal not found"}
	ErrPaymentNotFound     = &Error{Kind: KindNotFound, Message: "unknown payment reference"}
	ErrPaymentExpired      = &Error{Kind: KindConflict, Message: "payment reference expired"}
)

func validationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// persistenceError logs the underlying failure and hides it behind a generic
// message so storage internals never reach the caller.
func persistenceError(op string, err error) *Error {
	log.Printf("persistence error in %s: %v", op, err)
	return &Error{Kind: KindPersistence, Message: "operation failed, please retry", Err: err}
}
