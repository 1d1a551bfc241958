package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered user together with their wallet state.
// The balance column is the single source of truth for money owed to the user.
type User struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"-"`
	FullName       string          `json:"full_name"`
	Phone          string          `json:"phone,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	TotalReferrals int             `json:"total_referrals"`
	IsActive       bool            `json:"is_active"`
	IsAdmin        bool            `json:"is_admin"`
	Level          int             `json:"level"`
	XP             int64           `json:"xp"`
	DailyStreak    int             `json:"daily_streak"`
	ReferralCode   string          `json:"referral_code"`
	ReferredBy     *int64          `json:"referred_by,omitempty"`
	LastSpin       *time.Time      `json:"last_spin,omitempty"`
	LastLogin      *time.Time      `json:"last_login,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Mission is an immutable catalog entry describing a reward template.
type Mission struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Reward      decimal.Decimal `json:"reward"`
	XP          int64           `json:"xp"`
	MissionType string          `json:"mission_type"`
	UserType    string          `json:"user_type"`
	ActionType  string          `json:"action_type,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// UserMission tracks per-(user, mission) completion state. It is the
// authority for eligibility checks on repeatable mission types.
type UserMission struct {
	UserID        int64      `json:"user_id"`
	MissionID     int64      `json:"mission_id"`
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastCompleted *time.Time `json:"last_completed,omitempty"`
}

// MissionStatus is a mission joined with the caller's completion state.
type MissionStatus struct {
	Mission
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	LastCompleted *time.Time `json:"last_completed,omitempty"`
}

// Transaction is an append-only journal row. Every balance change has exactly
// one corresponding row; only the status field ever transitions afterwards.
type Transaction struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Method       string          `json:"method,omitempty"`
	Description  string          `json:"description,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	WithdrawalID *int64          `json:"withdrawal_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
}

// Withdrawal is a payout request. Funds are held (deducted from balance) the
// moment the request is created and either leave the system on approval or
// return to the balance on rejection.
type Withdrawal struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Username        string          `json:"username,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	AccountNumber   string          `json:"account_number"`
	AccountName     string          `json:"account_name"`
	Status          string          `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ProcessedBy     *int64          `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SpinResult records one spin wheel outcome. Stats only; the cooldown
// authority is users.last_spin.
type SpinResult struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Reward    decimal.Decimal `json:"reward"`
	CreatedAt time.Time       `json:"created_at"`
}

// SpinStats aggregates a user's spin history.
type SpinStats struct {
	TotalSpins int64           `json:"total_spins"`
	TotalWon   decimal.Decimal `json:"total_won"`
	HighestWin decimal.Decimal `json:"highest_win"`
}

// Referral is the edge written once when a referred user activates and the
// commission is paid. Never updated afterwards.
type Referral struct {
	ID             int64           `json:"id"`
	ReferrerID     int64           `json:"referrer_id"`
	ReferredID     int64           `json:"referred_id"`
	CommissionPaid decimal.Decimal `json:"commission_paid"`
	Activated      bool            `json:"activated"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Notification is a user-visible message emitted as a side effect of
// fulfillment operations.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Mission type constants.
const (
	MissionOneTime    = "one_time"
	MissionDaily      = "daily"
	MissionWeekly     = "weekly"
	MissionRepeatable = "repeatable"
)

// Mission audience constants.
const (
	AudienceAll     = "all"
	AudienceFree    = "free"
	AudiencePremium = "premium"
)

// Transaction type constants.
const (
	TxnMission    = "mission"
	TxnSpin       = "spin"
	TxnReferral   = "referral"
	TxnCommission = "commission"
	TxnDeposit    = "deposit"
	TxnWithdrawal = "withdrawal"
	TxnLevelBonus = "level_bonus"
)

// Status constants shared by transactions and withdrawals.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// Notification severities.
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)
