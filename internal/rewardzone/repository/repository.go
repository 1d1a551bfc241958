package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (username, email, referral code, referral edge, transaction reference).
var ErrDuplicate = errors.New("duplicate record")

// Store defines the interface for data access operations. All multi-step
// balance mutations go through InTransaction; the remaining methods are
// single-statement reads and writes.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	UpdateLoginStreak(ctx context.Context, userID int64, streak int, loginAt time.Time) error

	// Mission catalog
	SeedMissions(ctx context.Context, missions []models.Mission) error
	GetMissionByAction(ctx context.Context, actionType, missionType string) (*models.Mission, error)
	GetUserMissions(ctx context.Context, userID int64, premium bool) ([]models.MissionStatus, error)

	// Read surfaces
	GetUserTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	GetUserWithdrawals(ctx context.Context, userID int64) ([]models.Withdrawal, error)
	GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
	GetSpinHistory(ctx context.Context, userID int64, limit int) ([]models.SpinResult, error)
	GetSpinStats(ctx context.Context, userID int64) (*models.SpinStats, error)
	GetNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	InsertNotification(ctx context.Context, n *models.Notification) error

	// Maintenance
	ExpirePendingDeposits(ctx context.Context, olderThan time.Time) (int64, error)

	// InTransaction runs fn inside a single database transaction. Any error
	// returned by fn rolls the transaction back in full.
	InTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Initialize and close
	InitDB(databaseURI string) error
	Close() error
}

// Tx exposes the row-level operations available inside a ledger transaction.
// GetUserForUpdate locks the user row for the duration of the transaction,
// serializing every balance mutation for that user.
type Tx interface {
	GetUserForUpdate(ctx context.Context, id int64) (*models.User, error)
	CreditUser(ctx context.Context, userID int64, amount decimal.Decimal, xp int64) error
	DebitBalance(ctx context.Context, userID int64, amount decimal.Decimal) error
	RefundBalance(ctx context.Context, userID int64, amount decimal.Decimal) error
	AddWithdrawn(ctx context.Context, userID int64, amount decimal.Decimal) error
	SetLevel(ctx context.Context, userID int64, level int) error
	SetLastSpin(ctx context.Context, userID int64, at time.Time) error
	ActivateUser(ctx context.Context, userID int64) error
	IncrementReferrals(ctx context.Context, userID int64) error

	GetMission(ctx context.Context, id int64) (*models.Mission, error)
	GetUserMission(ctx context.Context, userID, missionID int64) (*models.UserMission, error)
	UpsertUserMission(ctx context.Context, userID, missionID int64, completedAt time.Time) error

	InsertTransaction(ctx context.Context, t *models.Transaction) (int64, error)
	SetTransactionStatus(ctx context.Context, id int64, status string, processedAt time.Time) error
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetTransactionByWithdrawal(ctx context.Context, withdrawalID int64) (*models.Transaction, error)

	InsertWithdrawal(ctx context.Context, w *models.Withdrawal) (int64, error)
	GetWithdrawalForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error)
	SetWithdrawalStatus(ctx context.Context, id int64, status, reason string, adminID int64, processedAt time.Time) error
	HasPendingWithdrawal(ctx context.Context, userID int64) (bool, error)

	InsertSpin(ctx context.Context, userID int64, reward decimal.Decimal, at time.Time) error
	InsertReferral(ctx context.Context, r *models.Referral) error
}
