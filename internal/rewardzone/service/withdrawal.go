package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/rewardzone/rewardzone/internal/rewardzone/utils"
	"github.com/shopspring/decimal"
)

// RequestWithdrawal creates a pending payout request and holds the amount:
// the balance is deducted immediately so the admin queue can trust it, and
// the funds either leave the system on approval or return on rejection.
// At most one pending withdrawal may exist per user.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, method, accountNumber, accountName string) (int64, error) {
	if !amount.IsPositive() {
		return 0, validationError("withdrawal amount must be positive")
	}
	if amount.LessThan(s.cfg.MinWithdrawal) {
		return 0, validationError("minimum withdrawal amount is %s", s.cfg.MinWithdrawal)
	}
	if strings.TrimSpace(method) == "" || strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(accountName) == "" {
		return 0, validationError("method and account details are required")
	}
	if !utils.IsNumeric(accountNumber) {
		return 0, validationError("account number must contain only digits")
	}

	var withdrawalID int64
	var notes []note

	err := s.store.InTransaction(ctx, func(tx repository.Tx) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return persistenceError("request withdrawal: lock user", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		if amount.GreaterThan(user.Balance) {
			return ErrInsufficientBalance
		}

		pending, err := tx.HasPendingWithdrawal(ctx, userID)
		if err != nil {
			return persistenceError("request withdrawal: pending check", err)
		}
		if pending {
			return ErrPendingExists
		}

		if err := tx.DebitBalance(ctx, userID, amount); err != nil {
			return persistenceError("request withdrawal: hold funds", err)
		}

		withdrawalID, err = tx.InsertWithdrawal(ctx, &models.Withdrawal{
			UserID:        userID,
			Amount:        amount,
			Method:        method,
			AccountNumber: accountNumber,
			AccountName:   accountName,
		})
		if err != nil {
			return persistenceError("request withdrawal: insert", err)
		}

		if _, err := tx.InsertTransaction(ctx, &models.Transaction{
			UserID:       userID,
			Type:         models.TxnWithdrawal,
			Amount:       amount,
			Status:       models.StatusPending,
			Method:       method,
			Description:  "Withdrawal request",
			WithdrawalID: &withdrawalID,
		}); err != nil {
			return persistenceError("request withdrawal: journal", err)
		}

		notes = append(notes, note{
			userID:   userID,
			title:    "Withdrawal Requested",
			message:  fmt.Sprintf("Your withdrawal request of %s has been submitted and is pending approval.", amount),
			severity: models.SeverityInfo,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.emit(ctx, notes)
	return withdrawalID, nil
}

// ApproveWithdrawal finalizes a pending withdrawal: the funds leave the
// system, so total_withdrawn grows by the amount while the balance stays
// unchanged (it was already reduced when the hold was placed).
func (s *Service) ApproveWithdrawal(ctx context.Context, withdrawalID, adminID int64) error {
	var notes []note

	err := s.store.InTransaction(ctx, func(tx repository.Tx) error {
		w, err := tx.GetWithdrawalForUpdate(ctx, withdrawalID)
		if err != nil {
			return persistenceError("approve withdrawal: lock", err)
		}
		if w == nil {
			return ErrWithdrawalNotFound
		}
		if w.Status != models.StatusPending {
			return ErrAlreadyProcessed
		}

		if _, err := tx.GetUserForUpdate(ctx, w.UserID); err != nil {
			return persistenceError("approve withdrawal: lock user", err)
		}

		now := s.now()
		if err := tx.SetWithdrawalStatus(ctx, withdrawalID, models.StatusCompleted, "", adminID, now); err != nil {
			return persistenceError("approve withdrawal: update status", err)
		}
		if err := tx.AddWithdrawn(ctx, w.UserID, w.Amount); err != nil {
			return persistenceError("approve withdrawal: update totals", err)
		}

		txn, err := tx.GetTransactionByWithdrawal(ctx, withdrawalID)
		if err != nil {
			return persistenceError("approve withdrawal: load journal row", err)
		}
		if txn != nil {
			if err := tx.SetTransactionStatus(ctx, txn.ID, models.StatusCompleted, now); err != nil {
				return persistenceError("approve withdrawal: journal flip", err)
			}
		}

		notes = append(notes, note{
			userID:   w.UserID,
			title:    "Withdrawal Approved!",
			message:  fmt.Sprintf("Your withdrawal request of %s has been approved and processed!", w.Amount),
			severity: models.SeveritySuccess,
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, notes)
	return nil
}

// RejectWithdrawal refunds the held amount to the balance and records the
// rejection reason. The refund does not touch total_earned.
func (s *Service) RejectWithdrawal(ctx context.Context, withdrawalID, adminID int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return validationError("rejection reason is required")
	}

	var notes []note

	err := s.store.InTransaction(ctx, func(tx repository.Tx) error {
		w, err := tx.GetWithdrawalForUpdate(ctx, withdrawalID)
		if err != nil {
			return persistenceError("reject withdrawal: lock", err)
		}
		if w == nil {
			return ErrWithdrawalNotFound
		}
		if w.Status != models.StatusPending {
			return ErrAlreadyProcessed
		}

		if _, err := tx.GetUserForUpdate(ctx, w.UserID); err != nil {
			return persistenceError("reject withdrawal: lock user", err)
		}

		now := s.now()
		if err := tx.RefundBalance(ctx, w.UserID, w.Amount); err != nil {
			return persistenceError("reject withdrawal: refund", err)
		}
		if err := tx.SetWithdrawalStatus(ctx, withdrawalID, models.StatusRejected, reason, adminID, now); err != nil {
			return persistenceError("reject withdrawal: update status", err)
		}

		txn, err := tx.GetTransactionByWithdrawal(ctx, withdrawalID)
		if err != nil {
			return persistenceError("reject withdrawal: load journal row", err)
		}
		if txn != nil {
			if err := tx.SetTransactionStatus(ctx, txn.ID, models.StatusRejected, now); err != nil {
				return persistenceError("reject withdrawal: journal flip", err)
			}
		}

		notes = append(notes, note{
			userID:   w.UserID,
			title:    "Withdrawal Rejected",
			message:  fmt.Sprintf("Your withdrawal request has been rejected. Reason: %s. Amount refunded to your balance.", reason),
			severity: models.SeverityWarning,
		})
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, notes)
	return nil
}

// Withdrawals lists a user's withdrawal requests, newest first.
func (s *Service) Withdrawals(ctx context.Context, userID int64) ([]models.Withdrawal, error) {
	withdrawals, err := s.store.GetUserWithdrawals(ctx, userID)
	if err != nil {
		return nil, persistenceError("list withdrawals", err)
	}
	return withdrawals, nil
}

// PendingWithdrawals returns the admin approval queue, oldest first.
func (s *Service) PendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	withdrawals, err := s.store.GetPendingWithdrawals(ctx)
	if err != nil {
		return nil, persistenceError("pending withdrawals", err)
	}
	return withdrawals, nil
}
