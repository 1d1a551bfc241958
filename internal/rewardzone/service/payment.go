package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/shopspring/decimal"
)

// InitiateDeposit records a pending deposit transaction for a pack purchase
// and returns the opaque reference handed to the payment gateway. No funds
// move until the verified gateway callback arrives. Deposits left pending for
// too long are expired by the background DepositExpirer.
func (s *Service) InitiateDeposit(ctx context.Context, userID int64, amount decimal.Decimal, method string) (string, error) {
	if amount.IsZero() {
		amount = s.cfg.PackPrice
	}
	if !amount.IsPositive() {
		return "", validationError("deposit amount must be positive")
	}
	if strings.TrimSpace(method) == "" {
		return "", validationError("payment method is required")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", persistenceError("initiate deposit", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	reference := "RZ" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))

	err = s.store.InTransaction(ctx, func(tx repository.Tx) error {
		_, err := tx.InsertTransaction(ctx, &models.Transaction{
			UserID:      userID,
			Type:        models.TxnDeposit,
			Amount:      amount,
			Status:      models.StatusPending,
			Method:      method,
			Description: "Pack purchase",
			Reference:   reference,
		})
		if err != nil {
			return persistenceError("initiate deposit: journal", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return reference, nil
}

// ProcessSuccessfulPayment handles the verified gateway callback for a
// deposit. In one transaction it completes the pending deposit, activates the
// account, credits the owner commission and runs the referral commission
// cascade. The operation is idempotent on the payment reference: a duplicate
// callback observes the completed status and no-ops.
func (s *Service) ProcessSuccessfulPayment(ctx context.Context, userID int64, amount decimal.Decimal, reference string) error {
	if strings.TrimSpace(reference) == "" {
		return validationError("payment reference is required")
	}

	var notes []note

	err := s.store.InTransaction(ctx, func(tx repository.Tx) error {
		txn, err := tx.GetTransactionByReference(ctx, reference)
		if err != nil {
			return persistenceError("process payment: load deposit", err)
		}
		if txn == nil {
			return ErrPaymentNotFound
		}
		if txn.UserID != userID {
			return validationError("payment reference does not belong to this user")
		}
		if txn.Status == models.StatusCompleted {
			// Duplicate callback.
			return nil
		}
		if txn.Status == models.StatusRejected {
			return ErrPaymentExpired
		}

		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return persistenceError("process payment: lock user", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		now := s.now()
		if err := tx.SetTransactionStatus(ctx, txn.ID, models.StatusCompleted, now); err != nil {
			return persistenceError("process payment: complete deposit", err)
		}

		notes = append(notes, note{
			userID:   userID,
			title:    "Payment Successful!",
			message:  fmt.Sprintf("Your payment of %s has been processed successfully. Your account is now active!", amount),
			severity: models.SeveritySuccess,
		})

		if user.IsActive {
			// Activation already happened; commissions are paid once.
			return nil
		}

		if err := tx.ActivateUser(ctx, userID); err != nil {
			return persistenceError("process payment: activate", err)
		}

		if err := s.creditOwnerCommission(ctx, tx, userID); err != nil {
			return err
		}

		referralNotes, err := s.processReferralCommission(ctx, tx, user)
		if err != nil {
			return err
		}
		notes = append(notes, referralNotes...)
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, notes)
	return nil
}

// creditOwnerCommission pays the flat platform commission to the configured
// owner account on every activation.
func (s *Service) creditOwnerCommission(ctx context.Context, tx repository.Tx, activatedUserID int64) error {
	if s.cfg.OwnerUserID == 0 || s.cfg.OwnerUserID == activatedUserID {
		return nil
	}

	if err := tx.CreditUser(ctx, s.cfg.OwnerUserID, s.cfg.OwnerCommission, 0); err != nil {
		return persistenceError("process payment: owner commission", err)
	}
	if _, err := tx.InsertTransaction(ctx, &models.Transaction{
		UserID:      s.cfg.OwnerUserID,
		Type:        models.TxnCommission,
		Amount:      s.cfg.OwnerCommission,
		Status:      models.StatusCompleted,
		Description: "Owner commission for pack purchase",
	}); err != nil {
		return persistenceError("process payment: owner journal", err)
	}
	return nil
}

// processReferralCommission pays the referrer their tier commission and
// writes the referral edge. The unique constraint on the referred user is the
// backstop against paying the same referral twice: a duplicate insert rolls
// the whole activation back.
func (s *Service) processReferralCommission(ctx context.Context, tx repository.Tx, user *models.User) ([]note, error) {
	if user.ReferredBy == nil {
		return nil, nil
	}

	referrer, err := tx.GetUserForUpdate(ctx, *user.ReferredBy)
	if err != nil {
		return nil, persistenceError("referral commission: lock referrer", err)
	}
	if referrer == nil {
		return nil, nil
	}

	commission := s.cfg.InactiveInviterCommission
	if referrer.IsActive {
		commission = s.cfg.ActiveInviterCommission
	}

	if err := tx.InsertReferral(ctx, &models.Referral{
		ReferrerID:     referrer.ID,
		ReferredID:     user.ID,
		CommissionPaid: commission,
		Activated:      true,
	}); err != nil {
		return nil, persistenceError("referral commission: record edge", err)
	}
	if err := tx.CreditUser(ctx, referrer.ID, commission, 0); err != nil {
		return nil, persistenceError("referral commission: credit", err)
	}
	if err := tx.IncrementReferrals(ctx, referrer.ID); err != nil {
		return nil, persistenceError("referral commission: counter", err)
	}
	if _, err := tx.InsertTransaction(ctx, &models.Transaction{
		UserID:      referrer.ID,
		Type:        models.TxnReferral,
		Amount:      commission,
		Status:      models.StatusCompleted,
		Description: fmt.Sprintf("Referral commission for inviting user #%d", user.ID),
	}); err != nil {
		return nil, persistenceError("referral commission: journal", err)
	}

	return []note{{
		userID:   referrer.ID,
		title:    "Referral Bonus!",
		message:  fmt.Sprintf("You earned %s from your referral!", commission),
		severity: models.SeveritySuccess,
	}}, nil
}

// Transactions lists a user's journal rows, newest first.
func (s *Service) Transactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	txns, err := s.store.GetUserTransactions(ctx, userID)
	if err != nil {
		return nil, persistenceError("list transactions", err)
	}
	return txns, nil
}

// Notifications lists a user's most recent notifications.
func (s *Service) Notifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	notifications, err := s.store.GetNotifications(ctx, userID, limit)
	if err != nil {
		return nil, persistenceError("list notifications", err)
	}
	return notifications, nil
}
