package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/shopspring/decimal"
)

// spinRewards is the fixed probability table: a uniform draw over [1,100]
// falls into the first bucket whose ceiling covers it.
var spinRewards = []struct {
	ceiling int
	amount  int64
}{
	{35, 5},   // 35%
	{60, 10},  // 25%
	{75, 15},  // 15%
	{85, 20},  // 10%
	{92, 30},  // 7%
	{97, 50},  // 5%
	{99, 75},  // 2%
	{100, 100}, // 1% jackpot
}

func rewardForRoll(roll int) decimal.Decimal {
	for _, bucket := range spinRewards {
		if roll <= bucket.ceiling {
			return decimal.NewFromInt(bucket.amount)
		}
	}
	return decimal.NewFromInt(spinRewards[0].amount)
}

// SpinStatus reports spin eligibility for a user.
type SpinStatus struct {
	CanSpin        bool       `json:"can_spin"`
	HoursRemaining int        `json:"hours_remaining,omitempty"`
	NextSpin       *time.Time `json:"next_spin,omitempty"`
}

// spinEligibility computes the cooldown from whole hours passed since the
// last spin, so hours_remaining counts down in integer steps.
func (s *Service) spinEligibility(lastSpin *time.Time, now time.Time) SpinStatus {
	if lastSpin == nil {
		return SpinStatus{CanSpin: true}
	}

	hoursPassed := int(now.Sub(*lastSpin).Hours())
	if hoursPassed >= s.cfg.SpinCooldownHours {
		return SpinStatus{CanSpin: true}
	}

	next := lastSpin.Add(time.Duration(s.cfg.SpinCooldownHours) * time.Hour)
	return SpinStatus{
		CanSpin:        false,
		HoursRemaining: s.cfg.SpinCooldownHours - hoursPassed,
		NextSpin:       &next,
	}
}

// CanSpin reports whether the user may spin now and, if not, how long until
// the cooldown expires.
func (s *Service) CanSpin(ctx context.Context, userID int64) (*SpinStatus, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, persistenceError("spin status", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	status := s.spinEligibility(user.LastSpin, s.now())
	return &status, nil
}

// SpinOutcome is the result of a successful spin.
type SpinOutcome struct {
	Reward decimal.Decimal `json:"reward"`
}

// Spin draws a reward from the probability table and credits it. Eligibility
// is re-validated on the locked user row inside the transaction that updates
// last_spin, so two concurrent spins serialize and the loser sees the
// cooldown.
func (s *Service) Spin(ctx context.Context, userID int64) (*SpinOutcome, error) {
	var outcome SpinOutcome
	var notes []note

	err := s.store.InTransaction(ctx, func(tx repository.Tx) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return persistenceError("spin: lock user", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		now := s.now()
		if status := s.spinEligibility(user.LastSpin, now); !status.CanSpin {
			return ErrSpinCooldown
		}

		reward := rewardForRoll(s.roll())

		if err := tx.CreditUser(ctx, userID, reward, 0); err != nil {
			return persistenceError("spin: credit reward", err)
		}
		if err := tx.SetLastSpin(ctx, userID, now); err != nil {
			return persistenceError("spin: update cooldown", err)
		}
		if err := tx.InsertSpin(ctx, userID, reward, now); err != nil {
			return persistenceError("spin: record history", err)
		}
		if _, err := tx.InsertTransaction(ctx, &models.Transaction{
			UserID:      userID,
			Type:        models.TxnSpin,
			Amount:      reward,
			Status:      models.StatusCompleted,
			Description: "Spin wheel reward",
		}); err != nil {
			return persistenceError("spin: journal", err)
		}

		notes = append(notes, note{
			userID:   userID,
			title:    "Spin Reward!",
			message:  fmt.Sprintf("You won %s from the spin wheel!", reward),
			severity: models.SeveritySuccess,
		})

		outcome = SpinOutcome{Reward: reward}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, notes)
	return &outcome, nil
}

// SpinHistory returns the most recent spins for a user.
func (s *Service) SpinHistory(ctx context.Context, userID int64, limit int) ([]models.SpinResult, *models.SpinStats, error) {
	if limit <= 0 {
		limit = 10
	}

	history, err := s.store.GetSpinHistory(ctx, userID, limit)
	if err != nil {
		return nil, nil, persistenceError("spin history", err)
	}
	stats, err := s.store.GetSpinStats(ctx, userID)
	if err != nil {
		return nil, nil, persistenceError("spin stats", err)
	}
	return history, stats, nil
}
