package service

import (
	"context"
	"fmt"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/shopspring/decimal"
)

const (
	xpPerLevel     = 100
	bonusPerLevel  = 50
	levelUpTitle   = "Level Up!"
	levelUpMessage = "Congratulations! You've reached Level %d and earned %s!"
)

// applyLevelUps promotes the user while their XP covers the next threshold
// (level * 100), crediting the level bonus (new level * 50) at each step.
// A single large XP grant can cross several thresholds, so this loops until
// the threshold is no longer met. The caller holds the user row lock and has
// already updated user with the XP grant being evaluated.
func (s *Service) applyLevelUps(ctx context.Context, tx repository.Tx, user *models.User) ([]note, error) {
	var notes []note

	for user.XP >= int64(user.Level)*xpPerLevel {
		user.Level++
		bonus := decimal.NewFromInt(int64(user.Level) * bonusPerLevel)

		if err := tx.SetLevel(ctx, user.ID, user.Level); err != nil {
			return nil, persistenceError("level up: set level", err)
		}
		if err := tx.CreditUser(ctx, user.ID, bonus, 0); err != nil {
			return nil, persistenceError("level up: credit bonus", err)
		}
		if _, err := tx.InsertTransaction(ctx, &models.Transaction{
			UserID:      user.ID,
			Type:        models.TxnLevelBonus,
			Amount:      bonus,
			Status:      models.StatusCompleted,
			Description: fmt.Sprintf("Level %d bonus", user.Level),
		}); err != nil {
			return nil, persistenceError("level up: journal", err)
		}

		user.Balance = user.Balance.Add(bonus)
		user.TotalEarned = user.TotalEarned.Add(bonus)

		notes = append(notes, note{
			userID:   user.ID,
			title:    levelUpTitle,
			message:  fmt.Sprintf(levelUpMessage, user.Level, bonus),
			severity: models.SeveritySuccess,
		})
	}

	return notes, nil
}
