package service

import (
	"context"
	"errors"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
)

// RecordLogin updates the user's daily streak (continue on a one-day gap,
// reset on anything longer, unchanged on the same day) and completes the
// daily login mission when the catalog has one. Mission cooldown refusals are
// expected here and swallowed.
func (s *Service) RecordLogin(ctx context.Context, userID int64) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return persistenceError("record login", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	now := s.now()
	streak := 1
	if user.LastLogin != nil {
		switch daysBetween(*user.LastLogin, now) {
		case 0:
			streak = user.DailyStreak
			if streak == 0 {
				streak = 1
			}
		case 1:
			streak = user.DailyStreak + 1
		}
	}

	if err := s.store.UpdateLoginStreak(ctx, userID, streak, now); err != nil {
		return persistenceError("record login: streak", err)
	}

	mission, err := s.store.GetMissionByAction(ctx, "login", models.MissionDaily)
	if err != nil {
		return persistenceError("record login: find mission", err)
	}
	if mission != nil {
		if _, err := s.CompleteMission(ctx, userID, mission.ID); err != nil {
			var svcErr *Error
			if errors.As(err, &svcErr) && svcErr.Kind == KindEligibility {
				return nil
			}
			return err
		}
	}
	return nil
}
