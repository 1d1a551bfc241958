package service

import (
	"context"
	"fmt"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/shopspring/decimal"
)

// MissionReward is the result of a successful mission completion.
type MissionReward struct {
	Reward decimal.Decimal `json:"reward"`
	XP     int64           `json:"xp"`
}

// CompleteMission checks eligibility for the mission and, if eligible,
// credits the reward, grants XP, applies level-ups, journals the credit and
// queues a notification, all inside one transaction on the locked user row.
// A second concurrent call for the same eligibility window observes the
// updated completion state and fails instead of double-crediting.
func (s *Service) CompleteMission(ctx context.Context, userID, missionID int64) (*MissionReward, error) {
	var result MissionReward
	var notes []note

	err := s.store.InTransaction(ctx, func(tx repository.Tx) error {
		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return persistenceError("complete mission: lock user", err)
		}
		if user == nil {
			return ErrUserNotFound
		}

		mission, err := tx.GetMission(ctx, missionID)
		if err != nil {
			return persistenceError("complete mission: load mission", err)
		}
		if mission == nil {
			return ErrMissionNotFound
		}

		userMission, err := tx.GetUserMission(ctx, userID, missionID)
		if err != nil {
			return persistenceError("complete mission: load progress", err)
		}

		if err := s.checkMissionEligibility(user, mission, userMission); err != nil {
			return err
		}

		now := s.now()
		if err := tx.UpsertUserMission(ctx, userID, missionID, now); err != nil {
			return persistenceError("complete mission: record completion", err)
		}
		if err := tx.CreditUser(ctx, userID, mission.Reward, mission.XP); err != nil {
			return persistenceError("complete mission: credit reward", err)
		}

		if _, err := tx.InsertTransaction(ctx, &models.Transaction{
			UserID:      userID,
			Type:        models.TxnMission,
			Amount:      mission.Reward,
			Status:      models.StatusCompleted,
			Description: "Mission completed: " + mission.Title,
		}); err != nil {
			return persistenceError("complete mission: journal", err)
		}

		user.Balance = user.Balance.Add(mission.Reward)
		user.TotalEarned = user.TotalEarned.Add(mission.Reward)
		user.XP += mission.XP

		levelNotes, err := s.applyLevelUps(ctx, tx, user)
		if err != nil {
			return err
		}

		notes = append(notes, note{
			userID:   userID,
			title:    "Mission Completed!",
			message:  fmt.Sprintf("You completed '%s' and earned %s!", mission.Title, mission.Reward),
			severity: models.SeveritySuccess,
		})
		notes = append(notes, levelNotes...)

		result = MissionReward{Reward: mission.Reward, XP: mission.XP}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, notes)
	return &result, nil
}

// checkMissionEligibility enforces the per-mission-type window policy and the
// premium audience gate.
func (s *Service) checkMissionEligibility(user *models.User, mission *models.Mission, userMission *models.UserMission) error {
	switch mission.MissionType {
	case models.MissionOneTime:
		if userMission != nil && userMission.Completed {
			return ErrAlreadyCompleted
		}
	case models.MissionDaily:
		// Calendar-date boundary, not a rolling 24h window.
		if userMission != nil && userMission.LastCompleted != nil && sameDay(*userMission.LastCompleted, s.now()) {
			return ErrDailyCooldown
		}
	case models.MissionWeekly:
		if userMission != nil && userMission.LastCompleted != nil {
			if daysBetween(*userMission.LastCompleted, s.now()) < 7 {
				return ErrWeeklyCooldown
			}
		}
	}

	if mission.UserType == models.AudiencePremium && !user.IsActive {
		return ErrPremiumRequired
	}
	return nil
}

// Missions lists the active catalog for the user together with their
// completion state.
func (s *Service) Missions(ctx context.Context, userID int64) ([]models.MissionStatus, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, persistenceError("list missions", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	missions, err := s.store.GetUserMissions(ctx, userID, user.IsActive)
	if err != nil {
		return nil, persistenceError("list missions", err)
	}
	return missions, nil
}
