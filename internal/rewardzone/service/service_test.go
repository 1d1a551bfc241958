package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
)

func testConfig() Config {
	return Config{
		MinWithdrawal:             decimal.NewFromInt(670),
		SpinCooldownHours:         24,
		PackPrice:                 decimal.NewFromInt(350),
		OwnerCommission:           decimal.NewFromInt(200),
		ActiveInviterCommission:   decimal.NewFromInt(150),
		InactiveInviterCommission: decimal.NewFromInt(30),
	}
}

func newTestService(t *testing.T) (*Service, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewService(store, testConfig(), &StoreNotifier{Store: store})
	return svc, store
}

func createUser(t *testing.T, store *repository.MemoryStore, u *models.User) int64 {
	t.Helper()
	id, err := store.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return id
}

func getUser(t *testing.T, store *repository.MemoryStore, id int64) *models.User {
	t.Helper()
	u, err := store.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func TestUserStats(t *testing.T) {
	svc, store := newTestService(t)

	id := createUser(t, store, &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		ReferralCode: "ALICE001",
		Balance:      decimal.NewFromInt(42),
	})

	user, err := svc.UserStats(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.True(t, user.Balance.Equal(decimal.NewFromInt(42)))
	require.Equal(t, 1, user.Level)
}

func TestUserStatsUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UserStats(context.Background(), 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSameDay(t *testing.T) {
	noon := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	late := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)

	require.True(t, sameDay(noon, noon.Add(time.Minute)))
	require.True(t, sameDay(noon, late))
	// Calendar dates matter, not elapsed time: one minute past
	// midnight is a different day.
	require.False(t, sameDay(late, late.Add(time.Minute)))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)

	require.Equal(t, 0, daysBetween(a, a))
	require.Equal(t, 1, daysBetween(a, a.Add(2*time.Minute)))
	require.Equal(t, 7, daysBetween(a, a.AddDate(0, 0, 7)))
}
