package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
)

func TestExpirerRejectsStalePendingDeposits(t *testing.T) {
	svc, store := newTestService(t)
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	stale, err := svc.InitiateDeposit(context.Background(), userID, decimal.Zero, "card")
	require.NoError(t, err)

	expirer := NewDepositExpirer(store, time.Hour)
	expirer.expireOnce()

	// Younger than an hour, still live.
	txns, err := store.GetUserTransactions(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, txns[0].Status)

	// Push the cutoff past the deposit's creation time.
	expirer.maxAge = -time.Minute
	expirer.expireOnce()

	txns, err = store.GetUserTransactions(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, txns[0].Status)

	// A late callback for the expired reference is refused.
	err = svc.ProcessSuccessfulPayment(context.Background(), userID, decimal.NewFromInt(350), stale)
	require.ErrorIs(t, err, ErrPaymentExpired)

	user := getUser(t, store, userID)
	require.False(t, user.IsActive)
}

func TestExpirerStartStop(t *testing.T) {
	_, store := newTestService(t)

	expirer := NewDepositExpirer(store, time.Hour)
	expirer.interval = 5 * time.Millisecond
	expirer.Start()
	time.Sleep(20 * time.Millisecond)
	expirer.Stop()
}
