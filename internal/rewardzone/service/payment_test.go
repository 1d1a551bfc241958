package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
)

func initiateAndPay(t *testing.T, svc *Service, userID int64) string {
	t.Helper()
	reference, err := svc.InitiateDeposit(context.Background(), userID, decimal.Zero, "card")
	require.NoError(t, err)
	require.NoError(t, svc.ProcessSuccessfulPayment(context.Background(), userID, svc.cfg.PackPrice, reference))
	return reference
}

func TestInitiateDeposit(t *testing.T) {
	svc, store := newTestService(t)
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	reference, err := svc.InitiateDeposit(context.Background(), userID, decimal.Zero, "card")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(reference, "RZ"))
	require.Len(t, reference, 34)

	// Zero amount defaults to the pack price; no funds move yet.
	txns, err := store.GetUserTransactions(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, models.TxnDeposit, txns[0].Type)
	require.Equal(t, models.StatusPending, txns[0].Status)
	require.True(t, txns[0].Amount.Equal(decimal.NewFromInt(350)))

	user := getUser(t, store, userID)
	require.True(t, user.Balance.Equal(decimal.Zero))
	require.False(t, user.IsActive)
}

func TestInitiateDepositValidation(t *testing.T) {
	svc, store := newTestService(t)
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	_, err := svc.InitiateDeposit(context.Background(), userID, decimal.NewFromInt(-1), "card")
	requireKind(t, err, KindValidation)

	_, err = svc.InitiateDeposit(context.Background(), userID, decimal.Zero, "")
	requireKind(t, err, KindValidation)
}

func TestProcessSuccessfulPaymentActivates(t *testing.T) {
	svc, store := newTestService(t)
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	reference := initiateAndPay(t, svc, userID)

	user := getUser(t, store, userID)
	require.True(t, user.IsActive)

	txns, err := store.GetUserTransactions(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, models.StatusCompleted, txns[0].Status)
	require.Equal(t, reference, txns[0].Reference)
}

func TestProcessSuccessfulPaymentIdempotent(t *testing.T) {
	svc, store := newTestService(t)

	referrerID := createUser(t, store, &models.User{
		Username: "ref", Email: "ref@example.com", ReferralCode: "REF00001", IsActive: true,
	})
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001", ReferredBy: &referrerID,
	})

	reference := initiateAndPay(t, svc, userID)

	// The gateway retried. The duplicate succeeds without paying commissions
	// again.
	require.NoError(t, svc.ProcessSuccessfulPayment(context.Background(), userID, decimal.NewFromInt(350), reference))

	referrer := getUser(t, store, referrerID)
	require.True(t, referrer.Balance.Equal(decimal.NewFromInt(150)))
	require.Equal(t, 1, referrer.TotalReferrals)
}

func TestProcessPaymentUnknownReference(t *testing.T) {
	svc, store := newTestService(t)
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	err := svc.ProcessSuccessfulPayment(context.Background(), userID, decimal.NewFromInt(350), "RZDEADBEEF")
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestProcessPaymentWrongUser(t *testing.T) {
	svc, store := newTestService(t)
	aliceID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})
	bobID := createUser(t, store, &models.User{
		Username: "bob", Email: "bob@example.com", ReferralCode: "BOB00001",
	})

	reference, err := svc.InitiateDeposit(context.Background(), aliceID, decimal.Zero, "card")
	require.NoError(t, err)

	err = svc.ProcessSuccessfulPayment(context.Background(), bobID, decimal.NewFromInt(350), reference)
	requireKind(t, err, KindValidation)

	// Alice's deposit is still pending and claimable.
	require.NoError(t, svc.ProcessSuccessfulPayment(context.Background(), aliceID, decimal.NewFromInt(350), reference))
}

func TestReferralCommissionActiveInviter(t *testing.T) {
	svc, store := newTestService(t)

	referrerID := createUser(t, store, &models.User{
		Username: "ref", Email: "ref@example.com", ReferralCode: "REF00001", IsActive: true,
	})
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001", ReferredBy: &referrerID,
	})

	initiateAndPay(t, svc, userID)

	referrer := getUser(t, store, referrerID)
	require.True(t, referrer.Balance.Equal(decimal.NewFromInt(150)))
	require.True(t, referrer.TotalEarned.Equal(decimal.NewFromInt(150)))
	require.Equal(t, 1, referrer.TotalReferrals)

	txns, err := store.GetUserTransactions(context.Background(), referrerID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, models.TxnReferral, txns[0].Type)

	notifications, err := store.GetNotifications(context.Background(), referrerID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "Referral Bonus!", notifications[0].Title)
}

func TestReferralCommissionInactiveInviter(t *testing.T) {
	svc, store := newTestService(t)

	referrerID := createUser(t, store, &models.User{
		Username: "ref", Email: "ref@example.com", ReferralCode: "REF00001",
	})
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001", ReferredBy: &referrerID,
	})

	initiateAndPay(t, svc, userID)

	// Inactive inviters earn the reduced tier.
	referrer := getUser(t, store, referrerID)
	require.True(t, referrer.Balance.Equal(decimal.NewFromInt(30)))
}

func TestOwnerCommission(t *testing.T) {
	store := repository.NewMemoryStore()
	ownerID := createUser(t, store, &models.User{
		Username: "owner", Email: "owner@example.com", ReferralCode: "OWNER001", IsActive: true, IsAdmin: true,
	})

	cfg := testConfig()
	cfg.OwnerUserID = ownerID
	svc := NewService(store, cfg, &StoreNotifier{Store: store})

	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001",
	})

	initiateAndPay(t, svc, userID)

	owner := getUser(t, store, ownerID)
	require.True(t, owner.Balance.Equal(decimal.NewFromInt(200)))

	txns, err := store.GetUserTransactions(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, models.TxnCommission, txns[0].Type)
}

func TestOwnerCommissionSkippedForOwnPurchase(t *testing.T) {
	store := repository.NewMemoryStore()
	ownerID := createUser(t, store, &models.User{
		Username: "owner", Email: "owner@example.com", ReferralCode: "OWNER001", IsAdmin: true,
	})

	cfg := testConfig()
	cfg.OwnerUserID = ownerID
	svc := NewService(store, cfg, &StoreNotifier{Store: store})

	initiateAndPay(t, svc, ownerID)

	owner := getUser(t, store, ownerID)
	require.True(t, owner.Balance.Equal(decimal.Zero))
	require.True(t, owner.IsActive)
}

func TestActivationRollsBackOnDuplicateReferral(t *testing.T) {
	svc, store := newTestService(t)

	referrerID := createUser(t, store, &models.User{
		Username: "ref", Email: "ref@example.com", ReferralCode: "REF00001", IsActive: true,
	})
	userID := createUser(t, store, &models.User{
		Username: "alice", Email: "alice@example.com", ReferralCode: "ALICE001", ReferredBy: &referrerID,
	})

	// A referral edge for this user already exists, so the unique constraint
	// must refuse the second payout and roll the whole activation back.
	err := store.InTransaction(context.Background(), func(tx repository.Tx) error {
		return tx.InsertReferral(context.Background(), &models.Referral{
			ReferrerID:     referrerID,
			ReferredID:     userID,
			CommissionPaid: decimal.NewFromInt(150),
			Activated:      true,
		})
	})
	require.NoError(t, err)

	reference, err := svc.InitiateDeposit(context.Background(), userID, decimal.Zero, "card")
	require.NoError(t, err)

	err = svc.ProcessSuccessfulPayment(context.Background(), userID, decimal.NewFromInt(350), reference)
	requireKind(t, err, KindPersistence)

	// Nothing from the failed activation stuck.
	user := getUser(t, store, userID)
	require.False(t, user.IsActive)

	referrer := getUser(t, store, referrerID)
	require.True(t, referrer.Balance.Equal(decimal.Zero))

	txns, err := store.GetUserTransactions(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, models.StatusPending, txns[0].Status)
}
