package service

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
	"github.com/shopspring/decimal"
)

// Config carries the externally supplied business constants.
type Config struct {
	MinWithdrawal             decimal.Decimal
	SpinCooldownHours         int
	PackPrice                 decimal.Decimal
	OwnerCommission           decimal.Decimal
	ActiveInviterCommission   decimal.Decimal
	InactiveInviterCommission decimal.Decimal
	OwnerUserID               int64
}

// Notifier records user-visible messages. It is fire-and-forget: a failed
// notification never affects the ledger transaction it follows.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, message, severity string)
}

// StoreNotifier persists notifications through the store, logging failures.
type StoreNotifier struct {
	Store repository.Store
}

func (n *StoreNotifier) Notify(ctx context.Context, userID int64, title, message, severity string) {
	err := n.Store.InsertNotification(ctx, &models.Notification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Severity: severity,
	})
	if err != nil {
		log.Printf("notification for user %d dropped: %v", userID, err)
	}
}

// Service implements the reward ledger operations: mission fulfillment, spin
// rewards, the withdrawal workflow and the activation/referral cascade.
type Service struct {
	store    repository.Store
	cfg      Config
	notifier Notifier

	now  func() time.Time
	roll func() int // uniform draw over [1,100]
}

// NewService creates a ledger service over the given store.
func NewService(store repository.Store, cfg Config, notifier Notifier) *Service {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex

	return &Service{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
		roll: func() int {
			mu.Lock()
			defer mu.Unlock()
			return rng.Intn(100) + 1
		},
	}
}

// note is a notification queued during a ledger transaction and emitted only
// after the transaction commits.
type note struct {
	userID   int64
	title    string
	message  string
	severity string
}

func (s *Service) emit(ctx context.Context, notes []note) {
	if s.notifier == nil {
		return
	}
	for _, n := range notes {
		s.notifier.Notify(ctx, n.userID, n.title, n.message, n.severity)
	}
}

// UserStats returns the wallet and progression snapshot for a user.
func (s *Service) UserStats(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, persistenceError("user stats", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
