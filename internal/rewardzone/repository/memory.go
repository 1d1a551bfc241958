package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory Store used in tests. InTransaction holds a
// single mutex for the duration of the callback, which mirrors the row-locked
// serialization the Postgres store provides, and restores a snapshot of the
// full state when the callback fails so rollbacks are observable.
type MemoryStore struct {
	mu sync.Mutex

	users         map[int64]*models.User
	missions      map[int64]*models.Mission
	userMissions  map[[2]int64]*models.UserMission
	transactions  map[int64]*models.Transaction
	withdrawals   map[int64]*models.Withdrawal
	spins         []models.SpinResult
	referrals     map[int64]*models.Referral // keyed by referred_id
	notifications []models.Notification

	nextUserID        int64
	nextMissionID     int64
	nextTransactionID int64
	nextWithdrawalID  int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:             make(map[int64]*models.User),
		missions:          make(map[int64]*models.Mission),
		userMissions:      make(map[[2]int64]*models.UserMission),
		transactions:      make(map[int64]*models.Transaction),
		withdrawals:       make(map[int64]*models.Withdrawal),
		referrals:         make(map[int64]*models.Referral),
		nextUserID:        1,
		nextMissionID:     1,
		nextTransactionID: 1,
		nextWithdrawalID:  1,
	}
}

func (s *MemoryStore) InitDB(string) error { return nil }
func (s *MemoryStore) Close() error        { return nil }

func copyUser(u *models.User) *models.User {
	c := *u
	if u.ReferredBy != nil {
		v := *u.ReferredBy
		c.ReferredBy = &v
	}
	if u.LastSpin != nil {
		v := *u.LastSpin
		c.LastSpin = &v
	}
	if u.LastLogin != nil {
		v := *u.LastLogin
		c.LastLogin = &v
	}
	return &c
}

func copyUserMission(um *models.UserMission) *models.UserMission {
	c := *um
	if um.CompletedAt != nil {
		v := *um.CompletedAt
		c.CompletedAt = &v
	}
	if um.LastCompleted != nil {
		v := *um.LastCompleted
		c.LastCompleted = &v
	}
	return &c
}

func copyTransaction(t *models.Transaction) *models.Transaction {
	c := *t
	if t.WithdrawalID != nil {
		v := *t.WithdrawalID
		c.WithdrawalID = &v
	}
	if t.ProcessedAt != nil {
		v := *t.ProcessedAt
		c.ProcessedAt = &v
	}
	return &c
}

func copyWithdrawal(w *models.Withdrawal) *models.Withdrawal {
	c := *w
	if w.ProcessedBy != nil {
		v := *w.ProcessedBy
		c.ProcessedBy = &v
	}
	if w.ProcessedAt != nil {
		v := *w.ProcessedAt
		c.ProcessedAt = &v
	}
	return &c
}

type memorySnapshot struct {
	users        map[int64]*models.User
	userMissions map[[2]int64]*models.UserMission
	transactions map[int64]*models.Transaction
	withdrawals  map[int64]*models.Withdrawal
	spins        []models.SpinResult
	referrals    map[int64]*models.Referral

	nextTransactionID int64
	nextWithdrawalID  int64
}

func (s *MemoryStore) snapshot() *memorySnapshot {
	snap := &memorySnapshot{
		users:             make(map[int64]*models.User, len(s.users)),
		userMissions:      make(map[[2]int64]*models.UserMission, len(s.userMissions)),
		transactions:      make(map[int64]*models.Transaction, len(s.transactions)),
		withdrawals:       make(map[int64]*models.Withdrawal, len(s.withdrawals)),
		spins:             append([]models.SpinResult(nil), s.spins...),
		referrals:         make(map[int64]*models.Referral, len(s.referrals)),
		nextTransactionID: s.nextTransactionID,
		nextWithdrawalID:  s.nextWithdrawalID,
	}
	for id, u := range s.users {
		snap.users[id] = copyUser(u)
	}
	for k, um := range s.userMissions {
		snap.userMissions[k] = copyUserMission(um)
	}
	for id, t := range s.transactions {
		snap.transactions[id] = copyTransaction(t)
	}
	for id, w := range s.withdrawals {
		snap.withdrawals[id] = copyWithdrawal(w)
	}
	for id, r := range s.referrals {
		c := *r
		snap.referrals[id] = &c
	}
	return snap
}

func (s *MemoryStore) restore(snap *memorySnapshot) {
	s.users = snap.users
	s.userMissions = snap.userMissions
	s.transactions = snap.transactions
	s.withdrawals = snap.withdrawals
	s.spins = snap.spins
	s.referrals = snap.referrals
	s.nextTransactionID = snap.nextTransactionID
	s.nextWithdrawalID = snap.nextWithdrawalID
}

// InTransaction serializes callers and restores the pre-transaction state
// when fn fails.
func (s *MemoryStore) InTransaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memTx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email || u.ReferralCode == user.ReferralCode {
			return 0, ErrDuplicate
		}
	}

	c := copyUser(user)
	c.ID = s.nextUserID
	if c.Level == 0 {
		c.Level = 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.nextUserID++
	s.users[c.ID] = c
	return c.ID, nil
}

func (s *MemoryStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == login || u.Email == login {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ReferralCode == code {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) UpdateLoginStreak(ctx context.Context, userID int64, streak int, loginAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.DailyStreak = streak
		t := loginAt
		u.LastLogin = &t
	}
	return nil
}

func (s *MemoryStore) SeedMissions(ctx context.Context, missions []models.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

outer:
	for _, m := range missions {
		for _, existing := range s.missions {
			if existing.Title == m.Title {
				continue outer
			}
		}
		c := m
		c.ID = s.nextMissionID
		s.nextMissionID++
		s.missions[c.ID] = &c
	}
	return nil
}

func (s *MemoryStore) GetMissionByAction(ctx context.Context, actionType, missionType string) (*models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.missions {
		if m.ActionType == actionType && m.MissionType == missionType && m.IsActive {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetUserMissions(ctx context.Context, userID int64, premium bool) ([]models.MissionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	audience := models.AudienceFree
	if premium {
		audience = models.AudiencePremium
	}

	var out []models.MissionStatus
	for _, m := range s.missions {
		if !m.IsActive || (m.UserType != models.AudienceAll && m.UserType != audience) {
			continue
		}
		ms := models.MissionStatus{Mission: *m}
		if um, ok := s.userMissions[[2]int64{userID, m.ID}]; ok {
			ms.Progress = um.Progress
			ms.Completed = um.Completed
			if um.LastCompleted != nil {
				v := *um.LastCompleted
				ms.LastCompleted = &v
			}
		}
		out = append(out, ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetUserTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, *copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetUserWithdrawals(ctx context.Context, userID int64) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			out = append(out, *copyWithdrawal(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.Status == models.StatusPending {
			c := *copyWithdrawal(w)
			if u, ok := s.users[w.UserID]; ok {
				c.Username = u.Username
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetSpinHistory(ctx context.Context, userID int64, limit int) ([]models.SpinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SpinResult
	for i := len(s.spins) - 1; i >= 0 && len(out) < limit; i-- {
		if s.spins[i].UserID == userID {
			out = append(out, s.spins[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) GetSpinStats(ctx context.Context, userID int64) (*models.SpinStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &models.SpinStats{TotalWon: decimal.Zero, HighestWin: decimal.Zero}
	for _, sp := range s.spins {
		if sp.UserID != userID {
			continue
		}
		stats.TotalSpins++
		stats.TotalWon = stats.TotalWon.Add(sp.Reward)
		if sp.Reward.GreaterThan(stats.HighestWin) {
			stats.HighestWin = sp.Reward
		}
	}
	return stats, nil
}

func (s *MemoryStore) GetNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *n
	c.ID = int64(len(s.notifications) + 1)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.notifications = append(s.notifications, c)
	return nil
}

func (s *MemoryStore) ExpirePendingDeposits(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := time.Now()
	for _, t := range s.transactions {
		if t.Type == models.TxnDeposit && t.Status == models.StatusPending && t.CreatedAt.Before(olderThan) {
			t.Status = models.StatusRejected
			pt := now
			t.ProcessedAt = &pt
			n++
		}
	}
	return n, nil
}

// memTx implements Tx directly against the store maps. The store mutex is
// already held by InTransaction.
type memTx struct {
	store *MemoryStore
}

func (t *memTx) GetUserForUpdate(ctx context.Context, id int64) (*models.User, error) {
	u, ok := t.store.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (t *memTx) CreditUser(ctx context.Context, userID int64, amount decimal.Decimal, xp int64) error {
	u := t.store.users[userID]
	u.Balance = u.Balance.Add(amount)
	u.TotalEarned = u.TotalEarned.Add(amount)
	u.XP += xp
	return nil
}

func (t *memTx) DebitBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	u := t.store.users[userID]
	u.Balance = u.Balance.Sub(amount)
	return nil
}

func (t *memTx) RefundBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	u := t.store.users[userID]
	u.Balance = u.Balance.Add(amount)
	return nil
}

func (t *memTx) AddWithdrawn(ctx context.Context, userID int64, amount decimal.Decimal) error {
	u := t.store.users[userID]
	u.TotalWithdrawn = u.TotalWithdrawn.Add(amount)
	return nil
}

func (t *memTx) SetLevel(ctx context.Context, userID int64, level int) error {
	t.store.users[userID].Level = level
	return nil
}

func (t *memTx) SetLastSpin(ctx context.Context, userID int64, at time.Time) error {
	v := at
	t.store.users[userID].LastSpin = &v
	return nil
}

func (t *memTx) ActivateUser(ctx context.Context, userID int64) error {
	t.store.users[userID].IsActive = true
	return nil
}

func (t *memTx) IncrementReferrals(ctx context.Context, userID int64) error {
	t.store.users[userID].TotalReferrals++
	return nil
}

func (t *memTx) GetMission(ctx context.Context, id int64) (*models.Mission, error) {
	m, ok := t.store.missions[id]
	if !ok || !m.IsActive {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (t *memTx) GetUserMission(ctx context.Context, userID, missionID int64) (*models.UserMission, error) {
	um, ok := t.store.userMissions[[2]int64{userID, missionID}]
	if !ok {
		return nil, nil
	}
	return copyUserMission(um), nil
}

func (t *memTx) UpsertUserMission(ctx context.Context, userID, missionID int64, completedAt time.Time) error {
	key := [2]int64{userID, missionID}
	day := time.Date(completedAt.Year(), completedAt.Month(), completedAt.Day(), 0, 0, 0, 0, completedAt.Location())

	um, ok := t.store.userMissions[key]
	if !ok {
		um = &models.UserMission{UserID: userID, MissionID: missionID}
		t.store.userMissions[key] = um
	}
	um.Progress++
	um.Completed = true
	ct := completedAt
	um.CompletedAt = &ct
	um.LastCompleted = &day
	return nil
}

func (t *memTx) InsertTransaction(ctx context.Context, txn *models.Transaction) (int64, error) {
	if txn.Reference != "" {
		for _, existing := range t.store.transactions {
			if existing.Reference == txn.Reference {
				return 0, ErrDuplicate
			}
		}
	}

	c := copyTransaction(txn)
	c.ID = t.store.nextTransactionID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	t.store.nextTransactionID++
	t.store.transactions[c.ID] = c
	return c.ID, nil
}

func (t *memTx) SetTransactionStatus(ctx context.Context, id int64, status string, processedAt time.Time) error {
	if txn, ok := t.store.transactions[id]; ok {
		txn.Status = status
		pt := processedAt
		txn.ProcessedAt = &pt
	}
	return nil
}

func (t *memTx) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	for _, txn := range t.store.transactions {
		if txn.Reference == reference {
			return copyTransaction(txn), nil
		}
	}
	return nil, nil
}

func (t *memTx) GetTransactionByWithdrawal(ctx context.Context, withdrawalID int64) (*models.Transaction, error) {
	for _, txn := range t.store.transactions {
		if txn.WithdrawalID != nil && *txn.WithdrawalID == withdrawalID && txn.Type == models.TxnWithdrawal {
			return copyTransaction(txn), nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) (int64, error) {
	c := copyWithdrawal(w)
	c.ID = t.store.nextWithdrawalID
	c.Status = models.StatusPending
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	t.store.nextWithdrawalID++
	t.store.withdrawals[c.ID] = c
	return c.ID, nil
}

func (t *memTx) GetWithdrawalForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	w, ok := t.store.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return copyWithdrawal(w), nil
}

func (t *memTx) SetWithdrawalStatus(ctx context.Context, id int64, status, reason string, adminID int64, processedAt time.Time) error {
	if w, ok := t.store.withdrawals[id]; ok {
		w.Status = status
		w.RejectionReason = reason
		admin := adminID
		w.ProcessedBy = &admin
		pt := processedAt
		w.ProcessedAt = &pt
	}
	return nil
}

func (t *memTx) HasPendingWithdrawal(ctx context.Context, userID int64) (bool, error) {
	for _, w := range t.store.withdrawals {
		if w.UserID == userID && w.Status == models.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertSpin(ctx context.Context, userID int64, reward decimal.Decimal, at time.Time) error {
	t.store.spins = append(t.store.spins, models.SpinResult{
		ID:        int64(len(t.store.spins) + 1),
		UserID:    userID,
		Reward:    reward,
		CreatedAt: at,
	})
	return nil
}

func (t *memTx) InsertReferral(ctx context.Context, r *models.Referral) error {
	if _, exists := t.store.referrals[r.ReferredID]; exists {
		return ErrDuplicate
	}
	c := *r
	c.ID = int64(len(t.store.referrals) + 1)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	t.store.referrals[r.ReferredID] = &c
	return nil
}
