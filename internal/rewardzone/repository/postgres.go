package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

// InitDB initializes the database connection and schema
func (s *PostgresStore) InitDB(databaseURI string) error {
	db, err := sql.Open("pgx", databaseURI)
	if err != nil {
		return err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	s.db = db

	if err := s.createTables(); err != nil {
		db.Close()
		return err
	}

	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// createTables creates the necessary tables if they don't exist
func (s *PostgresStore) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(32) NOT NULL DEFAULT '',
			balance NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			total_earned NUMERIC(12, 2) NOT NULL DEFAULT 0,
			total_withdrawn NUMERIC(12, 2) NOT NULL DEFAULT 0,
			total_referrals INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			level INTEGER NOT NULL DEFAULT 1,
			xp BIGINT NOT NULL DEFAULT 0,
			daily_streak INTEGER NOT NULL DEFAULT 0,
			referral_code VARCHAR(16) UNIQUE NOT NULL,
			referred_by INTEGER REFERENCES users(id),
			last_spin TIMESTAMP,
			last_login TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS missions (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			reward NUMERIC(12, 2) NOT NULL DEFAULT 0,
			xp BIGINT NOT NULL DEFAULT 0,
			mission_type VARCHAR(20) NOT NULL,
			user_type VARCHAR(20) NOT NULL DEFAULT 'all',
			action_type VARCHAR(50) NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS user_missions (
			user_id INTEGER NOT NULL REFERENCES users(id),
			mission_id INTEGER NOT NULL REFERENCES missions(id),
			progress INTEGER NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMP,
			last_completed DATE,
			PRIMARY KEY (user_id, mission_id)
		)`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			amount NUMERIC(12, 2) NOT NULL,
			method VARCHAR(50) NOT NULL,
			account_number VARCHAR(64) NOT NULL,
			account_name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			rejection_reason TEXT NOT NULL DEFAULT '',
			processed_by INTEGER REFERENCES users(id),
			processed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			type VARCHAR(20) NOT NULL,
			amount NUMERIC(12, 2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'completed',
			method VARCHAR(50) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			reference VARCHAR(64),
			withdrawal_id INTEGER REFERENCES withdrawals(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			processed_at TIMESTAMP,
			CONSTRAINT transactions_reference_key UNIQUE (reference)
		)`,
		`CREATE TABLE IF NOT EXISTS spin_history (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			reward_amount NUMERIC(12, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS referrals (
			id SERIAL PRIMARY KEY,
			referrer_id INTEGER NOT NULL REFERENCES users(id),
			referred_id INTEGER UNIQUE NOT NULL REFERENCES users(id),
			commission_paid NUMERIC(12, 2) NOT NULL,
			referral_activated BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			title VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			severity VARCHAR(20) NOT NULL DEFAULT 'info',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// isDuplicate reports whether err is a unique-constraint violation.
func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const userColumns = `id, username, email, password_hash, full_name, phone,
	balance, total_earned, total_withdrawn, total_referrals,
	is_active, is_admin, level, xp, daily_streak,
	referral_code, referred_by, last_spin, last_login, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var referredBy sql.NullInt64
	var lastSpin, lastLogin sql.NullTime

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.FullName, &user.Phone,
		&user.Balance, &user.TotalEarned, &user.TotalWithdrawn, &user.TotalReferrals,
		&user.IsActive, &user.IsAdmin, &user.Level, &user.XP, &user.DailyStreak,
		&user.ReferralCode, &referredBy, &lastSpin, &lastLogin, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if referredBy.Valid {
		user.ReferredBy = &referredBy.Int64
	}
	if lastSpin.Valid {
		t := lastSpin.Time
		user.LastSpin = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return user, nil
}

// User store methods
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	var id int64
	var referredBy sql.NullInt64
	if user.ReferredBy != nil {
		referredBy = sql.NullInt64{Int64: *user.ReferredBy, Valid: true}
	}

	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO users (username, email, password_hash, full_name, phone, referral_code, referred_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.Phone, user.ReferralCode, referredBy,
	).Scan(&id)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}

	return id, nil
}

func (s *PostgresStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`,
		login,
	)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
	return scanUser(row)
}

func (s *PostgresStore) UpdateLoginStreak(ctx context.Context, userID int64, streak int, loginAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE users SET daily_streak = $1, last_login = $2 WHERE id = $3`,
		streak, loginAt, userID,
	)
	return err
}

// Mission catalog methods
func (s *PostgresStore) SeedMissions(ctx context.Context, missions []models.Mission) error {
	for _, m := range missions {
		_, err := s.db.ExecContext(
			ctx,
			`INSERT INTO missions (title, description, reward, xp, mission_type, user_type, action_type, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (title) DO NOTHING`,
			m.Title, m.Description, m.Reward, m.XP, m.MissionType, m.UserType, m.ActionType, m.IsActive,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetMissionByAction(ctx context.Context, actionType, missionType string) (*models.Mission, error) {
	m := &models.Mission{}
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, title, description, reward, xp, mission_type, user_type, action_type, is_active
		 FROM missions
		 WHERE action_type = $1 AND mission_type = $2 AND is_active = TRUE
		 LIMIT 1`,
		actionType, missionType,
	).Scan(&m.ID, &m.Title, &m.Description, &m.Reward, &m.XP, &m.MissionType, &m.UserType, &m.ActionType, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) GetUserMissions(ctx context.Context, userID int64, premium bool) ([]models.MissionStatus, error) {
	audience := models.AudienceFree
	if premium {
		audience = models.AudiencePremium
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT m.id, m.title, m.description, m.reward, m.xp, m.mission_type, m.user_type, m.action_type, m.is_active,
			COALESCE(um.progress, 0), COALESCE(um.completed, FALSE), um.last_completed
		 FROM missions m
		 LEFT JOIN user_missions um ON m.id = um.mission_id AND um.user_id = $1
		 WHERE m.is_active = TRUE AND (m.user_type = 'all' OR m.user_type = $2)
		 ORDER BY m.user_type DESC, m.reward DESC`,
		userID, audience,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missions []models.MissionStatus
	for rows.Next() {
		var m models.MissionStatus
		var lastCompleted sql.NullTime
		if err := rows.Scan(
			&m.ID, &m.Title, &m.Description, &m.Reward, &m.XP, &m.MissionType, &m.UserType, &m.ActionType, &m.IsActive,
			&m.Progress, &m.Completed, &lastCompleted,
		); err != nil {
			return nil, err
		}
		if lastCompleted.Valid {
			t := lastCompleted.Time
			m.LastCompleted = &t
		}
		missions = append(missions, m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return missions, nil
}

// Read surface methods
func (s *PostgresStore) GetUserTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, type, amount, status, method, description,
			COALESCE(reference, ''), withdrawal_id, created_at, processed_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var withdrawalID sql.NullInt64
	var processedAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Method, &t.Description,
		&t.Reference, &withdrawalID, &t.CreatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	if withdrawalID.Valid {
		t.WithdrawalID = &withdrawalID.Int64
	}
	if processedAt.Valid {
		pt := processedAt.Time
		t.ProcessedAt = &pt
	}
	return t, nil
}

const withdrawalColumns = `id, user_id, amount, method, account_number, account_name,
	status, rejection_reason, processed_by, processed_at, created_at`

func scanWithdrawal(row rowScanner) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	var processedBy sql.NullInt64
	var processedAt sql.NullTime

	err := row.Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Method, &w.AccountNumber, &w.AccountName,
		&w.Status, &w.RejectionReason, &processedBy, &processedAt, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if processedBy.Valid {
		w.ProcessedBy = &processedBy.Int64
	}
	if processedAt.Valid {
		t := processedAt.Time
		w.ProcessedAt = &t
	}
	return w, nil
}

func (s *PostgresStore) GetUserWithdrawals(ctx context.Context, userID int64) ([]models.Withdrawal, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (s *PostgresStore) GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT w.id, w.user_id, w.amount, w.method, w.account_number, w.account_name,
			w.status, w.rejection_reason, w.processed_by, w.processed_at, w.created_at, u.username
		 FROM withdrawals w
		 JOIN users u ON w.user_id = u.id
		 WHERE w.status = 'pending'
		 ORDER BY w.created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []models.Withdrawal
	for rows.Next() {
		w := models.Withdrawal{}
		var processedBy sql.NullInt64
		var processedAt sql.NullTime
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Amount, &w.Method, &w.AccountNumber, &w.AccountName,
			&w.Status, &w.RejectionReason, &processedBy, &processedAt, &w.CreatedAt, &w.Username,
		); err != nil {
			return nil, err
		}
		if processedBy.Valid {
			w.ProcessedBy = &processedBy.Int64
		}
		if processedAt.Valid {
			t := processedAt.Time
			w.ProcessedAt = &t
		}
		withdrawals = append(withdrawals, w)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (s *PostgresStore) GetSpinHistory(ctx context.Context, userID int64, limit int) ([]models.SpinResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, reward_amount, created_at
		 FROM spin_history
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spins []models.SpinResult
	for rows.Next() {
		var sp models.SpinResult
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.Reward, &sp.CreatedAt); err != nil {
			return nil, err
		}
		spins = append(spins, sp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return spins, nil
}

func (s *PostgresStore) GetSpinStats(ctx context.Context, userID int64) (*models.SpinStats, error) {
	stats := &models.SpinStats{}
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COALESCE(SUM(reward_amount), 0), COALESCE(MAX(reward_amount), 0)
		 FROM spin_history
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalSpins, &stats.TotalWon, &stats.HighestWin)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *PostgresStore) GetNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, title, message, severity, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Severity, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO notifications (user_id, title, message, severity) VALUES ($1, $2, $3, $4)`,
		n.UserID, n.Title, n.Message, n.Severity,
	)
	return err
}

// ExpirePendingDeposits rejects pending deposit transactions created before
// olderThan. Deposits hold no funds, so no balance compensation is needed.
func (s *PostgresStore) ExpirePendingDeposits(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE transactions
		 SET status = 'rejected', processed_at = CURRENT_TIMESTAMP
		 WHERE type = 'deposit' AND status = 'pending' AND created_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InTransaction runs fn inside a single database transaction
func (s *PostgresStore) InTransaction(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		sqlTx.Rollback()
		return err
	}

	return sqlTx.Commit()
}

// pgTx implements Tx over an open *sql.Tx
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) GetUserForUpdate(ctx context.Context, id int64) (*models.User, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

func (t *pgTx) CreditUser(ctx context.Context, userID int64, amount decimal.Decimal, xp int64) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE users
		 SET balance = balance + $1, total_earned = total_earned + $1, xp = xp + $2
		 WHERE id = $3`,
		amount, xp, userID,
	)
	return err
}

func (t *pgTx) DebitBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE users SET balance = balance - $1 WHERE id = $2`,
		amount, userID,
	)
	return err
}

// RefundBalance returns held funds to the balance without touching
// total_earned; the money was already counted as earned when first credited.
func (t *pgTx) RefundBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2`,
		amount, userID,
	)
	return err
}

func (t *pgTx) AddWithdrawn(ctx context.Context, userID int64, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE users SET total_withdrawn = total_withdrawn + $1 WHERE id = $2`,
		amount, userID,
	)
	return err
}

func (t *pgTx) SetLevel(ctx context.Context, userID int64, level int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE users SET level = $1 WHERE id = $2`, level, userID)
	return err
}

func (t *pgTx) SetLastSpin(ctx context.Context, userID int64, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE users SET last_spin = $1 WHERE id = $2`, at, userID)
	return err
}

func (t *pgTx) ActivateUser(ctx context.Context, userID int64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE users SET is_active = TRUE WHERE id = $1`, userID)
	return err
}

func (t *pgTx) IncrementReferrals(ctx context.Context, userID int64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE users SET total_referrals = total_referrals + 1 WHERE id = $1`, userID)
	return err
}

func (t *pgTx) GetMission(ctx context.Context, id int64) (*models.Mission, error) {
	m := &models.Mission{}
	err := t.tx.QueryRowContext(
		ctx,
		`SELECT id, title, description, reward, xp, mission_type, user_type, action_type, is_active
		 FROM missions WHERE id = $1 AND is_active = TRUE`,
		id,
	).Scan(&m.ID, &m.Title, &m.Description, &m.Reward, &m.XP, &m.MissionType, &m.UserType, &m.ActionType, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (t *pgTx) GetUserMission(ctx context.Context, userID, missionID int64) (*models.UserMission, error) {
	um := &models.UserMission{}
	var completedAt, lastCompleted sql.NullTime

	err := t.tx.QueryRowContext(
		ctx,
		`SELECT user_id, mission_id, progress, completed, completed_at, last_completed
		 FROM user_missions
		 WHERE user_id = $1 AND mission_id = $2
		 FOR UPDATE`,
		userID, missionID,
	).Scan(&um.UserID, &um.MissionID, &um.Progress, &um.Completed, &completedAt, &lastCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if completedAt.Valid {
		ct := completedAt.Time
		um.CompletedAt = &ct
	}
	if lastCompleted.Valid {
		lt := lastCompleted.Time
		um.LastCompleted = &lt
	}
	return um, nil
}

func (t *pgTx) UpsertUserMission(ctx context.Context, userID, missionID int64, completedAt time.Time) error {
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO user_missions (user_id, mission_id, progress, completed, completed_at, last_completed)
		 VALUES ($1, $2, 1, TRUE, $3, $3::date)
		 ON CONFLICT (user_id, mission_id) DO UPDATE SET
			progress = user_missions.progress + 1,
			completed = TRUE,
			completed_at = EXCLUDED.completed_at,
			last_completed = EXCLUDED.last_completed`,
		userID, missionID, completedAt,
	)
	return err
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn *models.Transaction) (int64, error) {
	var id int64
	var reference sql.NullString
	if txn.Reference != "" {
		reference = sql.NullString{String: txn.Reference, Valid: true}
	}
	var withdrawalID sql.NullInt64
	if txn.WithdrawalID != nil {
		withdrawalID = sql.NullInt64{Int64: *txn.WithdrawalID, Valid: true}
	}

	err := t.tx.QueryRowContext(
		ctx,
		`INSERT INTO transactions (user_id, type, amount, status, method, description, reference, withdrawal_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		txn.UserID, txn.Type, txn.Amount, txn.Status, txn.Method, txn.Description, reference, withdrawalID,
	).Scan(&id)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (t *pgTx) SetTransactionStatus(ctx context.Context, id int64, status string, processedAt time.Time) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE transactions SET status = $1, processed_at = $2 WHERE id = $3`,
		status, processedAt, id,
	)
	return err
}

func (t *pgTx) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT id, user_id, type, amount, status, method, description,
			COALESCE(reference, ''), withdrawal_id, created_at, processed_at
		 FROM transactions
		 WHERE reference = $1
		 FOR UPDATE`,
		reference,
	)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return txn, nil
}

func (t *pgTx) GetTransactionByWithdrawal(ctx context.Context, withdrawalID int64) (*models.Transaction, error) {
	row := t.tx.QueryRowContext(
		ctx,
		`SELECT id, user_id, type, amount, status, method, description,
			COALESCE(reference, ''), withdrawal_id, created_at, processed_at
		 FROM transactions
		 WHERE withdrawal_id = $1 AND type = 'withdrawal'`,
		withdrawalID,
	)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return txn, nil
}

func (t *pgTx) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(
		ctx,
		`INSERT INTO withdrawals (user_id, amount, method, account_number, account_name, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending') RETURNING id`,
		w.UserID, w.Amount, w.Method, w.AccountNumber, w.AccountName,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *pgTx) GetWithdrawalForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (t *pgTx) SetWithdrawalStatus(ctx context.Context, id int64, status, reason string, adminID int64, processedAt time.Time) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE withdrawals
		 SET status = $1, rejection_reason = $2, processed_by = $3, processed_at = $4
		 WHERE id = $5`,
		status, reason, adminID, processedAt, id,
	)
	return err
}

func (t *pgTx) HasPendingWithdrawal(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM withdrawals WHERE user_id = $1 AND status = 'pending')`,
		userID,
	).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertSpin(ctx context.Context, userID int64, reward decimal.Decimal, at time.Time) error {
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO spin_history (user_id, reward_amount, created_at) VALUES ($1, $2, $3)`,
		userID, reward, at,
	)
	return err
}

func (t *pgTx) InsertReferral(ctx context.Context, r *models.Referral) error {
	_, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO referrals (referrer_id, referred_id, commission_paid, referral_activated)
		 VALUES ($1, $2, $3, $4)`,
		r.ReferrerID, r.ReferredID, r.CommissionPaid, r.Activated,
	)
	if err != nil && isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}
