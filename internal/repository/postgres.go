// Package repository содержит реализации хранилища данных платформы: PostgreSQL и in-memory.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var connectDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
// Все многошаговые операции с балансом выполняются в одной транзакции
// с блокировкой строки пользователя.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.pingWithRetry(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// pingWithRetry повторяет проверку соединения при старте, пока БД поднимается.
func (r *PostgresRepository) pingWithRetry(ctx context.Context) error {
	var err error
	for i := 0; i <= len(connectDelays); i++ {
		err = r.pool.Ping(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isConnectionError(err) || i == len(connectDelays) {
			break
		}

		timer := time.NewTimer(connectDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "the database system is starting up")
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const userColumns = `id, username, password_hash, phone, role, approved, balance, total_earnings, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u        model.User
		role     string
		balance  int64
		earnings int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Phone, &role, &u.Approved, &balance, &earnings, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.Balance = fromCents(balance)
	u.TotalEarnings = fromCents(earnings)
	return &u, nil
}

// CreateUser создаёт нового пользователя с нулевым балансом.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, password_hash, phone, role, approved)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash, u.Phone, string(u.Role), u.Approved,
	).Scan(&u.CreatedAt)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
		}
		return persistErr("create user", err)
	}
	u.Balance = decimal.Zero
	u.TotalEarnings = decimal.Zero
	return nil
}

// GetUser возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, persistErr("get user", err)
	}
	return u, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, persistErr("get user", err)
	}
	return u, nil
}

// ListUsersByApproval возвращает пользователей с указанным признаком подтверждения.
func (r *PostgresRepository) ListUsersByApproval(ctx context.Context, approved bool) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE approved = $1 ORDER BY created_at`, approved)
	if err != nil {
		return nil, persistErr("select users", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, persistErr("scan user", err)
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("rows error", err)
	}
	return res, nil
}

// SetUserApproved меняет признак подтверждения регистрации.
func (r *PostgresRepository) SetUserApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return persistErr("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateAd сохраняет новое объявление.
func (r *PostgresRepository) CreateAd(ctx context.Context, ad *model.Ad) error {
	reward, err := toCents(ad.Reward)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO ads (id, title, type, url, reward, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		ad.ID, ad.Title, string(ad.Type), ad.URL, reward, ad.Active,
	).Scan(&ad.CreatedAt)
	if err != nil {
		return persistErr("create ad", err)
	}
	return nil
}

func scanAd(row pgx.Row) (*model.Ad, error) {
	var (
		ad     model.Ad
		adType string
		reward int64
	)
	if err := row.Scan(&ad.ID, &ad.Title, &adType, &ad.URL, &reward, &ad.Active, &ad.CreatedAt); err != nil {
		return nil, err
	}
	ad.Type = model.AdType(adType)
	ad.Reward = fromCents(reward)
	return &ad, nil
}

// GetAd возвращает объявление по идентификатору.
func (r *PostgresRepository) GetAd(ctx context.Context, id uuid.UUID) (*model.Ad, error) {
	ad, err := scanAd(r.pool.QueryRow(ctx,
		`SELECT id, title, type, url, reward, active, created_at FROM ads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdNotFound
		}
		return nil, persistErr("get ad", err)
	}
	return ad, nil
}

// ListAds возвращает объявления, новые первыми.
func (r *PostgresRepository) ListAds(ctx context.Context, activeOnly bool) ([]model.Ad, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, type, url, reward, active, created_at
		 FROM ads
		 WHERE active OR NOT $1
		 ORDER BY created_at DESC`,
		activeOnly,
	)
	if err != nil {
		return nil, persistErr("select ads", err)
	}
	defer rows.Close()

	var res []model.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, persistErr("scan ad", err)
		}
		res = append(res, *ad)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("rows error", err)
	}
	return res, nil
}

// SetAdActive включает или выключает объявление.
func (r *PostgresRepository) SetAdActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE ads SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return persistErr("update ad", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAdNotFound
	}
	return nil
}

// ListWatchedAds возвращает объявления, за которые пользователь уже получил вознаграждение.
func (r *PostgresRepository) ListWatchedAds(ctx context.Context, userID uuid.UUID) ([]model.WatchedAd, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, ad_id, view_count, created_at FROM watched_ads WHERE user_id = $1`, userID)
	if err != nil {
		return nil, persistErr("select watched ads", err)
	}
	defer rows.Close()

	var res []model.WatchedAd
	for rows.Next() {
		var w model.WatchedAd
		if err := rows.Scan(&w.UserID, &w.AdID, &w.ViewCount, &w.CreatedAt); err != nil {
			return nil, persistErr("scan watched ad", err)
		}
		res = append(res, w)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("rows error", err)
	}
	return res, nil
}

// lockUser блокирует строку пользователя до конца транзакции и возвращает текущий баланс в центах.
func lockUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, persistErr("lock user for update", err)
	}
	return balance, nil
}

func credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, cents int64) (*model.Account, error) {
	var balance, earnings int64
	err := tx.QueryRow(ctx,
		`UPDATE users
		 SET balance = balance + $2, total_earnings = total_earnings + $2
		 WHERE id = $1
		 RETURNING balance, total_earnings`,
		userID, cents,
	).Scan(&balance, &earnings)
	if err != nil {
		return nil, persistErr("credit balance", err)
	}
	return &model.Account{Balance: fromCents(balance), TotalEarnings: fromCents(earnings)}, nil
}

// ClaimAdReward фиксирует просмотр объявления и начисляет вознаграждение в одной транзакции.
// Повторное получение вознаграждения отсекается первичным ключом (user_id, ad_id).
func (r *PostgresRepository) ClaimAdReward(ctx context.Context, rec model.WatchedAd, reward decimal.Decimal) (*model.Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := lockUser(ctx, tx, rec.UserID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO watched_ads (user_id, ad_id, view_count) VALUES ($1, $2, $3)`,
		rec.UserID, rec.AdID, rec.ViewCount,
	)
	if err != nil {
		switch pgCode(err) {
		case pgerrcode.UniqueViolation:
			return nil, ErrAlreadyClaimed
		case pgerrcode.ForeignKeyViolation:
			return nil, ErrAdNotFound
		}
		return nil, persistErr("insert watched ad", err)
	}

	cents, err := toCents(reward)
	if err != nil {
		return nil, err
	}

	acc, err := credit(ctx, tx, rec.UserID, cents)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}
	return acc, nil
}

// Credit начисляет сумму на баланс и в общий заработок пользователя.
func (r *PostgresRepository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*model.Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := lockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	cents, err := toCents(amount)
	if err != nil {
		return nil, err
	}

	acc, err := credit(ctx, tx, userID, cents)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}
	return acc, nil
}

// CreateWithdrawal списывает сумму с баланса и создаёт заявку в статусе pending.
// Блокировка строки пользователя сериализует параллельные списания.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, w *model.Withdrawal) (*model.Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	current, err := lockUser(ctx, tx, w.UserID)
	if err != nil {
		return nil, err
	}

	amount, err := toCents(w.Amount)
	if err != nil || amount > current {
		return nil, ErrInsufficientBalance
	}

	var balance, earnings int64
	err = tx.QueryRow(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id = $1 RETURNING balance, total_earnings`,
		w.UserID, amount,
	).Scan(&balance, &earnings)
	if err != nil {
		if pgCode(err) == pgerrcode.CheckViolation {
			return nil, ErrInsufficientBalance
		}
		return nil, persistErr("deduct balance", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO withdrawals (id, user_id, username, amount, phone, network, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		w.ID, w.UserID, w.Username, amount, w.Phone, string(w.Network), string(model.WithdrawalStatusPending),
	).Scan(&w.CreatedAt)
	if err != nil {
		return nil, persistErr("insert withdrawal", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}

	w.Status = model.WithdrawalStatusPending
	return &model.Account{Balance: fromCents(balance), TotalEarnings: fromCents(earnings)}, nil
}

const withdrawalColumns = `id, user_id, username, amount, phone, network, status, created_at, processed_at`

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var (
		w       model.Withdrawal
		amount  int64
		network string
		status  string
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Username, &amount, &w.Phone, &network, &status, &w.CreatedAt, &w.ProcessedAt)
	if err != nil {
		return nil, err
	}
	w.Amount = fromCents(amount)
	w.Network = model.Network(network)
	w.Status = model.WithdrawalStatus(status)
	return &w, nil
}

// GetWithdrawal возвращает заявку на вывод по идентификатору.
func (r *PostgresRepository) GetWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	w, err := scanWithdrawal(r.pool.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, persistErr("get withdrawal", err)
	}
	return w, nil
}

func (r *PostgresRepository) listWithdrawals(ctx context.Context, query string, arg any) ([]model.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, persistErr("select withdrawals", err)
	}
	defer rows.Close()

	var res []model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, persistErr("scan withdrawal", err)
		}
		res = append(res, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("rows error", err)
	}
	return res, nil
}

// ListWithdrawalsByUser возвращает историю заявок пользователя, новые первыми.
func (r *PostgresRepository) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error) {
	return r.listWithdrawals(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListWithdrawalsByStatus возвращает заявки в указанном статусе, старые первыми.
func (r *PostgresRepository) ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	return r.listWithdrawals(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE status = $1 ORDER BY created_at`, string(status))
}

// lockPendingWithdrawal блокирует строку заявки и проверяет, что она ещё не обработана.
func lockPendingWithdrawal(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Withdrawal, error) {
	w, err := scanWithdrawal(tx.QueryRow(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, persistErr("lock withdrawal", err)
	}
	if w.Status != model.WithdrawalStatusPending {
		return nil, ErrAlreadyProcessed
	}
	return w, nil
}

func setWithdrawalStatus(ctx context.Context, tx pgx.Tx, w *model.Withdrawal, status model.WithdrawalStatus, at time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE withdrawals SET status = $2, processed_at = $3 WHERE id = $1`,
		w.ID, string(status), at,
	)
	if err != nil {
		return persistErr("update withdrawal status", err)
	}
	w.Status = status
	w.ProcessedAt = &at
	return nil
}

// ApproveWithdrawal переводит заявку из pending в approved. Баланс не меняется.
func (r *PostgresRepository) ApproveWithdrawal(ctx context.Context, id uuid.UUID, at time.Time) (*model.Withdrawal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	w, err := lockPendingWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := setWithdrawalStatus(ctx, tx, w, model.WithdrawalStatusApproved, at); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}
	return w, nil
}

// RejectWithdrawal переводит заявку из pending в rejected и возвращает сумму на баланс
// в той же транзакции. Общий заработок не меняется.
func (r *PostgresRepository) RejectWithdrawal(ctx context.Context, id uuid.UUID, at time.Time) (*model.Withdrawal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	w, err := lockPendingWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	amount, err := toCents(w.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id = $1`,
		w.UserID, amount,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefundFailed, persistErr("refund balance", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrRefundFailed, ErrUserNotFound)
	}

	if err := setWithdrawalStatus(ctx, tx, w, model.WithdrawalStatusRejected, at); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}
	return w, nil
}

// GetSpinConfig возвращает текущую конфигурацию колеса призов.
func (r *PostgresRepository) GetSpinConfig(ctx context.Context) (*model.SpinConfig, error) {
	return getSpinConfig(ctx, r.pool)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getSpinConfig(ctx context.Context, q querier) (*model.SpinConfig, error) {
	var cfg model.SpinConfig
	err := q.QueryRow(ctx,
		`SELECT active, version, updated_at FROM spin_config WHERE id = 1`,
	).Scan(&cfg.Active, &cfg.Version, &cfg.UpdatedAt)
	if err != nil {
		return nil, persistErr("get spin config", err)
	}

	rows, err := q.Query(ctx, `SELECT position, label, color, prize FROM spin_segments ORDER BY position`)
	if err != nil {
		return nil, persistErr("select spin segments", err)
	}
	defer rows.Close()

	cfg.Segments = []model.SpinSegment{}
	for rows.Next() {
		var (
			s     model.SpinSegment
			prize int64
		)
		if err := rows.Scan(&s.Order, &s.Label, &s.Color, &prize); err != nil {
			return nil, persistErr("scan spin segment", err)
		}
		s.Prize = fromCents(prize)
		cfg.Segments = append(cfg.Segments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("rows error", err)
	}
	return &cfg, nil
}

func bumpSpinVersion(ctx context.Context, tx pgx.Tx, active *bool) error {
	var err error
	if active == nil {
		_, err = tx.Exec(ctx, `UPDATE spin_config SET version = version + 1, updated_at = NOW() WHERE id = 1`)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE spin_config SET active = $1, version = version + 1, updated_at = NOW() WHERE id = 1`, *active)
	}
	if err != nil {
		return persistErr("update spin config", err)
	}
	return nil
}

// ReplaceSpinSegments заменяет все сектора колеса и увеличивает версию конфигурации.
func (r *PostgresRepository) ReplaceSpinSegments(ctx context.Context, segments []model.SpinSegment) (*model.SpinConfig, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT 1 FROM spin_config WHERE id = 1 FOR UPDATE`); err != nil {
		return nil, persistErr("lock spin config", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM spin_segments`); err != nil {
		return nil, persistErr("delete spin segments", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"spin_segments"},
		[]string{"position", "label", "color", "prize"},
		pgx.CopyFromSlice(len(segments), func(i int) ([]any, error) {
			s := segments[i]
			prize, err := toCents(s.Prize)
			if err != nil {
				return nil, err
			}
			return []any{s.Order, s.Label, s.Color, prize}, nil
		}),
	)
	if errors.Is(err, ErrAmountOutOfRange) {
		return nil, err
	}
	if err != nil {
		return nil, persistErr("insert spin segments", err)
	}

	if err := bumpSpinVersion(ctx, tx, nil); err != nil {
		return nil, err
	}

	cfg, err := getSpinConfig(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}
	return cfg, nil
}

// SetSpinActive включает или выключает колесо и увеличивает версию конфигурации.
func (r *PostgresRepository) SetSpinActive(ctx context.Context, active bool) (*model.SpinConfig, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, persistErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := bumpSpinVersion(ctx, tx, &active); err != nil {
		return nil, err
	}

	cfg, err := getSpinConfig(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr("commit tx", err)
	}
	return cfg, nil
}
