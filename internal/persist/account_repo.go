package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrAccountMissing = errors.New("account not found")

// AccountRecord mirrors the accounts table. Credentials live with the login
// collaborator; the world server only reads standing.
type AccountRecord struct {
	ID          int64
	Name        string
	BannedUntil *time.Time
	LastLoginAt *time.Time
}

// Banned reports whether the account is currently locked out.
func (a *AccountRecord) Banned(now time.Time) bool {
	return a.BannedUntil != nil && now.Before(*a.BannedUntil)
}

// AccountRepo reads account standing and stamps login times.
type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Get fetches one account by ID.
func (r *AccountRepo) Get(ctx context.Context, accountID int64) (*AccountRecord, error) {
	var a AccountRecord
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, banned_until, last_login_at FROM accounts WHERE id = $1`,
		accountID).Scan(&a.ID, &a.Name, &a.BannedUntil, &a.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", accountID, err)
	}
	return &a, nil
}

// MarkLogin stamps the successful world entry.
func (r *AccountRepo) MarkLogin(ctx context.Context, accountID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET last_login_at = now() WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("mark login: %w", err)
	}
	return nil
}
