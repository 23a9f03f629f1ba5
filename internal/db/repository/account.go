// Package repository provides database operations for the tracker.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/models"
)

// AccountRepository defines operations for tracked accounts.
type AccountRepository interface {
	// ListAccounts retrieves every tracked account, oldest first.
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// CreateAccount registers a new tracked account.
	CreateAccount(ctx context.Context, handle string) error

	// UpdateLastScraped advances the bookkeeping timestamp for an account.
	UpdateLastScraped(ctx context.Context, handle string, scrapedAt time.Time) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT handle, last_scraped, created_at
		FROM accounts
		ORDER BY created_at, handle
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list accounts")
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		if err := rows.Scan(&account.Handle, &account.LastScraped, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func (r *accountRepository) CreateAccount(ctx context.Context, handle string) error {
	query := `INSERT INTO accounts (handle) VALUES ($1)`

	if _, err := r.pool.Exec(ctx, query, handle); err != nil {
		return db.WrapError(err, "create account")
	}

	return nil
}

func (r *accountRepository) UpdateLastScraped(ctx context.Context, handle string, scrapedAt time.Time) error {
	query := `UPDATE accounts SET last_scraped = $2 WHERE handle = $1`

	tag, err := r.pool.Exec(ctx, query, handle, scrapedAt)
	if err != nil {
		return db.WrapError(err, "update last scraped")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update last scraped: %w", db.ErrNotFound)
	}

	return nil
}
