package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jjudge-oj/accountsvc/types"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	accountsEmailUnique = "accounts_email_key"
)

const accountColumns = `id, email, password_hash, first_name, last_name, phone, address,
		       security_question, security_answer, is_staff, is_superuser, is_active,
		       created_at, updated_at`

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (types.Account, error) {
	var account types.Account
	var question string
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Phone,
		&account.Address,
		&question,
		&account.SecurityAnswer,
		&account.IsStaff,
		&account.IsSuperuser,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	account.SecurityQuestion = types.SecurityQuestion(question)
	return account, err
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (types.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := r.now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	const query = `
		INSERT INTO accounts (
			id, email, password_hash, first_name, last_name, phone, address,
			security_question, security_answer, is_staff, is_superuser, is_active,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Address,
		string(account.SecurityQuestion),
		account.SecurityAnswer,
		account.IsStaff,
		account.IsSuperuser,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEmail(err) {
			return types.Account{}, ErrDuplicateEmail
		}
		return types.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) Update(ctx context.Context, account types.Account) (types.Account, error) {
	account.UpdatedAt = r.now().UTC()

	const query = `
		UPDATE accounts
		SET email = $1,
			password_hash = $2,
			first_name = $3,
			last_name = $4,
			phone = $5,
			address = $6,
			security_question = $7,
			security_answer = $8,
			is_staff = $9,
			is_superuser = $10,
			is_active = $11,
			updated_at = $12
		WHERE id = $13`
	result, err := r.db.ExecContext(
		ctx,
		query,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.Address,
		string(account.SecurityQuestion),
		account.SecurityAnswer,
		account.IsStaff,
		account.IsSuperuser,
		account.IsActive,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		if isDuplicateEmail(err) {
			return types.Account{}, ErrDuplicateEmail
		}
		return types.Account{}, fmt.Errorf("update account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Account{}, fmt.Errorf("update account: %w", err)
	}
	if affected == 0 {
		return types.Account{}, ErrNotFound
	}
	return account, nil
}

// List returns a page of accounts, newest first, and the total count.
func (r *AccountRepository) List(ctx context.Context, offset, limit int) ([]types.Account, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]types.Account, 0, limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, total, nil
}

func isDuplicateEmail(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == accountsEmailUnique
}
