package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// Dialect selects the placeholder style of the SQL backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLRepository stores accounts in the "accounts" table.
type SQLRepository struct {
	db      dbx.DBTX
	dialect Dialect
	timeout time.Duration
}

// NewSQLRepository binds a repository to db. A positive timeout bounds every
// statement; zero leaves the caller's context untouched.
func NewSQLRepository(db dbx.DBTX, dialect Dialect, timeout time.Duration) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect, timeout: timeout}
}

const selectAccount = `SELECT id, email, password_hash, first_name, last_name, created_at, last_login_at
		 FROM accounts`

func (r *SQLRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := selectAccount + `
		 WHERE email_normalized = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, r.rebind(query), models.NormalizeEmail(email)))
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := selectAccount + `
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, r.rebind(query), id))
}

// Create inserts the account unless its normalized email is taken. The
// uniqueness check and the insert are a single statement, so concurrent
// callers racing on one email see exactly one success.
func (r *SQLRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	a := account.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO accounts (id, email, email_normalized, password_hash, first_name, last_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (email_normalized) DO NOTHING
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, r.rebind(query),
		a.ID, a.Email, a.NormalizedEmail(), a.PasswordHash,
		nullString(a.FirstName), nullString(a.LastName), a.CreatedAt.UTC(),
	).Scan(&a.ID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorConflict
		}
		return nil, wrapErr(err)
	}

	return a, nil
}

func (r *SQLRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query :=
		`UPDATE accounts SET last_login_at = $1
		 WHERE id = $2
		 `

	res, err := r.db.ExecContext(ctx, r.rebind(query), at.UTC(), id)
	if err != nil {
		return wrapErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) scanOne(row *sql.Row) (*models.Account, error) {
	var (
		a         models.Account
		firstName sql.NullString
		lastName  sql.NullString
		lastLogin sql.NullTime
	)

	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &firstName, &lastName, &a.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, wrapErr(err)
	}

	a.CreatedAt = a.CreatedAt.UTC()
	if firstName.Valid {
		a.FirstName = &firstName.String
	}
	if lastName.Valid {
		a.LastName = &lastName.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		a.LastLoginDate = &t
	}
	return &a, nil
}

func (r *SQLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// rebind rewrites $n placeholders to ? for SQLite. Queries here use each
// placeholder once and in order, so positional ? is equivalent.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectSQLite {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func wrapErr(err error) error {
	return fmt.Errorf("db error: %w: %w", common.ErrorTransient, err)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
