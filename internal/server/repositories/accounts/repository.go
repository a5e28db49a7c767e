// Package accounts is the credential store: durable account records keyed by
// id and by case-insensitive email.
//
// Two backends implement Repository: SQLRepository (PostgreSQL via pgx or
// embedded SQLite via modernc) and MemoryRepository. Both guarantee that no
// two accounts share a normalized email, even under concurrent Create calls.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists accounts.
//
// Errors: common.ErrorNotFound for missing rows, common.ErrorConflict when an
// email is already taken, common.ErrorTransient for any storage failure
// (including context deadline or cancellation).
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	// Create assigns ID and CreatedAt when empty and stores the account.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
