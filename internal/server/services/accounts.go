// Package services contains server-side business logic. This file implements
// AccountService, which registers accounts, authenticates credentials and
// issues bearer tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/observability"
	"github.com/dmitrijs2005/gophauth/internal/server/policy"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// ErrInvalidCredentials is the single answer to a failed login, whether the
// email is unknown or the password is wrong.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", common.ErrorUnauthorized)

// Operation names used for metrics and logs.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpProfile  = "profile"
	OpLogout   = "logout"
)

const maxNameLength = 100

// RegisterInput is a registration request.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate checks the request shape. Password strength is the policy's job.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.FirstName, validation.RuneLength(0, maxNameLength)),
		validation.Field(&in.LastName, validation.RuneLength(0, maxNameLength)),
	)
}

// LoginInput is a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// Profile is the client-facing view of an account. Absent names are "".
type Profile struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	CreatedAt     time.Time
	LastLoginDate *time.Time
}

// AuthResult is returned by a successful Register or Login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Profile   Profile
}

// SeedAccount is a demo account created at startup when absent.
type SeedAccount struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// DefaultSeedAccounts are the demo logins shipped with the server.
func DefaultSeedAccounts() []SeedAccount {
	return []SeedAccount{
		{Email: "aa@aa.aa", Password: "P@$$w0rd", FirstName: "Alice", LastName: "Anderson"},
		{Email: "uu@uu.uu", Password: "P@$$w0rd", FirstName: "User", LastName: "Userman"},
	}
}

// AccountService provides the account and session operations:
// - Register: create an account and sign it in
// - Login: verify credentials and mint a token
// - GetProfile / Logout: act on an already validated identity
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      policy.Policy
	hasher      *auth.Hasher
	issuer      *auth.TokenIssuer
	logger      logging.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewAccountService wires an AccountService from repositories and server
// config. db may be nil for the in-memory backend; metrics may be nil.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, metrics *observability.Metrics) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		policy:      cfg.PasswordPolicy(),
		hasher:      auth.NewHasher(cfg.BcryptCost, 0),
		issuer:      auth.NewTokenIssuer(cfg.TokenOptions()),
		logger:      logger.With("module", "accounts"),
		metrics:     metrics,
		now:         time.Now,
	}
}

// Register validates the request, rejects taken emails and weak passwords,
// stores the account and returns a token for it.
//
// Errors: *common.ValidationError, common.ErrorConflict,
// *policy.ViolationError, common.ErrorTransient.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	defer func() { s.metrics.ObserveAuth(OpRegister, err) }()

	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, toValidationError(err)
	}

	repo := s.accounts()

	_, err = repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, common.ErrorConflict
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error looking up account: %w", err)
	}

	if err := s.policy.Validate(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, contextual(err)
	}

	account, err := repo.Create(ctx, &models.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    optional(in.FirstName),
		LastName:     optional(in.LastName),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	res, err = s.authResult(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID, "email", account.Email)
	return res, nil
}

// Login checks the credentials, records the login time and returns a token.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (res *AuthResult, err error) {
	defer func() { s.metrics.ObserveAuth(OpLogin, err) }()

	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, toValidationError(err)
	}

	repo := s.accounts()

	account, err := repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			if err := s.hasher.CompareDummy(ctx, in.Password); !errors.Is(err, auth.ErrPasswordMismatch) {
				return nil, contextual(err)
			}
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up account: %w", err)
	}

	if err := s.hasher.Compare(ctx, account.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, contextual(err)
	}

	now := s.now().UTC()
	if err := repo.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("error recording login: %w", err)
	}
	account.LastLoginDate = &now

	res, err = s.authResult(account)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login succeeded", "account_id", account.ID)
	return res, nil
}

// GetProfile loads the account behind a validated identity.
func (s *AccountService) GetProfile(ctx context.Context, id auth.Identity) (p *Profile, err error) {
	defer func() { s.metrics.ObserveAuth(OpProfile, err) }()

	if id.AccountID == "" {
		return nil, common.ErrorUnauthorized
	}

	account, err := s.accounts().FindByID(ctx, id.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading profile: %w", err)
	}

	profile := toProfile(account)
	return &profile, nil
}

// Logout acknowledges the request. Tokens are stateless and stay valid
// until they expire.
func (s *AccountService) Logout(ctx context.Context, id auth.Identity) error {
	s.metrics.ObserveAuth(OpLogout, nil)
	s.logger.Info(ctx, "logout", "account_id", id.AccountID)
	return nil
}

// Seed creates the given accounts when their email is not yet taken. On SQL
// backends all inserts share one transaction. Seed passwords bypass the
// policy.
func (s *AccountService) Seed(ctx context.Context, seeds []SeedAccount) error {
	seedAll := func(ctx context.Context, repo accounts.Repository) error {
		for _, seed := range seeds {
			created, err := s.seedOne(ctx, repo, seed)
			if err != nil {
				return fmt.Errorf("seed %s: %w", seed.Email, err)
			}
			if created {
				s.logger.Info(ctx, "seeded account", "email", seed.Email)
			}
		}
		return nil
	}

	if s.db == nil {
		return seedAll(ctx, s.accounts())
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return seedAll(ctx, s.repomanager.Accounts(tx))
	})
}

// --- helpers below ---

func (s *AccountService) seedOne(ctx context.Context, repo accounts.Repository, seed SeedAccount) (bool, error) {
	_, err := repo.FindByEmail(ctx, seed.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	hash, err := s.hasher.Hash(ctx, seed.Password)
	if err != nil {
		return false, contextual(err)
	}

	_, err = repo.Create(ctx, &models.Account{
		Email:        seed.Email,
		PasswordHash: hash,
		FirstName:    optional(seed.FirstName),
		LastName:     optional(seed.LastName),
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, common.ErrorConflict) {
		return false, nil
	}
	return err == nil, err
}

func (s *AccountService) accounts() accounts.Repository {
	if s.db == nil {
		return s.repomanager.Accounts(nil)
	}
	return s.repomanager.Accounts(s.db)
}

func (s *AccountService) authResult(account *models.Account) (*AuthResult, error) {
	token, claims, err := s.issuer.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile:   toProfile(account),
	}, nil
}

func toProfile(a *models.Account) Profile {
	p := Profile{
		ID:            a.ID,
		Email:         a.Email,
		CreatedAt:     a.CreatedAt,
		LastLoginDate: a.LastLoginDate,
	}
	if a.FirstName != nil {
		p.FirstName = *a.FirstName
	}
	if a.LastName != nil {
		p.LastName = *a.LastName
	}
	return p
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// toValidationError flattens ozzo field errors into a ValidationError.
func toValidationError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	ve := &common.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for field, e := range fieldErrs {
		ve.Fields[field] = e.Error()
	}
	return ve
}

// contextual maps a canceled or timed out wait onto ErrorTransient; other
// errors pass through unchanged.
func contextual(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", common.ErrorTransient, err)
	}
	return err
}
