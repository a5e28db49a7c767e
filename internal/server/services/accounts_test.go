package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// --- helpers ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = strings.Repeat("s", config.MinSecretKeyLength)
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func newMemoryService(t *testing.T) (*AccountService, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewAccountService(nil, repomanager.NewMemoryRepositoryManager(), testConfig(), logging.Nop(), metrics), metrics
}

func validatorFor(cfg *config.Config) *auth.TokenValidator {
	return auth.NewTokenValidator(cfg.TokenOptions())
}

// failingManager hands out a repository whose every call fails with err.
type failingManager struct{ err error }

func (m failingManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m failingManager) Accounts(dbx.DBTX) accounts.Repository      { return failingRepo(m) }

type failingRepo failingManager

func (r failingRepo) FindByEmail(context.Context, string) (*models.Account, error) {
	return nil, r.err
}
func (r failingRepo) FindByID(context.Context, string) (*models.Account, error) { return nil, r.err }
func (r failingRepo) Create(context.Context, *models.Account) (*models.Account, error) {
	return nil, r.err
}
func (r failingRepo) UpdateLastLogin(context.Context, string, time.Time) error { return r.err }

// --- Register ---

func TestRegister_Success(t *testing.T) {
	s, metrics := newMemoryService(t)
	ctx := context.Background()

	res, err := s.Register(ctx, RegisterInput{Email: "a@b.com", Password: "Abcd123!", FirstName: "Ann"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.Profile.ID)
	assert.Equal(t, "a@b.com", res.Profile.Email)
	assert.Equal(t, "Ann", res.Profile.FirstName)
	assert.Equal(t, "", res.Profile.LastName)
	assert.Nil(t, res.Profile.LastLoginDate)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, 5*time.Second)

	claims, err := validatorFor(testConfig()).Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)

	stored, err := s.accounts().FindByEmail(ctx, "A@B.COM")
	require.NoError(t, err)
	assert.NotEqual(t, "Abcd123!", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Abcd123!")))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthOperations.WithLabelValues(OpRegister, observability.OutcomeSuccess)))
}

func TestRegister_PolicyViolation(t *testing.T) {
	s, _ := newMemoryService(t)

	_, err := s.Register(context.Background(), RegisterInput{Email: "weak@b.com", Password: "abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrPolicyViolation)

	var ve *policy.ViolationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.Has(policy.CodeTooShort))
	assert.True(t, ve.Has(policy.CodeRequiresDigit))
	assert.True(t, ve.Has(policy.CodeRequiresUpper))
	assert.True(t, ve.Has(policy.CodeRequiresNonAlphanum))

	_, err = s.accounts().FindByEmail(context.Background(), "weak@b.com")
	assert.ErrorIs(t, err, common.ErrorNotFound, "nothing must be stored")
}

func TestRegister_ConflictBeatsPolicy(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Email: "x@y.com", Password: "Abcd123!"})
	require.NoError(t, err)

	_, err = s.Register(ctx, RegisterInput{Email: "X@Y.COM", Password: "Abcd123!"})
	assert.ErrorIs(t, err, common.ErrorConflict)

	_, err = s.Register(ctx, RegisterInput{Email: "x@y.com", Password: "weak"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestRegister_ShapeValidation(t *testing.T) {
	s, _ := newMemoryService(t)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{name: "missing email", in: RegisterInput{Password: "Abcd123!"}, field: "email"},
		{name: "bad email", in: RegisterInput{Email: "not-an-email", Password: "Abcd123!"}, field: "email"},
		{name: "missing password", in: RegisterInput{Email: "a@b.com"}, field: "password"},
		{name: "long first name", in: RegisterInput{Email: "a@b.com", Password: "Abcd123!", FirstName: strings.Repeat("é", 101)}, field: "firstName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrorValidation)

			var ve *common.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	s, _ := newMemoryService(t)
	var ok, conflicts atomic.Int32

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := s.Register(context.Background(), RegisterInput{Email: "race@b.com", Password: "Abcd123!"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, common.ErrorConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(9), conflicts.Load())
}

func TestRegister_StoreUnavailable(t *testing.T) {
	transient := fmt.Errorf("db error: %w: %w", common.ErrorTransient, errors.New("db down"))
	s := NewAccountService(nil, failingManager{err: transient}, testConfig(), logging.Nop(), nil)

	_, err := s.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "Abcd123!"})
	assert.ErrorIs(t, err, common.ErrorTransient)
	assert.NotErrorIs(t, err, common.ErrorConflict)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	reg, err := s.Register(ctx, RegisterInput{Email: "a@b.com", Password: "Abcd123!"})
	require.NoError(t, err)

	res, err := s.Login(ctx, LoginInput{Email: " A@B.com ", Password: "Abcd123!"})
	require.NoError(t, err)
	assert.Equal(t, reg.Profile.ID, res.Profile.ID)
	require.NotNil(t, res.Profile.LastLoginDate)
	assert.True(t, fixed.Equal(*res.Profile.LastLoginDate))

	stored, err := s.accounts().FindByID(ctx, reg.Profile.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginDate)
	assert.True(t, fixed.Equal(*stored.LastLoginDate))
}

func TestLogin_UniformFailure(t *testing.T) {
	s, metrics := newMemoryService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Email: "a@b.com", Password: "Abcd123!"})
	require.NoError(t, err)

	_, wrongPassword := s.Login(ctx, LoginInput{Email: "a@b.com", Password: "Wrong123!"})
	_, unknownEmail := s.Login(ctx, LoginInput{Email: "nobody@b.com", Password: "Abcd123!"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.ErrorIs(t, wrongPassword, common.ErrorUnauthorized)
	assert.ErrorIs(t, unknownEmail, common.ErrorUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AuthOperations.WithLabelValues(OpLogin, observability.OutcomeInvalid)))

	stored, err := s.accounts().FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, stored.LastLoginDate, "failed login must not touch lastLoginDate")
}

func TestLogin_StoreUnavailableIsNotUnauthorized(t *testing.T) {
	transient := fmt.Errorf("db error: %w: %w", common.ErrorTransient, context.DeadlineExceeded)
	s := NewAccountService(nil, failingManager{err: transient}, testConfig(), logging.Nop(), nil)

	_, err := s.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "Abcd123!"})
	assert.ErrorIs(t, err, common.ErrorTransient)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_MissingFields(t *testing.T) {
	s, _ := newMemoryService(t)

	_, err := s.Login(context.Background(), LoginInput{Email: "a@b.com"})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

// --- Profile / Logout ---

func TestGetProfile(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, RegisterInput{Email: "p@b.com", Password: "Abcd123!", LastName: "Smith"})
	require.NoError(t, err)

	claims, err := validatorFor(testConfig()).Validate(reg.Token)
	require.NoError(t, err)

	p, err := s.GetProfile(ctx, claims.Identity())
	require.NoError(t, err)
	assert.Equal(t, reg.Profile.ID, p.ID)
	assert.Equal(t, "", p.FirstName)
	assert.Equal(t, "Smith", p.LastName)

	_, err = s.GetProfile(ctx, auth.Identity{AccountID: "deleted", Email: "p@b.com"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.GetProfile(ctx, auth.Identity{})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogout_DoesNotRevoke(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	reg, err := s.Register(ctx, RegisterInput{Email: "l@b.com", Password: "Abcd123!"})
	require.NoError(t, err)

	v := validatorFor(testConfig())
	claims, err := v.Validate(reg.Token)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, claims.Identity()))

	_, err = v.Validate(reg.Token)
	assert.NoError(t, err)
}

// --- Seed ---

func TestSeed_Memory(t *testing.T) {
	s, _ := newMemoryService(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, DefaultSeedAccounts()))
	require.NoError(t, s.Seed(ctx, DefaultSeedAccounts()), "seeding twice is a no-op")

	res, err := s.Login(ctx, LoginInput{Email: "aa@aa.aa", Password: "P@$$w0rd"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.Profile.FirstName)
	assert.Equal(t, "Anderson", res.Profile.LastName)
}

func TestSeed_SQLiteTransaction(t *testing.T) {
	db, err := sql.Open(repomanager.DriverName(accounts.DialectSQLite),
		"file:"+filepath.Join(t.TempDir(), "seed.db")+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewSQLRepositoryManager(accounts.DialectSQLite, time.Second)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	s := NewAccountService(db, rm, testConfig(), logging.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx, DefaultSeedAccounts()))

	res, err := s.Login(ctx, LoginInput{Email: "uu@uu.uu", Password: "P@$$w0rd"})
	require.NoError(t, err)
	assert.Equal(t, "User", res.Profile.FirstName)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&n))
	assert.Equal(t, 2, n)
}
