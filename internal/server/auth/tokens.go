package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token validation failure reasons.
const (
	ReasonMalformed = "malformed"
	ReasonSignature = "signature"
	ReasonIssuer    = "issuer"
	ReasonAudience  = "audience"
	ReasonExpired   = "expired"
	ReasonClaims    = "claims"
)

// Claims is the signed payload of a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity returns the caller identity proven by the claims.
func (c *Claims) Identity() Identity {
	return Identity{AccountID: c.Subject, Email: c.Email}
}

// Identity is the authenticated principal threaded from the validator
// into service calls.
type Identity struct {
	AccountID string
	Email     string
}

// TokenError describes why a token was rejected. It matches
// common.ErrorUnauthorized and common.ErrInvalidToken, and
// common.ErrTokenExpired for the expired reason.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid token (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid token (%s)", e.Reason)
}

func (e *TokenError) Unwrap() []error {
	errs := []error{common.ErrorUnauthorized, common.ErrInvalidToken}
	if e.Reason == ReasonExpired {
		errs = append(errs, common.ErrTokenExpired)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// TokenOptions is the fixed issuance configuration.
type TokenOptions struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

func (o TokenOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// TokenIssuer mints signed bearer tokens.
type TokenIssuer struct {
	opts TokenOptions
}

// NewTokenIssuer returns an issuer bound to opts.
func NewTokenIssuer(opts TokenOptions) *TokenIssuer {
	return &TokenIssuer{opts: opts}
}

// Issue builds and signs the claim set for account.
func (i *TokenIssuer) Issue(account *models.Account) (string, *Claims, error) {
	if account == nil || account.ID == "" {
		return "", nil, errors.New("issue token: account id is required")
	}

	now := i.opts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.ID,
			Issuer:    i.opts.Issuer,
			Audience:  jwt.ClaimStrings{i.opts.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.opts.TTL)),
		},
		Email: account.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.opts.SigningKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// TokenValidator verifies bearer tokens minted by a TokenIssuer sharing
// the same options.
type TokenValidator struct {
	opts   TokenOptions
	parser *jwt.Parser
}

// NewTokenValidator returns a validator bound to opts.
func NewTokenValidator(opts TokenOptions) *TokenValidator {
	return &TokenValidator{
		opts: opts,
		// Claims are checked below in a fixed order against our own clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Validate checks signature, issuer, audience, expiry and claim shape, in
// that order, and returns the claims of a valid token.
func (v *TokenValidator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.opts.SigningKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, &TokenError{Reason: ReasonMalformed, Err: err}
		}
		return nil, &TokenError{Reason: ReasonSignature, Err: err}
	}

	if claims.Issuer != v.opts.Issuer {
		return nil, &TokenError{Reason: ReasonIssuer}
	}
	if !slices.Contains(claims.Audience, v.opts.Audience) {
		return nil, &TokenError{Reason: ReasonAudience}
	}
	if claims.ExpiresAt != nil && !v.opts.now().Before(claims.ExpiresAt.Time) {
		return nil, &TokenError{Reason: ReasonExpired}
	}
	if claims.Subject == "" || claims.Email == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, &TokenError{Reason: ReasonClaims}
	}

	return claims, nil
}
