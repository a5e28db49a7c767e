// Package authctl implements the administrative command line of the auth
// server: it registers accounts directly against the configured credential
// store and inspects bearer tokens.
package authctl

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/buildinfo"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/policy"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/shared"
)

const usage = `usage: authctl <command> [flags]

commands:
  register              create an account (password is prompted)
  seed                  create the demo accounts if missing
  verify-token <token>  validate a bearer token and print its claims
  gen-secret            print a random signing key for GOPHAUTH_SECRET_KEY
  version               print build information

flags are the server's: -c config.json, -b driver, -d dsn, -s secret, ...`

// ErrUsage is returned for an unknown or incomplete command line.
var ErrUsage = errors.New("invalid usage")

// App runs one authctl command.
type App struct {
	in     *bufio.Reader
	out    io.Writer
	logger logging.Logger
}

func NewApp(in io.Reader, out io.Writer, logger logging.Logger) *App {
	return &App{in: bufio.NewReader(in), out: out, logger: logger}
}

// Run dispatches args (without the program name).
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "version":
		buildinfo.PrintBuildData(a.out)
		return nil
	case "register":
		return a.withService(ctx, rest, a.register)
	case "seed":
		return a.withService(ctx, rest, func(ctx context.Context, s *services.AccountService) error {
			if err := s.Seed(ctx, services.DefaultSeedAccounts()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Demo accounts are in place.")
			return nil
		})
	case "verify-token":
		if len(rest) == 0 || strings.HasPrefix(rest[0], "-") {
			fmt.Fprintln(a.out, usage)
			return ErrUsage
		}
		return a.verifyToken(rest[0], rest[1:])
	case "gen-secret":
		key, err := shared.MakeRandHexString(config.MinSecretKeyLength)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, key)
		return nil
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) withService(ctx context.Context, args []string, fn func(context.Context, *services.AccountService) error) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, rm, err := server.OpenStore(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeDB(db)

	return fn(ctx, services.NewAccountService(db, rm, cfg, a.logger, nil))
}

func (a *App) register(ctx context.Context, s *services.AccountService) error {
	email, err := GetSimpleText(a.in, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	firstName, err := GetSimpleText(a.in, "First name (optional)", a.out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	lastName, err := GetSimpleText(a.in, "Last name (optional)", a.out)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	res, err := s.Register(ctx, services.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		var ve *policy.ViolationError
		if errors.As(err, &ve) {
			for _, d := range ve.Descriptions() {
				fmt.Fprintln(a.out, " - "+d)
			}
		}
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (id %s)\n", res.Profile.Email, res.Profile.ID)
	fmt.Fprintf(a.out, "Token: %s\n", res.Token)
	return nil
}

// tokenReport is what verify-token prints.
type tokenReport struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Email     string `json:"email,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	ExpiresAt string `json:"exp,omitempty"`
	ID        string `json:"jti,omitempty"`
}

func (a *App) verifyToken(token string, args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	report := tokenReport{}
	claims, verr := auth.NewTokenValidator(cfg.TokenOptions()).Validate(token)
	if verr != nil {
		var te *auth.TokenError
		if errors.As(verr, &te) {
			report.Reason = te.Reason
		}
	} else {
		report = tokenReport{
			Valid:     true,
			Subject:   claims.Subject,
			Email:     claims.Email,
			Issuer:    claims.Issuer,
			ExpiresAt: claims.ExpiresAt.Time.UTC().Format("2006-01-02T15:04:05Z"),
			ID:        claims.ID,
		}
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return verr
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
