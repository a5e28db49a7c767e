package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.SecretKey = strings.Repeat("z", config.MinSecretKeyLength)
	c.BcryptCost = bcrypt.MinCost
	c.DatabaseDriver = driver
	c.DatabaseDSN = "file:" + filepath.Join(t.TempDir(), "app.db")
	c.ShutdownTimeout = time.Second
	return c
}

func TestNewApp_RejectsBadConfig(t *testing.T) {
	c := testConfig(t, config.DriverMemory)
	c.SecretKey = "short"

	_, err := NewApp(context.Background(), c, logging.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorConfiguration)
}

func TestOpenStore_Unreachable(t *testing.T) {
	c := testConfig(t, config.DriverSQLite)
	c.DatabaseDSN = "file:" + filepath.Join(t.TempDir(), "missing", "dir", "app.db") + "?mode=ro"

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, _, err := OpenStore(ctx, c, logging.Nop())
	assert.Error(t, err)
}

func TestApp_SQLiteSeedAndServe(t *testing.T) {
	c := testConfig(t, config.DriverSQLite)
	c.SeedAccounts = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, c, logging.Nop())
	require.NoError(t, err)

	res, err := app.accounts.Login(ctx, services.LoginInput{Email: "aa@aa.aa", Password: "P@$$w0rd"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	var addr string
	select {
	case a := <-app.server.Ready():
		addr = a.String()
	case err := <-errCh:
		t.Fatalf("app exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not start")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
