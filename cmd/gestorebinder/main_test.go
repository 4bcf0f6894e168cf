package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestorebinder/internal/amqp"
	"gestorebinder/internal/config"
	"gestorebinder/internal/core"
	apphttp "gestorebinder/internal/http"
	applog "gestorebinder/internal/log"
	"gestorebinder/internal/offline"
	"gestorebinder/internal/query"
	"gestorebinder/internal/storage"
	"gestorebinder/web"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, apphttp.SeedUser(context.Background(), store, "USER", "12345"))
	srv, err := apphttp.NewServer(apphttp.Options{
		Store:      store,
		Shell:      web.Shell(),
		JWTSecret:  "cli-test-secret",
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return ts
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLIWorkflow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	ts := newBackend(t)
	common := []string{"--config", filepath.Join(dir, "missing.toml"), "--server", ts.URL, "--no-cache", "--quiet"}
	cli := func(args ...string) (string, error) {
		return run(t, append(args, common...)...)
	}

	out, err := cli("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Non autenticato")

	_, err = cli("binders")
	assert.ErrorIs(t, err, errNotAuthenticated)

	_, err = cli("login", "-u", "USER", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Credenziali non valide", err.Error())

	_, err = cli("login", "-u", "USER", "-p", "12345")
	require.NoError(t, err)
	_, err = os.Stat(config.SessionPath())
	require.NoError(t, err, "session should be saved")

	out, err = cli("binders", "create", "Casa")
	require.NoError(t, err)
	assert.Equal(t, "1\tCasa\n", out)

	out, err = cli("categories", "create", "1", "Spesa", "settimanale")
	require.NoError(t, err)
	assert.Equal(t, "1\tSpesa settimanale\n", out)

	_, err = cli("tx", "add", "1", "--description", "Pane", "--amount=-45,50", "--date", "2024-03-05")
	require.NoError(t, err)

	out, err = cli("categories", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pane")
	assert.Contains(t, out, "05/03/2024")
	assert.Contains(t, out, core.FormatCurrency(core.Money{Cents: -4550}))
	assert.Contains(t, out, "█")

	out, err = cli("binders")
	require.NoError(t, err)
	assert.Contains(t, out, "Casa")

	_, err = cli("binders", "show", "999")
	assert.Error(t, err)

	require.NoError(t, func() error { _, err := cli("logout"); return err }())
	_, err = os.Stat(config.SessionPath())
	assert.True(t, os.IsNotExist(err), "session file should be removed")

	_, err = cli("binders")
	assert.ErrorIs(t, err, errNotAuthenticated)
}

func TestParseID(t *testing.T) {
	id, err := parseID("id", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := parseID("id", bad)
		assert.Error(t, err, bad)
	}
}

func TestPushConsumer(t *testing.T) {
	var out bytes.Buffer
	handler := offline.NewPushHandler(terminalDisplay{w: &out}, linkOpener{w: &out, base: "https://binder.example/"}, nil)
	ctx := context.Background()

	require.NoError(t, pushConsumer(handler, false)(ctx, amqp.NewPushMessage(7, "create_binder", "Il binder è stato creato con successo")))
	assert.Contains(t, out.String(), "Il binder è stato creato con successo")
	assert.NotContains(t, out.String(), "https://binder.example/")

	require.NoError(t, pushConsumer(handler, true)(ctx, amqp.NewPushMessage(7, "create_category", "La categoria è stata creata con successo")))
	assert.Contains(t, out.String(), "https://binder.example/")
}

func TestCacheSweeperDropsExpiredQueries(t *testing.T) {
	c := query.New(query.WithTTL(time.Millisecond))
	_, err := query.Fetch(context.Background(), c, query.NewKey("binders"), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.Equal(t, 1, c.Size())

	sweeper := startCacheSweeper(c, applog.Discard(), 5*time.Millisecond)
	defer sweeper.Stop()
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}
