package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"gestorebinder/internal/apiclient"
	"gestorebinder/internal/config"
	"gestorebinder/internal/core"
	"gestorebinder/internal/datasync"
	applog "gestorebinder/internal/log"
	"gestorebinder/internal/offline"
	"gestorebinder/internal/query"
	"gestorebinder/internal/render"
	"gestorebinder/internal/session"
)

var (
	flagConfig   string
	flagServer   string
	flagScheme   string
	flagOffline  bool
	flagNoCache  bool
	flagLogLevel string
	flagQuiet    bool
	flagLoader   string
)

var rootCmd = &cobra.Command{
	Use:           "gestorebinder",
	Short:         "Gestione di binder, categorie e transazioni",
	Long:          "Client a riga di comando per GestoreBinder: binder, categorie, transazioni e notifiche push.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, render.Notice("Errore", err.Error(), true))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.ClientPath(), "Config file")
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "", "Backend URL (overrides server_url)")
	rootCmd.PersistentFlags().StringVar(&flagScheme, "scheme", "", "Invalidation scheme: canonical or legacy")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", true, "Serve cached answers when the backend is unreachable")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Disable the offline cache for this run")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress notifications")
	rootCmd.PersistentFlags().StringVar(&flagLoader, "loader", "spinner", "Loading indicator: spinner, heart, wallet, card, coin, receipt, dollar")
}

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     config.ClientConfig
	logger  *applog.Logger
	out     io.Writer
	api     *apiclient.Client
	session *session.Session
	store   *datasync.Store
	cache   offline.Store
	worker  *offline.Worker
}

// newApp loads the config file, applies flag overrides and wires the client
// stack: offline worker, api client with restored cookies, session and
// query-backed data store.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadClient(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagServer != "" {
		cfg.ServerURL = flagServer
	}
	if flagScheme != "" {
		cfg.Invalidation.Scheme = flagScheme
	}
	if cmd.Flags().Changed("offline") {
		cfg.Offline.Enabled = flagOffline
	}
	if flagNoCache {
		cfg.Offline.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scheme, err := datasync.ParseScheme(cfg.Invalidation.Scheme)
	if err != nil {
		return nil, err
	}

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(flagLogLevel),
		Format:    "text",
		Component: applog.ComponentCLI,
		Output:    os.Stderr,
	})

	a := &app{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}

	var opts []apiclient.Option
	opts = append(opts, apiclient.WithLogger(logger))
	if cfg.Offline.Enabled {
		if err := a.openCache(); err != nil {
			logger.Warn("Offline cache unavailable", applog.FieldError, err)
		} else {
			a.worker = offline.NewWorker(a.cache,
				offline.WithCacheName(cfg.Offline.CacheName),
				offline.WithLogger(logger))
			opts = append(opts, apiclient.WithTransport(a.worker))
		}
	}

	a.api, err = apiclient.New(cfg.ServerURL, opts...)
	if err != nil {
		return nil, err
	}
	cookies, err := config.LoadSessionCookies(config.SessionPath())
	if err != nil {
		logger.Warn("Ignoring saved session", applog.FieldError, err)
	} else {
		a.api.SetCookies(cookies)
	}

	a.session = session.New(a.api, logger)

	a.store = datasync.NewStore(a.api, query.New(query.WithLogger(logger)),
		datasync.WithScheme(scheme),
		datasync.WithNotifier(datasync.NotifierFunc(a.notify)),
		datasync.WithLogger(logger))
	return a, nil
}

func (a *app) openCache() error {
	if a.cfg.Offline.Backend == "memory" {
		a.cache = offline.NewMemoryStore()
		return nil
	}
	store, err := offline.NewSQLiteStore(a.cfg.Offline.DBPath)
	if err != nil {
		return err
	}
	a.cache = store
	return nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

// notify prints a notification to stderr unless --quiet is set.
func (a *app) notify(n datasync.Notification) {
	if flagQuiet {
		return
	}
	fmt.Fprintln(os.Stderr, render.Notice(n.Title, n.Description, n.Variant == datasync.VariantDestructive))
}

func (a *app) loader() core.LoaderVariant {
	return core.ParseLoaderVariant(flagLoader)
}

// saveSession persists the cookies the client currently holds.
func (a *app) saveSession() error {
	return config.SaveSessionCookies(config.SessionPath(), a.api.Cookies())
}

// errNotAuthenticated is returned when the guard sends a command back to the
// login route.
var errNotAuthenticated = errors.New("sessione non valida: esegui 'gestorebinder login'")

// requireSession probes the backend and runs the route guard for location.
func (a *app) requireSession(ctx context.Context, location string) error {
	a.session.Start(ctx)
	if !session.NewGuard(a.session, session.NewHistory(location)).Check() {
		return errNotAuthenticated
	}
	return nil
}

// withApp builds the app, runs fn and releases it.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd.Context(), a, args)
	}
}

// protected is withApp behind the session guard for the route location
// returns.
func protected(location func(args []string) string, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return withApp(func(ctx context.Context, a *app, args []string) error {
		if err := a.requireSession(ctx, location(args)); err != nil {
			return err
		}
		return fn(ctx, a, args)
	})
}

// parseID parses a positive resource id argument.
func parseID(what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s non valido: %q", what, arg)
	}
	return id, nil
}
