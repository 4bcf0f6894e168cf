package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gestorebinder/internal/amqp"
	"gestorebinder/internal/cache"
	applog "gestorebinder/internal/log"
	"gestorebinder/internal/offline"
	"gestorebinder/internal/query"
	"gestorebinder/internal/render"
)

const cacheSweepInterval = time.Minute

var (
	flagNotifyUser int64
	flagNotifyOpen bool
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "Riceve le notifiche push del backend",
	Args:    cobra.NoArgs,
	RunE:    withApp(runNotifications),
}

func init() {
	notificationsCmd.Flags().Int64Var(&flagNotifyUser, "user", 0, "Subscribe to this user id only (0 subscribes to every user)")
	notificationsCmd.Flags().BoolVar(&flagNotifyOpen, "open", false, "Print the application link after each notification")
	rootCmd.AddCommand(notificationsCmd)
}

// terminalDisplay shows push notifications as lines on w.
type terminalDisplay struct {
	w io.Writer
}

func (d terminalDisplay) Show(_ context.Context, n offline.PushNotification) error {
	_, err := fmt.Fprintln(d.w, render.Notice(n.Title, n.Body, false))
	return err
}

func (d terminalDisplay) Dismiss(context.Context, string) error { return nil }

// linkOpener prints application links relative to the backend root.
type linkOpener struct {
	w    io.Writer
	base string
}

func (o linkOpener) Open(_ context.Context, url string) error {
	_, err := fmt.Fprintf(o.w, "  → %s%s\n", strings.TrimRight(o.base, "/"), url)
	return err
}

// pushConsumer hands the body of each push message to the push handler.
func pushConsumer(h *offline.PushHandler, open bool) amqp.Handler {
	return func(ctx context.Context, msg *amqp.PushMessage) error {
		n, err := h.HandlePush(ctx, []byte(msg.Body))
		if err != nil {
			return err
		}
		if open {
			return h.HandleClick(ctx, n)
		}
		return nil
	}
}

// startCacheSweeper drops expired query entries in the background for as
// long as a long-running command keeps the cache alive.
func startCacheSweeper(c *query.Cache, logger *applog.Logger, interval time.Duration) *cache.Manager {
	m := cache.NewManager(logger)
	m.Register(c.Entries())
	m.StartCleanup(interval)
	return m
}

func runNotifications(ctx context.Context, a *app, _ []string) error {
	if a.cfg.AMQP.URL == "" {
		return errors.New("amqp.url non configurato")
	}
	client, err := amqp.NewClient(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.cfg.AMQP.Queue, a.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	sweeper := startCacheSweeper(a.store.Cache(), a.logger, cacheSweepInterval)
	defer sweeper.Stop()

	handler := offline.NewPushHandler(terminalDisplay{w: a.out}, linkOpener{w: a.out, base: a.cfg.ServerURL}, a.logger)
	a.logger.Info("Listening for push messages",
		"topic", a.cfg.AMQP.Queue, applog.FieldUserID, flagNotifyUser, applog.FieldOperation, applog.OpPush)
	fmt.Fprintln(a.out, render.Loader(a.loader(), 0, "In attesa di notifiche... (Ctrl+C per uscire)"))

	err = client.Consume(ctx, flagNotifyUser, pushConsumer(handler, flagNotifyOpen))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
