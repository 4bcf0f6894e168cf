package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gestorebinder/internal/render"
)

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Gestisce la cache offline",
}

var offlineInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Scarica la shell dell'applicazione nella cache corrente",
	Args:  cobra.NoArgs,
	RunE:  withApp(runOfflineInstall),
}

var offlineActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Elimina le generazioni di cache precedenti",
	Args:  cobra.NoArgs,
	RunE:  withApp(runOfflineActivate),
}

var offlineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Elenca le generazioni di cache e il loro contenuto",
	Args:  cobra.NoArgs,
	RunE:  withApp(runOfflineStatus),
}

func init() {
	offlineCmd.AddCommand(offlineInstallCmd, offlineActivateCmd, offlineStatusCmd)
	rootCmd.AddCommand(offlineCmd)
}

var errOfflineDisabled = errors.New("cache offline disabilitata")

func runOfflineInstall(ctx context.Context, a *app, _ []string) error {
	if a.worker == nil {
		return errOfflineDisabled
	}
	fmt.Fprintln(a.out, render.Loader(a.loader(), 0, "Installazione di "+a.worker.CacheName()+"..."))
	if err := a.worker.Install(ctx, a.cfg.ServerURL); err != nil {
		return err
	}
	fmt.Fprintln(a.out, render.Notice("Cache installata", a.worker.CacheName(), false))
	return nil
}

func runOfflineActivate(ctx context.Context, a *app, _ []string) error {
	if a.worker == nil {
		return errOfflineDisabled
	}
	removed, err := a.worker.Activate(ctx)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Fprintln(a.out, "Nessuna cache da eliminare")
	}
	for _, name := range removed {
		fmt.Fprintf(a.out, "Eliminata %s\n", name)
	}
	return nil
}

func runOfflineStatus(ctx context.Context, a *app, _ []string) error {
	if a.cache == nil {
		return errOfflineDisabled
	}
	names, err := a.cache.Caches(ctx)
	if err != nil {
		return err
	}
	t := render.Table{Title: "Cache offline", Headers: []string{"Generazione", "Corrente", "Risorse"}}
	for _, name := range names {
		keys, err := a.cache.Keys(ctx, name)
		if err != nil {
			return err
		}
		current := ""
		if name == a.worker.CacheName() {
			current = "✓"
		}
		t.Rows = append(t.Rows, []string{name, current, fmt.Sprint(len(keys))})
	}
	if len(t.Rows) == 0 {
		fmt.Fprintln(a.out, "Nessuna cache installata")
		return nil
	}
	fmt.Fprint(a.out, render.RenderTable(t))
	return nil
}
