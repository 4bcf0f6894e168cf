package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gestorebinder/internal/core"
	"gestorebinder/internal/render"
	"gestorebinder/internal/session"
)

var bindersCmd = &cobra.Command{
	Use:     "binders",
	Aliases: []string{"binder", "b"},
	Short:   "Elenca e gestisce i binder",
	Args:    cobra.NoArgs,
	RunE:    protected(dashboard, runBindersList),
}

var binderShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Mostra un binder e le sue categorie",
	Args:  cobra.ExactArgs(1),
	RunE:  protected(binderLocation, runBinderShow),
}

var binderCreateCmd = &cobra.Command{
	Use:   "create <nome>",
	Short: "Crea un binder",
	Args:  cobra.MinimumNArgs(1),
	RunE:  protected(dashboard, runBinderCreate),
}

var binderRenameCmd = &cobra.Command{
	Use:   "rename <id> <nome>",
	Short: "Rinomina un binder",
	Args:  cobra.MinimumNArgs(2),
	RunE:  protected(binderLocation, runBinderRename),
}

var binderDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Elimina un binder con categorie e transazioni",
	Args:  cobra.ExactArgs(1),
	RunE:  protected(binderLocation, runBinderDelete),
}

func init() {
	bindersCmd.AddCommand(binderShowCmd, binderCreateCmd, binderRenameCmd, binderDeleteCmd)
	rootCmd.AddCommand(bindersCmd)
}

func dashboard([]string) string { return session.DashboardPath() }

func binderLocation(args []string) string {
	id, err := parseID("id binder", args[0])
	if err != nil {
		return session.DashboardPath()
	}
	return session.BinderPath(id)
}

func runBindersList(ctx context.Context, a *app, _ []string) error {
	binders, err := a.store.Binders(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, render.Binders(binders))
	if len(binders) > 0 {
		var total core.Money
		for _, b := range binders {
			total = total.Add(b.TotalAmount)
		}
		fmt.Fprintln(a.out, render.Card("Saldo complessivo", render.Amount(total), fmt.Sprintf("%d binder", len(binders))))
	}
	return nil
}

func runBinderShow(ctx context.Context, a *app, args []string) error {
	id, err := parseID("id binder", args[0])
	if err != nil {
		return err
	}
	binder, err := a.store.Binder(ctx, id)
	if err != nil {
		return err
	}
	cats, err := a.store.Categories(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, render.Title(binder.Name))
	fmt.Fprint(a.out, render.BinderDetail(binder, cats))
	return nil
}

func runBinderCreate(ctx context.Context, a *app, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if err := core.ValidateName(name); err != nil {
		return err
	}
	binder, err := a.store.CreateBinder(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d\t%s\n", binder.ID, binder.Name)
	return nil
}

func runBinderRename(ctx context.Context, a *app, args []string) error {
	id, err := parseID("id binder", args[0])
	if err != nil {
		return err
	}
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if err := core.ValidateName(name); err != nil {
		return err
	}
	binder, err := a.store.UpdateBinder(ctx, id, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d\t%s\n", binder.ID, binder.Name)
	return nil
}

func runBinderDelete(ctx context.Context, a *app, args []string) error {
	id, err := parseID("id binder", args[0])
	if err != nil {
		return err
	}
	return a.store.DeleteBinder(ctx, id)
}
