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

const chartPoints = 10

var flagChartWidth int

var categoriesCmd = &cobra.Command{
	Use:     "categories <id-binder>",
	Aliases: []string{"category", "c"},
	Short:   "Elenca e gestisce le categorie di un binder",
	Args:    cobra.ExactArgs(1),
	RunE:    protected(binderLocation, runCategoriesList),
}

var categoryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Mostra una categoria, le sue transazioni e il grafico",
	Args:  cobra.ExactArgs(1),
	RunE:  protected(categoryLocation, runCategoryShow),
}

var categoryCreateCmd = &cobra.Command{
	Use:   "create <id-binder> <nome>",
	Short: "Crea una categoria in un binder",
	Args:  cobra.MinimumNArgs(2),
	RunE:  protected(binderLocation, runCategoryCreate),
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <id> <nome>",
	Short: "Rinomina una categoria",
	Args:  cobra.MinimumNArgs(2),
	RunE:  protected(categoryLocation, runCategoryRename),
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Elimina una categoria con le sue transazioni",
	Args:  cobra.ExactArgs(1),
	RunE:  protected(categoryLocation, runCategoryDelete),
}

func init() {
	categoryShowCmd.Flags().IntVarP(&flagChartWidth, "width", "w", 30, "Chart bar width")
	categoriesCmd.AddCommand(categoryShowCmd, categoryCreateCmd, categoryRenameCmd, categoryDeleteCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func categoryLocation(args []string) string {
	id, err := parseID("id categoria", args[0])
	if err != nil {
		return session.DashboardPath()
	}
	return session.CategoryPath(id)
}

func runCategoriesList(ctx context.Context, a *app, args []string) error {
	binderID, err := parseID("id binder", args[0])
	if err != nil {
		return err
	}
	cats, err := a.store.Categories(ctx, binderID)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, render.Categories(cats))
	return nil
}

func runCategoryShow(ctx context.Context, a *app, args []string) error {
	id, err := parseID("id categoria", args[0])
	if err != nil {
		return err
	}
	cat, err := a.store.Category(ctx, id)
	if err != nil {
		return err
	}
	list, err := a.store.Transactions(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, render.Title(cat.Name))
	fmt.Fprintln(a.out, render.Card("Totale", render.Amount(cat.TotalAmount),
		fmt.Sprintf("%d transazioni", cat.TransactionsCount)))
	fmt.Fprint(a.out, render.Transactions(list))
	if len(list.Transactions) > 0 {
		fmt.Fprintln(a.out)
		fmt.Fprint(a.out, render.Chart(core.ChartSeries(list.Transactions, chartPoints), flagChartWidth))
	}
	return nil
}

func runCategoryCreate(ctx context.Context, a *app, args []string) error {
	binderID, err := parseID("id binder", args[0])
	if err != nil {
		return err
	}
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if err := core.ValidateName(name); err != nil {
		return err
	}
	cat, err := a.store.CreateCategory(ctx, binderID, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d\t%s\n", cat.ID, cat.Name)
	return nil
}

func runCategoryRename(ctx context.Context, a *app, args []string) error {
	id, err := parseID("id categoria", args[0])
	if err != nil {
		return err
	}
	name := strings.TrimSpace(strings.Join(args[1:], " "))
	if err := core.ValidateName(name); err != nil {
		return err
	}
	// The owning binder is needed to invalidate its listing.
	current, err := a.store.Category(ctx, id)
	if err != nil {
		return err
	}
	cat, err := a.store.UpdateCategory(ctx, current.BinderID, id, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d\t%s\n", cat.ID, cat.Name)
	return nil
}

func runCategoryDelete(ctx context.Context, a *app, args []string) error {
	id, err := parseID("id categoria", args[0])
	if err != nil {
		return err
	}
	current, err := a.store.Category(ctx, id)
	if err != nil {
		return err
	}
	return a.store.DeleteCategory(ctx, current.BinderID, id)
}
