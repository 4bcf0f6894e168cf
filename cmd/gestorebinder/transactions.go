package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gestorebinder/internal/core"
	"gestorebinder/internal/render"
)

var (
	flagTxDate        string
	flagTxDescription string
	flagTxAmount      string
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions <id-categoria>",
	Aliases: []string{"transaction", "tx", "t"},
	Short:   "Elenca e gestisce le transazioni di una categoria",
	Args:    cobra.ExactArgs(1),
	RunE:    protected(categoryLocation, runTransactionsList),
}

var transactionAddCmd = &cobra.Command{
	Use:     "add <id-categoria>",
	Short:   "Aggiunge una transazione (importi negativi sono spese)",
	Example: "  gestorebinder tx add 3 --description Spesa --amount=-45,50 --date 2024-03-05",
	Args:    cobra.ExactArgs(1),
}

var transactionEditCmd = &cobra.Command{
	Use:   "edit <id-categoria> <id>",
	Short: "Modifica data, descrizione o importo di una transazione",
	Args:  cobra.ExactArgs(2),
}

var transactionDeleteCmd = &cobra.Command{
	Use:   "delete <id-categoria> <id>",
	Short: "Elimina una transazione",
	Args:  cobra.ExactArgs(2),
	RunE:  protected(categoryLocation, runTransactionDelete),
}

func init() {
	// Assigned here to break the initialization cycle between the commands
	// and their run functions, which read the command's flags.
	transactionAddCmd.RunE = protected(categoryLocation, runTransactionAdd)
	transactionEditCmd.RunE = protected(categoryLocation, runTransactionEdit)
	for _, cmd := range []*cobra.Command{transactionAddCmd, transactionEditCmd} {
		cmd.Flags().StringVarP(&flagTxDate, "date", "d", "", "Date, yyyy-mm-dd (default today)")
		cmd.Flags().StringVarP(&flagTxDescription, "description", "m", "", "Description")
		cmd.Flags().StringVarP(&flagTxAmount, "amount", "a", "", "Amount, e.g. --amount=-45,50")
	}
	_ = transactionAddCmd.MarkFlagRequired("description")
	_ = transactionAddCmd.MarkFlagRequired("amount")
	transactionsCmd.AddCommand(transactionAddCmd, transactionEditCmd, transactionDeleteCmd)
	rootCmd.AddCommand(transactionsCmd)
}

func runTransactionsList(ctx context.Context, a *app, args []string) error {
	categoryID, err := parseID("id categoria", args[0])
	if err != nil {
		return err
	}
	list, err := a.store.Transactions(ctx, categoryID)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, render.Transactions(list))
	return nil
}

// transactionInput applies the flags that were set on top of base.
func transactionInput(cmd *cobra.Command, base core.TransactionInput) (core.TransactionInput, error) {
	in := base
	if cmd.Flags().Changed("date") {
		d, err := core.ParseDate(flagTxDate)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	if cmd.Flags().Changed("description") {
		in.Description = flagTxDescription
	}
	if cmd.Flags().Changed("amount") {
		m, err := core.NewMoney(flagTxAmount)
		if err != nil {
			return in, err
		}
		in.Amount = m
	}
	return in, in.Validate()
}

func runTransactionAdd(ctx context.Context, a *app, args []string) error {
	categoryID, err := parseID("id categoria", args[0])
	if err != nil {
		return err
	}
	now := time.Now()
	in, err := transactionInput(transactionAddCmd, core.TransactionInput{
		Date: core.NewDate(now.Year(), int(now.Month()), now.Day()),
	})
	if err != nil {
		return err
	}
	tx, err := a.store.CreateTransaction(ctx, categoryID, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\n", tx.ID, core.FormatDateIt(tx.Date.Time), tx.Description, core.FormatCurrency(tx.Amount))
	return nil
}

func runTransactionEdit(ctx context.Context, a *app, args []string) error {
	categoryID, err := parseID("id categoria", args[0])
	if err != nil {
		return err
	}
	id, err := parseID("id transazione", args[1])
	if err != nil {
		return err
	}
	list, err := a.store.Transactions(ctx, categoryID)
	if err != nil {
		return err
	}
	var current *core.Transaction
	for i := range list.Transactions {
		if list.Transactions[i].ID == id {
			current = &list.Transactions[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("transazione %d non trovata nella categoria %d", id, categoryID)
	}

	in, err := transactionInput(transactionEditCmd, current.Input())
	if err != nil {
		return err
	}
	tx, err := a.store.UpdateTransaction(ctx, categoryID, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\n", tx.ID, core.FormatDateIt(tx.Date.Time), tx.Description, core.FormatCurrency(tx.Amount))
	return nil
}

func runTransactionDelete(ctx context.Context, a *app, args []string) error {
	categoryID, err := parseID("id categoria", args[0])
	if err != nil {
		return err
	}
	id, err := parseID("id transazione", args[1])
	if err != nil {
		return err
	}
	return a.store.DeleteTransaction(ctx, categoryID, id)
}
