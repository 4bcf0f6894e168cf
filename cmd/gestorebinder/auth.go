package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gestorebinder/internal/apiclient"
	"gestorebinder/internal/datasync"
	"gestorebinder/internal/session"
)

var (
	flagUsername string
	flagPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Accedi e salva la sessione",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogin),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Termina la sessione",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogout),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Mostra se la sessione salvata è valida",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStatus),
}

func init() {
	loginCmd.Flags().StringVarP(&flagUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&flagPassword, "password", "p", "", "Password (read from stdin when empty)")
	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
}

func runLogin(ctx context.Context, a *app, _ []string) error {
	username, password := flagUsername, flagPassword
	in := bufio.NewReader(os.Stdin)
	if username == "" {
		fmt.Fprint(os.Stderr, "Username: ")
		line, _ := in.ReadString('\n')
		username = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, _ := in.ReadString('\n')
		password = strings.TrimSpace(line)
	}

	if err := a.session.Login(ctx, username, password); err != nil {
		var authErr *apiclient.AuthError
		if errors.As(err, &authErr) {
			a.notify(datasync.LoginFailedNotification)
			return errors.New(authErr.Message)
		}
		return err
	}
	if err := a.saveSession(); err != nil {
		return err
	}
	a.notify(datasync.LoginNotification)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	err := a.session.Logout(ctx)
	// The local session is cleared whatever the backend answered.
	if saveErr := a.saveSession(); saveErr != nil {
		return saveErr
	}
	if err != nil {
		a.notify(datasync.LogoutFailedNotification)
		return err
	}
	a.notify(datasync.LogoutNotification)
	return nil
}

func runStatus(ctx context.Context, a *app, _ []string) error {
	st := a.session.Start(ctx)
	if !st.Authenticated {
		fmt.Fprintln(a.out, "Non autenticato")
		return nil
	}
	fmt.Fprintf(a.out, "Autenticato su %s (%s)\n", a.api.BaseURL(), session.DashboardPath())
	return nil
}
