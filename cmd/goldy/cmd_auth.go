package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/goldy/internal/validation"
)

// fieldErrors собирает ошибки проверки полей формы в одну ошибку.
func fieldErrors(fields map[string]validation.Result) error {
	var errs []error
	for _, name := range []string{"email", "name", "password"} {
		r, ok := fields[name]
		if !ok || r.IsValid() {
			continue
		}
		reason := r.Reason
		if reason == "" {
			reason = "is required"
		}
		errs = append(errs, fmt.Errorf("%s: %s", name, reason))
	}
	return errors.Join(errs...)
}

func newSignupCmd(a *app) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fieldErrors(map[string]validation.Result{
				"email":    validation.Email(email),
				"name":     validation.Name(name),
				"password": validation.SignupPassword(password),
			}); err != nil {
				return err
			}

			res, err := a.client.Signup(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			if err := a.session.Login(cmd.Context(), res.Token, res.UserID, res.Email); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Welcome to Goldy, "+strings.TrimSpace(name)+"!"))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (8+ characters with upper, lower case and a digit)")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fieldErrors(map[string]validation.Result{
				"email":    validation.Email(email),
				"password": validation.LoginPassword(password),
			}); err != nil {
				return err
			}

			res, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.session.Login(cmd.Context(), res.Token, res.UserID, res.Email); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Logged in as "+res.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.session.Snapshot()
			out := cmd.OutOrStdout()
			if !st.Authenticated() {
				fmt.Fprintln(out, mutedStyle.Render("Not logged in"))
				return nil
			}

			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("EMAIL"), st.Email)
			fmt.Fprintf(out, "%s %d\n", labelStyle.Render("USER ID"), st.UserID)
			if exp, ok := a.session.ExpiresAt(); ok {
				line := exp.Local().Format(time.RFC1123)
				if time.Now().After(exp) {
					line += errorStyle.Render(" (expired)")
				}
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("EXPIRES"), line)
			}
			return nil
		},
	}
}
