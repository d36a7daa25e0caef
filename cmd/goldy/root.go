package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/goldy/internal/config"
	"github.com/mmeshcher/goldy/internal/escrows"
	"github.com/mmeshcher/goldy/internal/gateway"
	"github.com/mmeshcher/goldy/internal/logger"
	"github.com/mmeshcher/goldy/internal/model"
	"github.com/mmeshcher/goldy/internal/prefs"
	"github.com/mmeshcher/goldy/internal/session"
	"github.com/mmeshcher/goldy/internal/wizard"
)

// errLoginRequired возвращается командами, которым нужен вход.
var errLoginRequired = errors.New("not logged in")

// app содержит зависимости, общие для всех команд.
type app struct {
	cfg     config.Config
	verbose bool

	logger  *zap.Logger
	store   prefs.Store
	session *session.Session
	client  *gateway.Client
	book    *escrows.Book
}

func (a *app) feePolicy() wizard.FeePolicy {
	return wizard.FeePolicy{Rate: a.cfg.FeeRate, Minimum: model.Cents(a.cfg.FeeMinimumCents)}
}

func (a *app) requireLogin() error {
	if !a.session.Snapshot().Authenticated() {
		return errLoginRequired
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "goldy",
		Short: "Goldy peer-to-peer escrow client",
		Long: `goldy manages escrows on the Goldy backend: sign up or log in,
create escrows with milestone-based payouts, fund them and release milestones.

Configuration comes from flags, overridden by GOLDY_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	a.cfg.BindFlags(root.PersistentFlags())
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newEscrowsCmd(a),
		newUsersCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.cfg.Load(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	level := a.cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	l, err := logger.New(level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = l

	store, err := prefs.Open(cmd.Context(), a.cfg.Prefs)
	if err != nil {
		return fmt.Errorf("open prefs: %w", err)
	}
	a.store = store

	sess, err := session.Open(cmd.Context(), store)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	a.session = sess

	a.client = gateway.NewClient(a.cfg.APIURL,
		gateway.WithTimeout(a.cfg.Timeout),
		gateway.WithLogger(a.logger.Named("gateway")),
	)
	a.book = escrows.NewBook(a.client, a.session, a.logger.Named("escrows"))

	a.logger.Debug("client configured",
		zap.String("api_url", a.cfg.APIURL),
		zap.Duration("timeout", a.cfg.Timeout),
	)
	return nil
}

func (a *app) teardown() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			return fmt.Errorf("close prefs: %w", err)
		}
	}
	return nil
}

// userMessage превращает ошибку в текст для пользователя.
func userMessage(err error) string {
	switch {
	case errors.Is(err, config.ErrMissingPublishableKey):
		return "payment provider publishable key is required (set GOLDY_PUBLISHABLE_KEY or -k)"
	case errors.Is(err, errLoginRequired):
		return "Please log in to continue"
	case errors.Is(err, escrows.ErrEscrowNotFound), errors.Is(err, escrows.ErrMilestoneNotFound):
		return err.Error()
	case errors.Is(err, escrows.ErrAlreadyReleased):
		return "This milestone has already been released"
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		if msg := gateway.Message(err); msg != "" {
			return msg
		}
		return "Canceled"
	}
	return err.Error()
}
