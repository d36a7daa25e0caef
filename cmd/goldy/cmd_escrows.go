package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/goldy/internal/escrows"
	"github.com/mmeshcher/goldy/internal/model"
)

func newEscrowsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "escrows",
		Aliases: []string{"escrow"},
		Short:   "List, create, fund and release escrows",
	}
	cmd.AddCommand(
		newEscrowsListCmd(a),
		newEscrowsShowCmd(a),
		newEscrowsWatchCmd(a),
		newEscrowsCreateCmd(a),
		newEscrowsFundCmd(a),
		newEscrowsReleaseCmd(a),
	)
	return cmd
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func newEscrowsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your escrows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			list, err := a.book.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			renderEscrowList(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func newEscrowsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an escrow with its milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "escrow")
			if err != nil {
				return err
			}
			if _, err := a.book.Refresh(cmd.Context()); err != nil {
				return err
			}
			e, ok := a.book.Get(id)
			if !ok {
				return fmt.Errorf("%w: #%d", escrows.ErrEscrowNotFound, id)
			}
			renderEscrowDetail(cmd.OutOrStdout(), e, a.book)
			return nil
		},
	}
}

func newEscrowsFundCmd(a *app) *cobra.Command {
	var paymentMethod string

	cmd := &cobra.Command{
		Use:   "fund ID",
		Short: "Fund an escrow with a payment method reference",
		Long: `Funds an escrow with a payment method reference obtained from the payment
provider (for example pm_1Nv...). Raw card numbers are refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0], "escrow")
			if err != nil {
				return err
			}

			res, err := a.book.Fund(cmd.Context(), id, paymentMethod)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Escrow #%d funded", id)))
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("STATUS"), res.Status)
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("PAYMENT"), res.PaymentIntentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&paymentMethod, "payment-method", "", "payment method reference from the payment provider")
	_ = cmd.MarkFlagRequired("payment-method")
	return cmd
}

func newEscrowsReleaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "release ID MILESTONE",
		Short: "Release a milestone payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			escrowID, err := parseID(args[0], "escrow")
			if err != nil {
				return err
			}
			milestoneID, err := parseID(args[1], "milestone")
			if err != nil {
				return err
			}

			if _, err := a.book.Refresh(cmd.Context()); err != nil {
				return err
			}
			if _, ok := a.book.Get(escrowID); !ok {
				return fmt.Errorf("%w: #%d", escrows.ErrEscrowNotFound, escrowID)
			}

			res, err := a.book.Release(cmd.Context(), escrowID, milestoneID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Milestone #%d released", milestoneID)))
			if res.Remaining != nil {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render("REMAINING"), money(model.Cents(*res.Remaining)))
			}
			if e, ok := a.book.Get(escrowID); ok {
				fmt.Fprintln(out, progressBar(e.Completion(), e.Positions()))
			}
			return nil
		},
	}
}
