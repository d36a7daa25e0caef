package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/goldy/internal/model"
	"github.com/mmeshcher/goldy/internal/wizard"
)

const dateLayout = "2006-01-02"

var errIncompleteForm = errors.New("escrow details are incomplete")

type createOptions struct {
	party       string
	vendorName  string
	vendorEmail string
	service     string
	date        string
	deposit     string
	milestones  []string
	dryRun      bool
}

func newEscrowsCreateCmd(a *app) *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an escrow step by step",
		Long: `Creates an escrow. The vendor is either an existing Goldy user found with
--party or a vendor entered by --vendor-name and --vendor-email.

Milestones are given as AMOUNT[:DESCRIPTION[:CONDITIONS[:YYYY-MM-DD]]] and must
add up exactly to the deposit.

Example:
  goldy escrows create --vendor-name "Sarah Chen Photography" \
    --vendor-email sarah@example.com --service Photography --deposit 500 \
    --milestone "300:Booking" --milestone "200:Delivery:After photos are delivered"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			return a.createEscrow(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.party, "party", "", "existing user to trade with (name or email search)")
	f.StringVar(&opts.vendorName, "vendor-name", "", "vendor name when not a Goldy user")
	f.StringVar(&opts.vendorEmail, "vendor-email", "", "vendor email when not a Goldy user")
	f.StringVar(&opts.service, "service", wizard.DefaultServiceType, "service type: "+strings.Join(wizard.ServiceTypes(), ", "))
	f.StringVar(&opts.date, "date", "", "service date (YYYY-MM-DD)")
	f.StringVar(&opts.deposit, "deposit", "", "deposit amount in dollars")
	f.StringArrayVar(&opts.milestones, "milestone", nil, "milestone AMOUNT[:DESCRIPTION[:CONDITIONS[:YYYY-MM-DD]]], repeatable")
	f.BoolVar(&opts.dryRun, "dry-run", false, "show the review without submitting")
	return cmd
}

func (a *app) createEscrow(cmd *cobra.Command, opts createOptions) error {
	out := cmd.OutOrStdout()
	store := wizard.NewStore(a.logger.Named("wizard"))

	if opts.party != "" {
		u, err := a.pickParty(cmd, opts.party)
		if err != nil {
			return err
		}
		store.Dispatch(wizard.SelectParty{User: u})
	} else {
		store.Dispatch(wizard.SetVendorName{Name: opts.vendorName})
		store.Dispatch(wizard.SetVendorEmail{Email: opts.vendorEmail})
	}

	if !wizard.IsServiceType(opts.service) {
		return fmt.Errorf("unknown service type %q (one of: %s)", opts.service, strings.Join(wizard.ServiceTypes(), ", "))
	}
	store.Dispatch(wizard.SetServiceType{ServiceType: opts.service})

	if opts.date != "" {
		d, err := time.Parse(dateLayout, opts.date)
		if err != nil {
			return fmt.Errorf("invalid service date %q, expected YYYY-MM-DD", opts.date)
		}
		store.Dispatch(wizard.SetServiceDate{Date: &d})
	}

	if err := advance(out, store); err != nil {
		return err
	}

	store.Dispatch(wizard.SetDeposit{Amount: opts.deposit})
	if len(opts.milestones) > 0 {
		store.Dispatch(wizard.ToggleMilestones{Enabled: true})
		for i, raw := range opts.milestones {
			in, err := parseMilestone(raw)
			if err != nil {
				return err
			}
			if i > 0 {
				store.Dispatch(wizard.AddMilestone{})
			}
			store.Dispatch(wizard.UpdateMilestone{Index: i, Input: in})
		}
	}

	if err := advance(out, store); err != nil {
		return err
	}

	renderReview(out, store.Snapshot().Draft, a.feePolicy())
	if opts.dryRun {
		fmt.Fprintln(out, mutedStyle.Render("Dry run: nothing was submitted."))
		return nil
	}

	st, err := store.Submit(cmd.Context(), a.book)
	if err != nil {
		if st.Message != "" {
			fmt.Fprintln(out, errorStyle.Render(st.Message))
		}
		if len(st.Errors) > 0 {
			renderFieldErrors(out, st.Errors)
		}
		return err
	}

	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Escrow #%d created", st.Created.ID)))
	renderEscrowDetail(out, *st.Created, a.book)
	return nil
}

// advance переводит мастер на следующий шаг и печатает ошибки полей, если переход не прошёл.
func advance(out io.Writer, store *wizard.Store) error {
	before := store.Snapshot().Step
	st := store.Dispatch(wizard.Next{})
	if st.Step != before {
		return nil
	}
	renderFieldErrors(out, st.Errors)
	return fmt.Errorf("%w: %s", errIncompleteForm, before)
}

// pickParty находит пользователя по запросу: точное совпадение email или единственный результат.
func (a *app) pickParty(cmd *cobra.Command, query string) (model.User, error) {
	st, err := a.searchUsers(cmd.Context(), query)
	if err != nil {
		return model.User{}, err
	}

	for _, u := range st.Results {
		if strings.EqualFold(u.Email, strings.TrimSpace(query)) {
			return u, nil
		}
	}

	switch len(st.Results) {
	case 0:
		return model.User{}, fmt.Errorf("no user matches %q", query)
	case 1:
		return st.Results[0], nil
	default:
		names := make([]string, 0, len(st.Results))
		for _, u := range st.Results {
			names = append(names, fmt.Sprintf("%s <%s>", u.Name, u.Email))
		}
		return model.User{}, fmt.Errorf("%q matches several users: %s", query, strings.Join(names, ", "))
	}
}

func parseMilestone(raw string) (wizard.MilestoneInput, error) {
	parts := strings.SplitN(raw, ":", 4)
	in := wizard.MilestoneInput{Amount: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		in.Description = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		in.Conditions = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		d, err := time.Parse(dateLayout, strings.TrimSpace(parts[3]))
		if err != nil {
			return in, fmt.Errorf("invalid milestone due date in %q", raw)
		}
		in.DueDate = &d
	}
	return in, nil
}
