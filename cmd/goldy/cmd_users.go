package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/goldy/internal/search"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Find other Goldy users",
	}
	cmd.AddCommand(newUsersSearchCmd(a))
	return cmd
}

func newUsersSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search users by name or email",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}

			st, err := a.searchUsers(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(st.Results) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No users found."))
				return nil
			}
			for _, u := range st.Results {
				fmt.Fprintf(out, "%s  %s %s  %s\n",
					mutedStyle.Render(fmt.Sprintf("#%-4d", u.ID)),
					titleStyle.Render(u.Initials()),
					u.Name,
					mutedStyle.Render(u.Email),
				)
			}
			return nil
		},
	}
}

// searchUsers выполняет один поиск через контроллер и ждёт результата.
func (a *app) searchUsers(ctx context.Context, query string) (search.State, error) {
	c := search.New(a.client, a.session,
		search.WithParent(ctx),
		search.WithLogger(a.logger.Named("search")),
	)
	defer c.Close()

	c.Search(query)
	c.Wait()

	st := c.Snapshot()
	if st.Message != "" {
		return st, fmt.Errorf("search users: %s", st.Message)
	}
	return st, nil
}
