// Package nav runs a path through the router and its auth guard.
package nav

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/shoozy-shop/storefront/internal/interfaces/cli/bootstrap"
	appErrors "github.com/shoozy-shop/storefront/internal/shared/errors"
)

func NewCommand(flags *bootstrap.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "nav <path>",
		Short: "Show where a navigation to path ends up for the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := url.Parse(args[0])
			if err != nil {
				return appErrors.NewValidationError("invalid path", err.Error())
			}

			c, _, err := bootstrap.Build(flags)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			if err := c.Router.Push(cmd.Context(), target.Path, target.Query()); err != nil {
				return err
			}

			loc := c.Router.Current()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "requested: %s\n", target.String())
			fmt.Fprintf(out, "landed:    %s (%s)\n", loc.FullPath(), loc.Name())
			if role := c.Session.Role(); role != "" {
				fmt.Fprintf(out, "role:      %s\n", role)
			}
			return nil
		},
	}
}
