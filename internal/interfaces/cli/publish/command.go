// Package publish sends one message to a broker destination.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shoozy-shop/storefront/internal/application/notification"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/bootstrap"
	appErrors "github.com/shoozy-shop/storefront/internal/shared/errors"
)

var timeout time.Duration

func NewCommand(flags *bootstrap.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <destination> <json>",
		Short: "Send a JSON payload to a broker destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, args[0], args[1])
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for the broker connection")
	return cmd
}

func run(cmd *cobra.Command, flags *bootstrap.Flags, destination, payload string) error {
	var body any
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return appErrors.NewValidationError("payload must be JSON", err.Error())
	}

	c, _, err := bootstrap.Build(flags)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c.Session.CheckAuth(ctx)

	connected := make(chan struct{})
	c.Hub.OnStateChange(func(s notification.State) {
		if s == notification.StateConnected {
			select {
			case <-connected:
			default:
				close(connected)
			}
		}
	})
	c.Hub.Connect(context.WithoutCancel(ctx))
	defer c.Hub.Disconnect()

	select {
	case <-connected:
	case <-ctx.Done():
		return appErrors.NewNotConnectedError("broker did not accept the connection in time")
	}

	if err := c.Hub.Send(destination, body); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", destination)
	return nil
}
