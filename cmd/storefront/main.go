package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shoozy-shop/storefront/internal/interfaces/cli/account"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/bootstrap"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/nav"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/publish"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/qr"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/watch"
)

func main() {
	var flags bootstrap.Flags

	rootCmd := &cobra.Command{
		Use:          "storefront",
		Short:        "Storefront - Shoozy shop client",
		Long:         `Storefront drives the Shoozy shop backend from the terminal: session management, guarded navigation, realtime notifications and VietQR payments.`,
		SilenceUsage: true,
	}
	flags.Register(rootCmd)

	rootCmd.AddCommand(
		account.NewLoginCommand(&flags),
		account.NewLogoutCommand(&flags),
		account.NewWhoamiCommand(&flags),
		watch.NewCommand(&flags),
		publish.NewCommand(&flags),
		nav.NewCommand(&flags),
		qr.NewCommand(&flags),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
