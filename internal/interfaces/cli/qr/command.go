// Package qr prints VietQR transfer codes.
package qr

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shoozy-shop/storefront/internal/infrastructure/payment"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/bootstrap"
)

var (
	amount   int64
	addInfo  string
	bankCode string
	useAPI   bool
)

func NewCommand(flags *bootstrap.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Build a VietQR code for a bank transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := payment.Params{Amount: amount, AddInfo: addInfo, BankCode: bankCode}
			if res := payment.Validate(params); !res.Valid {
				for _, msg := range res.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				return fmt.Errorf("invalid transfer")
			}

			c, _, err := bootstrap.Build(flags)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			out := cmd.OutOrStdout()
			if !useAPI {
				link, err := c.Payment.SimpleQRURL(params)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, link)
				return nil
			}

			res, err := c.Payment.Generate(cmd.Context(), params)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "bank:    %s (%s)\n", res.Bank.Name, res.Account)
			fmt.Fprintf(out, "qrCode:  %s\n", res.QRCode)
			fmt.Fprintf(out, "image:   %s\n", res.QRDataURL)
			return nil
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount in VND")
	cmd.Flags().StringVar(&addInfo, "info", "", "Transfer memo")
	cmd.Flags().StringVar(&bankCode, "bank", "", "Bank code (default from config)")
	cmd.Flags().BoolVar(&useAPI, "api", false, "Generate through the VietQR API instead of the image URL")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
