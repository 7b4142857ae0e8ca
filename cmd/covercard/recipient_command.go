package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRecipientCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipient",
		Short: "Show or change the remembered recipient",
	}
	cmd.AddCommand(newRecipientShowCommand(ctx))
	cmd.AddCommand(newRecipientSetCommand(ctx))
	return cmd
}

func newRecipientShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the recipient used when --to is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.recipientStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			source := "settings file"
			doc, err := store.Load()
			switch {
			case err != nil:
				fmt.Fprintf(out, "Warning: %v\n", err)
				source = "delivery.default_recipient"
			case strings.TrimSpace(doc.ToEmail) == "":
				source = "delivery.default_recipient"
			}

			recipient := store.Recipient()
			if recipient == "" {
				fmt.Fprintln(out, "No recipient remembered")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Recipient", "Source", "File"},
				[][]string{{recipient, source, store.Path()}},
				nil,
			))
			return nil
		},
	}
}

func newRecipientSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <address>",
		Short: "Remember a recipient address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.recipientStore()
			if err != nil {
				return err
			}
			if err := store.SaveRecipient(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Remembered %s\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
}
