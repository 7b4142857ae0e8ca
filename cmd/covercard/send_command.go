package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xob0t/covercard/internal/logging"
	"github.com/xob0t/covercard/internal/settings"
	"github.com/xob0t/covercard/pkg/delivery"
	"github.com/xob0t/covercard/pkg/generator"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var flags coverFlags
	var to string
	var remember bool
	var output string

	cmd := &cobra.Command{
		Use:   "send <image>",
		Short: "Render a cover and mail both images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDelivery(); err != nil {
				return err
			}
			store, err := ctx.recipientStore()
			if err != nil {
				return err
			}

			recipient := strings.TrimSpace(to)
			if recipient == "" {
				recipient = store.Recipient()
			}
			if recipient == "" {
				return errors.New("no recipient: pass --to or run 'covercard recipient set <address>'")
			}
			if err := settings.ValidateRecipient(recipient); err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			comp, _, err := flags.compose(cmd, ctx, logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if strings.TrimSpace(output) != "" {
				cover, plain, err := generator.WriteArtifacts(output, comp)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved %s and %s\n", cover, plain)
			}

			worker := delivery.NewWorker(cfg.Transport(),
				delivery.WithLogger(logging.NewComponentLogger(logger, "delivery")),
			)
			job := delivery.NewJob(recipient, comp.Cover, comp.Plain)
			err = worker.Run(cmd.Context(), job, func(p delivery.Progress) {
				if p.Message != "" {
					fmt.Fprintf(out, "%-26s %s\n", p.State.String(), p.Message)
					return
				}
				fmt.Fprintln(out, p.State.String())
			})
			if err != nil {
				return err
			}

			if remember {
				if err := store.SaveRecipient(recipient); err != nil {
					logger.Warn("remember recipient failed", logging.Error(err))
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Recipient address (default: remembered recipient)")
	cmd.Flags().BoolVar(&remember, "remember", false, "Remember the recipient after a successful send")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Also write the images to this path")
	return cmd
}
