package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xob0t/covercard/clients/server"
	"github.com/xob0t/covercard/internal/logging"
	"github.com/xob0t/covercard/pkg/delivery"
	"github.com/xob0t/covercard/pkg/scheduler"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live preview and send API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			renderer, err := ctx.newRenderer(logger)
			if err != nil {
				return err
			}
			sched := scheduler.New(renderer,
				scheduler.WithLogger(logging.NewComponentLogger(logger, "scheduler")),
				scheduler.WithDebounce(cfg.Debounce(), scheduler.BusyRetry),
				scheduler.WithInitial(cfg.InitialRequest()),
			)
			defer sched.Close()

			store, err := ctx.recipientStore()
			if err != nil {
				return err
			}

			deps := server.Deps{
				Scheduler:  sched,
				Recipients: store,
				Logger:     logging.NewComponentLogger(logger, "server"),
				MaxUpload:  int64(cfg.Server.MaxUploadMB) << 20,
			}
			if err := cfg.ValidateDelivery(); err != nil {
				logger.Warn("sending disabled", logging.Error(err))
			} else {
				deps.Sender = delivery.NewWorker(cfg.Transport(),
					delivery.WithLogger(logging.NewComponentLogger(logger, "delivery")),
				)
			}

			addr := strings.TrimSpace(bind)
			if addr == "" {
				addr = cfg.Server.Bind
			}

			runCtx, stop := signal.NotifyContext(baseContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(deps).Run(runCtx, addr)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from server.bind)")
	return cmd
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
