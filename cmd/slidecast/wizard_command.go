package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/preflight"
	"slidecast/internal/session"
	"slidecast/internal/workflow"
)

func newWizardCommand(ctx *commandContext) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Run the interactive slide-to-video wizard",
		Long: "Run the interactive wizard. Type 'help' at the prompt for commands.\n" +
			"On a terminal the wizard keeps the current step pinned below its output;\n" +
			"piped input and --plain read one command per line.\n" +
			"Only one wizard may run per state directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := session.AcquireLock(cfg.LockPath())
			if err != nil {
				if errors.Is(err, session.ErrLocked) {
					return fmt.Errorf("another wizard is already running against %s", cfg.Paths.StateDir)
				}
				return err
			}
			defer lock.Release()

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			logger = logger.With(logging.String(logging.FieldCorrelationID, uuid.NewString()))

			client, err := ctx.client()
			if err != nil {
				return err
			}
			store, err := session.Open(cfg)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}
			defer store.Close()

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			in, out := cmd.InOrStdin(), cmd.OutOrStdout()
			interactive := !plain && isTerminal(in) && isTerminal(out)
			w := newWizard(out, shouldColorize(out))
			banner := notifications.NewBanner(w.onNotice)
			mgr := workflow.NewManager(cfg, client, store, logger,
				workflow.WithBanner(banner),
				workflow.WithObserver(w.observe),
				workflow.WithNotifier(notifications.NewService(cfg)),
			)
			defer mgr.Close()
			w.attach(mgr)

			var startup []string
			if check := preflight.CheckBackend(runCtx, client, cfg.Backend.BaseURL); !check.Passed {
				startup = append(startup, renderStatusLine(check.Name, statusWarn, check.Detail, w.colorize))
			}
			attrs := []logging.Attr{
				logging.String("backend", cfg.Backend.BaseURL),
				logging.Bool("interactive", interactive),
			}
			logger.Info("wizard started", logging.Args(attrs...)...)
			defer logger.Info("wizard stopped")

			if interactive {
				return runWizardUI(runCtx, w, in, out, startup)
			}
			return w.runLines(runCtx, in, startup)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Read one command per line even on a terminal")
	return cmd
}
