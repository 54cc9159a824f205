package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/session"
	"slidecast/internal/workflow"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or discard the saved wizard session",
	}
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionDiscardCommand(ctx))
	return sessionCmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *session.SQLiteStore) error {
				out := cmd.OutOrStdout()
				if raw {
					data, ok, err := store.Raw(cmd.Context())
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, "No saved session")
						return nil
					}
					fmt.Fprintln(out, string(data))
					return nil
				}
				sess, ok, err := store.Load(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "No saved session")
					return nil
				}
				fmt.Fprintln(out, renderSavedSession(sess, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the stored JSON document")
	return cmd
}

func newSessionDiscardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Delete the saved session and its uploaded file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLock(func() error {
				cfg := ctx.configValue()
				logger, err := ctx.logger()
				if err != nil {
					return err
				}
				client, err := ctx.client()
				if err != nil {
					return err
				}
				return ctx.withStore(func(store *session.SQLiteStore) error {
					_, ok, err := store.Load(cmd.Context())
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "No saved session")
						return nil
					}
					mgr := workflow.NewManager(cfg, client, store, logging.NewComponentLogger(logger, "cli"))
					defer mgr.Close()
					if err := mgr.Discard(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Saved session discarded")
					return nil
				})
			})
		},
	}
}

func renderSavedSession(sess session.Session, colorize bool) string {
	lines := renderSectionHeader("Saved session", colorize)
	lines = append(lines, renderStatusLine("Presentation", statusInfo, describeSaved(sess), colorize))
	lines = append(lines, renderStatusLine("Slides", statusInfo, fmt.Sprintf("%d", len(sess.Slides)), colorize))
	lines = append(lines, renderStatusLine("Script", statusInfo, yesNo(sess.ScriptData != nil), colorize))
	lines = append(lines, renderStatusLine("Avatar config", statusInfo, yesNo(sess.AvatarConfig != nil), colorize))

	rows := make([][]string, 0, len(jobs.Kinds))
	for _, kind := range jobs.Kinds {
		state := sess.Stage(kind)
		rows = append(rows, []string{
			displayLabel(string(kind)),
			displayLabel(string(state.Status)),
			fmt.Sprintf("%d%%", state.Progress),
			sess.Jobs.ID(kind),
		})
	}
	lines = append(lines, "", renderTable("", []string{"Stage", "Status", "Progress", "Job"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	return joinLines(lines)
}
