package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"slidecast/internal/preflight"
)

func newAvatarCommand(ctx *commandContext) *cobra.Command {
	avatarCmd := &cobra.Command{
		Use:   "avatar",
		Short: "Inspect or unlock the backend avatar renderer",
	}
	avatarCmd.AddCommand(newAvatarStatusCommand(ctx))
	avatarCmd.AddCommand(newAvatarUnlockCommand(ctx))
	return avatarCmd
}

func newAvatarStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the avatar renderer state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			renderer := preflight.FetchRendererStatus(cmd.Context(), client)
			out := cmd.OutOrStdout()
			kind := statusOK
			switch {
			case !renderer.Reachable:
				kind = statusError
			case renderer.Busy():
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Avatar renderer", kind, renderer.Detail(), shouldColorize(out)))
			if !renderer.Reachable {
				return errors.New("avatar renderer unreachable")
			}
			return nil
		},
	}
}

func newAvatarUnlockCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Force-clear the renderer lock (may abort another user's render)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("force unlock may abort another render; pass --yes to confirm")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if err := client.ForceUnlock(cmd.Context()); err != nil {
				return fmt.Errorf("force unlock: %w", err)
			}
			logger.Warn("avatar renderer lock force-cleared from cli")
			fmt.Fprintln(cmd.OutOrStdout(), "Avatar renderer lock cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the force unlock")
	return cmd
}
