package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"subflow/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc := notifications.NewService(cfg)
			if !notifications.Enabled(svc) {
				return errors.New("notifications.ntfy_topic is not configured")
			}
			if err := svc.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
