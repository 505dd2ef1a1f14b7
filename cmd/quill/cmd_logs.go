package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/paths"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Manage quill log files",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:         "path",
			Short:       "Print the log file path",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{skipSetup: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := logger.DefaultLogPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:         "clear",
			Short:       "Remove quill log files",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{skipSetup: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := paths.LogsDir()
				if err != nil {
					return err
				}
				n, err := logger.ClearLogs()
				if err != nil {
					return fmt.Errorf("failed to clear logs: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d log file(s) from %s\n", n, dir)
				return nil
			},
		},
	)
	return cmd
}
