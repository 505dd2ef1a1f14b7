package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhubert/quill/config"
)

func newConfigCmd(opts *rootOptions, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change the settings in config.yaml.

Keys: ` + strings.Join(config.Keys, ", ") + `

"config get" shows the value in effect, after QUILL_* environment
variables and flags. "config set" edits only the file.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:         "path",
			Short:       "Print the config file path",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{skipSetup: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the value of a setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := a.cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change a setting in the config file",
			Args:  cobra.ExactArgs(2),
			// runs without a session so a broken setting can be repaired
			Annotations: map[string]string{skipSetup: "true"},
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configFilePath(opts)
				if err != nil {
					return err
				}
				cfg, err := config.ReadFile(path)
				if err != nil {
					return err
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := cfg.Save(); err != nil {
					return fmt.Errorf("failed to save %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
				return nil
			},
		},
	)
	return cmd
}
