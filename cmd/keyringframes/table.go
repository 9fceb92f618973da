package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/keyringframes/internal/motion"
)

func (a *app) tableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Work with transform tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export PATH",
		Short: "Write the built-in keyring table as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := motion.WriteTable(motion.Keyring, args[0]); err != nil {
				return err
			}
			a.log.Info("table written", "path", args[0], "frames", motion.Keyring.Len())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check PATH",
		Short: "Validate a YAML transform table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := motion.ReadTable(args[0])
			if err != nil {
				return err
			}
			sense := t.Sense
			if sense == "" {
				sense = motion.CounterClockwise
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames, rotation %s\n", args[0], t.Len(), sense)
			return nil
		},
	})

	return cmd
}
