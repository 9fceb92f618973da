package main

import (
	"github.com/spf13/cobra"
)

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			ok, err := store.HasFrames(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				a.log.Info("no frames stored")
			}
			if err := store.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			if ok {
				a.log.Info("frames deleted", "backend", a.cfg.StoreBackend)
			}
			return nil
		},
	}
}
