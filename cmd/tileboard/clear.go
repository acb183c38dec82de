package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tileboard/internal/appconfig"
	"pkt.systems/tileboard/internal/persist"
)

func newClearCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the persisted session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Session.File == "" {
				return fmt.Errorf("no session file configured")
			}
			store, err := persist.NewStoreWithLogger(cfg.Session.File, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.Path())
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
