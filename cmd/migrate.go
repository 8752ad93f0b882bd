package main

import (
	"github.com/spf13/cobra"

	"apiworkbench/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables, collections and indexes of the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		utils.LogInfo("migration complete", "driver", cfg.StorageDriver)
		return nil
	},
}
