package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/morezero/member-query/internal/config"
	"github.com/morezero/member-query/pkg/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the capability catalog advertised to the model as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cat, err := catalog.Load(cfg.CatalogManifestFile)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cat.List())
	},
}
