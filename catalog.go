package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"car-scout/storage"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local SQLite reference catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import reference records from JSON or YAML files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewReferenceStore(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, path := range args {
			records, err := storage.LoadReferences(path)
			if err != nil {
				return err
			}
			groups, err := store.Import(cmd.Context(), records)
			if err != nil {
				return err
			}
			logger.Info("[catalog] Imported %d records (%d vehicles) from %s", len(records), groups, path)
		}
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the records in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewReferenceStore(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.All(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, r := range records {
			fmt.Fprintf(out, "%-12s %-12s %-16s %4d  %d components, %d issues\n",
				r.Source, r.Make, r.Model, r.Year, len(r.Reliability), len(r.Issues))
		}
		fmt.Fprintf(out, "%d records\n", len(records))
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
