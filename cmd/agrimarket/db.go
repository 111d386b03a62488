package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/agrimarket/pkg/catalog/pgsource"
	"github.com/itsneelabh/agrimarket/pkg/logger"
)

func newDBCmd(opts *rootOptions) *cobra.Command {
	var dsn string
	db := &cobra.Command{
		Use:   "db",
		Short: "Manage the PostgreSQL catalog store",
		Long: `Creates the catalog_items table and loads catalogs into it. The
connection string comes from --dsn, AGRI_DATABASE_URL or the
configuration file.`,
	}
	db.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")

	open := func() (*pgsource.Source, error) {
		if dsn == "" {
			cfg, err := opts.loadConfig()
			if err != nil {
				return nil, err
			}
			dsn = cfg.Catalog.DatabaseURL
		}
		if dsn == "" {
			return nil, errors.New("no catalog database configured: pass --dsn")
		}
		return pgsource.Open(dsn, logger.NewNop())
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog_items table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := open()
			if err != nil {
				return err
			}
			defer src.Close()
			if err := src.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog_items is up to date")
			return nil
		},
	}

	var seedFile string
	seed := &cobra.Command{
		Use:   "seed [catalog...]",
		Short: "Replace catalogs in the database with the built-in or file catalogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(opts, seedFile)
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				names = reg.Names()
			}

			src, err := open()
			if err != nil {
				return err
			}
			defer src.Close()
			if err := src.Migrate(cmd.Context()); err != nil {
				return err
			}
			for _, name := range names {
				c, err := reg.Get(name)
				if err != nil {
					return err
				}
				if err := src.Import(cmd.Context(), c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (%d items)\n", name, len(c.Items))
			}
			return nil
		},
	}
	seed.Flags().StringVar(&seedFile, "file", "", "YAML catalog file merged over the built-in catalogs")

	db.AddCommand(migrate, seed)
	return db
}
