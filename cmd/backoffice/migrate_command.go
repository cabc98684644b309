package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankunstudio/backoffice/internal/infrastructure/db/postgres"
	"github.com/ankunstudio/backoffice/internal/infrastructure/db/sqlite"
)

func newMigrateCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the credential schema to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := cc.cfg.Database.URL
			switch {
			case url == "":
				return errors.New("DATABASE_URL is not set")
			case postgres.IsPostgresURL(url):
				version, err := postgres.Migrate(url)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "postgres schema at version %d\n", version)
			case sqlite.IsSQLiteURL(url):
				store, err := sqlite.Open(cmd.Context(), url)
				if err != nil {
					return err
				}
				defer store.Close()
				fmt.Fprintln(cmd.OutOrStdout(), "sqlite schema ready")
			default:
				return errors.New("unsupported DATABASE_URL scheme")
			}
			return nil
		},
	}
}
