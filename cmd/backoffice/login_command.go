package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

func newLoginCommand(cc *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Run the credential chain once and print the outcome",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := bootstrap(cmd.Context(), cc.cfg, cc.log, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer st.close(cmd.Context(), cc.log)

			result := st.service.Authenticate(cmd.Context(), args[0], args[1])
			if asJSON {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderResult(result))
			}
			if !result.Success {
				return errors.New(result.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderResult(r domain.AuthResult) string {
	rows := [][2]string{
		{"Success", yesNo(r.Success)},
		{"Message", r.Message},
	}
	if r.Source != "" {
		rows = append(rows, [2]string{"Source", string(r.Source)})
	}
	if u := r.User; u != nil {
		rows = append(rows,
			[2]string{"User ID", u.ID},
			[2]string{"Username", u.Username},
			[2]string{"Email", u.Email},
			[2]string{"Full name", u.FullName},
			[2]string{"Role", u.Role},
			[2]string{"Table", u.SourceTable},
		)
	}
	if r.Debug != "" {
		rows = append(rows, [2]string{"Debug", r.Debug})
	}
	return renderKeyValues(rows)
}
