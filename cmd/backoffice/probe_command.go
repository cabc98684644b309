package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

func newProbeCommand(cc *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check primary database and content API reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := bootstrap(cmd.Context(), cc.cfg, cc.log, bootstrapOptions{})
			if err != nil {
				return err
			}
			defer st.close(cmd.Context(), cc.log)

			status := st.service.Probe(cmd.Context())
			if asJSON {
				return writeJSON(cmd, status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(s domain.Status) string {
	probedAt := "never"
	if s.Probed {
		probedAt = s.ProbedAt.Format(time.RFC3339)
	}
	return renderKeyValues([][2]string{
		{"Primary database", yesNo(s.PrimaryAvailable)},
		{"Content API", yesNo(s.ContentAPIAvailable)},
		{"Probed at", probedAt},
	})
}
