package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhubert/quill/doctor"
)

// doctorAPITimeout bounds the reachability probe, independent of the
// configured request timeout.
const doctorAPITimeout = 5 * time.Second

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage and API connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := doctor.Run(cmd.Context(), []doctor.Check{
				doctor.ConfigCheck(a.cfg),
				doctor.StorageCheck(a.backend),
				doctor.APICheck(a.client.BaseURL(), a.client, doctorAPITimeout),
				doctor.SessionCheck(a.store, a.backend.Storage, time.Now),
			})
			fmt.Fprint(cmd.OutOrStdout(), doctor.FormatResults(results))
			return doctor.ValidateRequired(results)
		},
	}
}
