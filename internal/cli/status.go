package cli

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the SQRL service is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := st.client.GetReadiness(cmd.Context())
			if err != nil {
				return fmt.Errorf("checking %s: %w", st.server, err)
			}
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), health)
			}

			kv := []string{
				"Server", st.server,
				"Status", health.Status,
				"Version", health.Version,
				"Uptime", health.Uptime,
			}
			names := make([]string, 0, len(health.Checks))
			for name := range health.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				kv = append(kv, "  "+name, health.Checks[name])
			}
			return printFields(cmd.OutOrStdout(), kv...)
		},
	}
}

func newVersionCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": Version,
					"go":      runtime.Version(),
					"os":      runtime.GOOS,
					"arch":    runtime.GOARCH,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sqrlctl %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
