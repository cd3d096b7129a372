// Package cli implements sqrlctl, a command line SQRL client used to drive a
// login service by hand: it holds an identity on disk, signs commands with it
// and answers Ask questions.
package cli

import (
	"fmt"
	"os"

	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// state is shared by every subcommand of one command tree.
type state struct {
	server       string
	identityPath string
	jsonOutput   bool

	client *sqrlsdk.Client
}

// NewRootCmd builds the sqrlctl command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "sqrlctl",
		Short:         "SQRL command line client",
		Long:          "sqrlctl keeps a SQRL identity on disk and uses it to log in, answer questions and manage the account on a SQRL login service.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if st.identityPath == "" {
				p, err := DefaultIdentityPath()
				if err != nil {
					return err
				}
				st.identityPath = p
			}
			st.client = sqrlsdk.NewClient(st.server)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&st.server, "server", envOrDefault("SQRL_SERVER", "http://localhost:8080"), "SQRL service URL")
	root.PersistentFlags().StringVar(&st.identityPath, "identity", os.Getenv("SQRL_IDENTITY"), "identity file (default: user config dir)")
	root.PersistentFlags().BoolVar(&st.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		newIdentityCmd(st),
		newLoginCmd(st),
		newAskCmd(st),
		newAccountCmd(st, sqrlsdk.CmdDisable),
		newAccountCmd(st, sqrlsdk.CmdEnable),
		newAccountCmd(st, sqrlsdk.CmdRemove),
		newRekeyCmd(st),
		newSessionCmd(st),
		newAdminCmd(st),
		newStatusCmd(st),
		newVersionCmd(st),
	)

	return root
}

// Execute runs sqrlctl with the process arguments.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
