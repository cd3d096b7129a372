package cli

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/spf13/cobra"
)

var accountShort = map[sqrlsdk.Command]string{
	sqrlsdk.CmdDisable: "Lock the account so it cannot log in",
	sqrlsdk.CmdEnable:  "Unlock a disabled account",
	sqrlsdk.CmdRemove:  "Delete the account from the service",
}

// newAccountCmd builds the disable, enable and remove commands. Each one
// consumes a fresh nut.
func newAccountCmd(st *state, command sqrlsdk.Command) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   string(command),
		Short: accountShort[command],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := LoadIdentity(st.identityPath)
			if err != nil {
				return err
			}

			resp, err := st.sendCommand(cmd.Context(), path, func(ctx context.Context, nut string) (*sqrlsdk.IdentityCommandResponse, error) {
				switch command {
				case sqrlsdk.CmdDisable:
					return st.client.Disable(ctx, id, nut, path)
				case sqrlsdk.CmdEnable:
					return st.client.Enable(ctx, id, nut, path)
				default:
					return st.client.Remove(ctx, id, nut, path)
				}
			})
			if err != nil {
				return fmt.Errorf("%s: %w", command, err)
			}
			return st.printCommand(cmd, command, resp)
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "site path the nut is issued for")
	return cmd
}

func newRekeyCmd(st *state) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "rekey",
		Short: "Move the account to a newly generated identity",
		Long:  "Generate a new identity, ask the server to move the account to it and replace the identity file once the server agrees.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := LoadIdentity(st.identityPath)
			if err != nil {
				return err
			}
			next, err := sqrlsdk.NewIdentity()
			if err != nil {
				return err
			}

			resp, err := st.sendCommand(cmd.Context(), path, func(ctx context.Context, nut string) (*sqrlsdk.IdentityCommandResponse, error) {
				return st.client.Rekey(ctx, old, next, nut, path)
			})
			if err != nil {
				return fmt.Errorf("rekey: %w", err)
			}

			if resp.Outcome == sqrlsdk.OutcomeAuthenticated {
				if err := SaveIdentity(st.identityPath, next); err != nil {
					return fmt.Errorf("account moved to %s but saving the new identity failed: %w", next.UserID(), err)
				}
			}
			return st.printCommand(cmd, sqrlsdk.CmdRekey, resp)
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "site path the nut is issued for")
	return cmd
}

func (st *state) sendCommand(
	ctx context.Context,
	path string,
	send func(ctx context.Context, nut string) (*sqrlsdk.IdentityCommandResponse, error),
) (*sqrlsdk.IdentityCommandResponse, error) {
	issued, err := st.client.RequestNut(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("requesting nut: %w", err)
	}
	return send(ctx, issued.Nut)
}

func (st *state) printCommand(cmd *cobra.Command, command sqrlsdk.Command, resp *sqrlsdk.IdentityCommandResponse) error {
	if st.jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else if err := printFields(cmd.OutOrStdout(),
		"Command", string(command),
		"Outcome", resp.Outcome,
		"Reason", resp.Reason,
		"User ID", resp.UserID,
	); err != nil {
		return err
	}

	if resp.Outcome == sqrlsdk.OutcomeDenied {
		return fmt.Errorf("%s denied: %s", command, resp.Reason)
	}
	return nil
}
