package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errNoTicket = errors.New("no session ticket, pass --ticket or set SQRL_TICKET")

func ticketFlag(flags *pflag.FlagSet, ticket *string) {
	flags.StringVar(ticket, "ticket", os.Getenv("SQRL_TICKET"), "session ticket from a successful login")
}

func newSessionCmd(st *state) *cobra.Command {
	var ticket string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Describe the session behind a ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticket == "" {
				return errNoTicket
			}

			sess, err := st.client.GetSession(cmd.Context(), ticket)
			if err != nil {
				return fmt.Errorf("fetching session: %w", err)
			}
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), sess)
			}
			return printFields(cmd.OutOrStdout(),
				"User ID", sess.UserID,
				"Role", sess.Role,
				"Scope", sess.Scope,
				"Session", sess.SessionID,
				"Expires", sess.ExpiresAt.Local().Format("2006-01-02 15:04:05"),
			)
		},
	}

	ticketFlag(cmd.Flags(), &ticket)
	return cmd
}

func newAdminCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer identities (requires an admin ticket)",
	}

	var ticket string
	ticketFlag(cmd.PersistentFlags(), &ticket)

	lockCmd := &cobra.Command{
		Use:   "lock <user-id>",
		Short: "Lock an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticket == "" {
				return errNoTicket
			}
			resp, err := st.client.AdminLock(cmd.Context(), ticket, args[0])
			if err != nil {
				return fmt.Errorf("locking %s: %w", args[0], err)
			}
			return st.printAdmin(cmd, resp)
		},
	}

	unlockCmd := &cobra.Command{
		Use:   "unlock <user-id>",
		Short: "Unlock an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticket == "" {
				return errNoTicket
			}
			resp, err := st.client.AdminUnlock(cmd.Context(), ticket, args[0])
			if err != nil {
				return fmt.Errorf("unlocking %s: %w", args[0], err)
			}
			return st.printAdmin(cmd, resp)
		},
	}

	cmd.AddCommand(lockCmd, unlockCmd, newKeysCmd(st, &ticket))
	return cmd
}

func newKeysCmd(st *state, ticket *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage session ticket signing keys",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List signing keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if *ticket == "" {
				return errNoTicket
			}
			keys, err := st.client.ListSigningKeys(cmd.Context(), *ticket)
			if err != nil {
				return fmt.Errorf("listing keys: %w", err)
			}
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), keys)
			}
			return printKeys(cmd.OutOrStdout(), keys)
		},
	}

	var retire bool
	rotateCmd := &cobra.Command{
		Use:   "rotate",
		Short: "Activate a new signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if *ticket == "" {
				return errNoTicket
			}
			resp, err := st.client.RotateSigningKey(cmd.Context(), *ticket, retire)
			if err != nil {
				return fmt.Errorf("rotating keys: %w", err)
			}
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printFields(cmd.OutOrStdout(),
				"New key", resp.NewKey.Kid,
				"Retired", strconv.Itoa(len(resp.RetiredKeys)),
				"Active", strconv.Itoa(resp.ActiveKeys),
			)
		},
	}
	rotateCmd.Flags().BoolVar(&retire, "retire", false, "retire the current keys once the new one is active")

	retireCmd := &cobra.Command{
		Use:   "retire <kid>",
		Short: "Stop a key from signing new tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if *ticket == "" {
				return errNoTicket
			}
			if err := st.client.RetireSigningKey(cmd.Context(), *ticket, args[0]); err != nil {
				return fmt.Errorf("retiring %s: %w", args[0], err)
			}
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"retired": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retired %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, rotateCmd, retireCmd)
	return cmd
}

func printKeys(w io.Writer, keys []sqrlsdk.SigningKeyInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KID\tSTATUS\tCREATED\tEXPIRES")
	for _, k := range keys {
		status := "active"
		if k.RetiredAt != nil {
			status = "retired"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Kid, status, formatTime(k.CreatedAt), formatTime(k.ExpiresAt))
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func (st *state) printAdmin(cmd *cobra.Command, resp *sqrlsdk.AdminIdentityResponse) error {
	if st.jsonOutput {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	return printFields(cmd.OutOrStdout(),
		"User ID", resp.UserID,
		"Locked", strconv.FormatBool(resp.Locked),
	)
}
