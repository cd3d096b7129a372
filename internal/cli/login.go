package cli

import (
	"fmt"
	"io"

	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/spf13/cobra"
)

type loginResult struct {
	Nut string `json:"nut"`
	*sqrlsdk.LoginResponse
}

func newLoginCmd(st *state) *cobra.Command {
	var (
		path     string
		nut      string
		register bool
		wantSUK  bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with the local identity",
		Long: `Request a nut for --path and answer it with a signed ident command.

When the path carries a question the login is left pending. Answer it, then
finish the login with the same nut:

  sqrlctl login --path /MessageMe/Now
  sqrlctl ask answer <nut> 1
  sqrlctl login --path /MessageMe/Now --nut <nut>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := LoadIdentity(st.identityPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if nut == "" {
				issued, err := st.client.RequestNut(ctx, path)
				if err != nil {
					return fmt.Errorf("requesting nut: %w", err)
				}
				nut = issued.Nut
			}

			resp, err := st.client.Login(ctx, id, nut, path, sqrlsdk.LoginOptions{
				Register: register,
				WantSUK:  wantSUK,
			})
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			if st.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), loginResult{Nut: nut, LoginResponse: resp}); err != nil {
					return err
				}
			} else if err := printLogin(cmd.OutOrStdout(), nut, resp); err != nil {
				return err
			}

			if resp.Outcome == sqrlsdk.OutcomeDenied {
				return fmt.Errorf("login denied: %s", resp.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "site path to log in to")
	cmd.Flags().StringVar(&nut, "nut", "", "reuse an issued nut instead of requesting one")
	cmd.Flags().BoolVar(&register, "register", false, "send unlock keys so an unknown identity can be created")
	cmd.Flags().BoolVar(&wantSUK, "want-suk", false, "ask the server to return the stored SUK")
	return cmd
}

func printLogin(w io.Writer, nut string, resp *sqrlsdk.LoginResponse) error {
	var expires string
	if resp.ExpiresAt != nil {
		expires = resp.ExpiresAt.Local().Format("2006-01-02 15:04:05")
	}

	if err := printFields(w,
		"Outcome", resp.Outcome,
		"Reason", resp.Reason,
		"Nut", nut,
		"User ID", resp.UserID,
		"SUK", resp.SUK,
		"Ticket", resp.Ticket,
		"Expires", expires,
	); err != nil {
		return err
	}

	if q := resp.Question; q != nil {
		fmt.Fprintf(w, "\n%s\n", q.Message)
		printButton(w, 1, q.Button1)
		printButton(w, 2, q.Button2)
		fmt.Fprintf(w, "\nAnswer with: sqrlctl ask answer %s <button>\n", nut)
	}
	return nil
}

func printButton(w io.Writer, n int, b *sqrlsdk.Button) {
	if b == nil {
		return
	}
	if b.URL != "" {
		fmt.Fprintf(w, "  [%d] %s (%s)\n", n, b.Label, b.URL)
		return
	}
	fmt.Fprintf(w, "  [%d] %s\n", n, b.Label)
}
