package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/spf13/cobra"
)

const (
	dirName  = "sqrlctl"
	fileName = "identity.json"
)

// ErrNoIdentity is returned when the identity file does not exist yet.
var ErrNoIdentity = errors.New("no identity found, run: sqrlctl identity new")

// DefaultIdentityPath returns the identity file location under the user's
// config directory.
func DefaultIdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("finding config dir: %w", err)
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// LoadIdentity reads the identity stored at path.
func LoadIdentity(path string) (*sqrlsdk.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoIdentity
		}
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	id := &sqrlsdk.Identity{}
	if err := json.Unmarshal(data, id); err != nil {
		return nil, fmt.Errorf("parsing identity %s: %w", path, err)
	}
	return id, nil
}

// SaveIdentity writes id to path, readable only by the owner.
func SaveIdentity(path string, id *sqrlsdk.Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating identity dir: %w", err)
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	// Write then rename so a failed write never truncates the old identity.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

func newIdentityCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the local SQRL identity",
	}

	var force bool
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(st.identityPath); err == nil && !force {
				return fmt.Errorf("identity already exists at %s (use --force to replace it)", st.identityPath)
			}

			id, err := sqrlsdk.NewIdentity()
			if err != nil {
				return err
			}
			if err := SaveIdentity(st.identityPath, id); err != nil {
				return err
			}
			return st.printIdentity(cmd, id)
		},
	}
	newCmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the public half of the identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := LoadIdentity(st.identityPath)
			if err != nil {
				return err
			}
			return st.printIdentity(cmd, id)
		},
	}

	cmd.AddCommand(newCmd, showCmd)
	return cmd
}

type identitySummary struct {
	UserID string `json:"user_id"`
	VUK    string `json:"vuk"`
	Path   string `json:"path"`
}

func (st *state) printIdentity(cmd *cobra.Command, id *sqrlsdk.Identity) error {
	s := identitySummary{UserID: id.UserID(), VUK: id.VUK(), Path: st.identityPath}
	if st.jsonOutput {
		return printJSON(cmd.OutOrStdout(), s)
	}
	return printFields(cmd.OutOrStdout(),
		"User ID", s.UserID,
		"VUK", s.VUK,
		"File", s.Path,
	)
}
