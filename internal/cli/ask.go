package cli

import (
	"fmt"
	"strconv"

	"github.com/aussiebroadwan/sqrl/pkg/sqrlsdk"
	"github.com/spf13/cobra"
)

func newAskCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Poll or answer a pending question",
	}

	pollCmd := &cobra.Command{
		Use:   "poll <nut>",
		Short: "Show the state of a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := st.client.PollAsk(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("polling question: %w", err)
			}
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), status)
			}

			var accepted string
			if status.Accepted != nil {
				accepted = strconv.FormatBool(*status.Accepted)
			}
			return printFields(cmd.OutOrStdout(),
				"State", status.State,
				"Accepted", accepted,
			)
		},
	}

	answerCmd := &cobra.Command{
		Use:   "answer <nut> <button>",
		Short: "Press button 1 or 2",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			button, err := strconv.Atoi(args[1])
			if err != nil || (button != 1 && button != 2) {
				return fmt.Errorf("button must be 1 or 2, got %q", args[1])
			}

			if err := st.client.AnswerAsk(cmd.Context(), args[0], button); err != nil {
				return fmt.Errorf("answering question: %w", err)
			}
			if st.jsonOutput {
				return printJSON(cmd.OutOrStdout(), sqrlsdk.AskAnswerRequest{Button: button})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pressed button %d\n", button)
			return nil
		},
	}

	cmd.AddCommand(pollCmd, answerCmd)
	return cmd
}
