package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"thirdcoast.systems/browserutility/internal/pairing"
)

var (
	PairCmd = &cobra.Command{
		Use:   "pair",
		Short: "Manage the tokens that pair the extension with the helper",
	}

	pairIssueCmd = &cobra.Command{
		Use:   "issue [label]",
		Short: "Issue a new pairing token (shown once)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			raw, row, err := pairing.NewService(a.dbc).Issue(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			cmd.Printf("Issued token %s (%s). Paste it into the extension; it will not be shown again:\n\n%s\n", row.ID, row.Label, raw)
			return nil
		},
	}

	pairListCmd = &cobra.Command{
		Use:   "list",
		Short: "List issued pairing tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := pairing.NewService(a.dbc).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				cmd.Println("No pairing tokens.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tCREATED\tLAST USED")
			for _, r := range rows {
				lastUsed := "never"
				if r.LastUsedAt != nil {
					lastUsed = humanize.Time(*r.LastUsedAt)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Label, humanize.Time(r.CreatedAt), lastUsed)
			}
			return tw.Flush()
		},
	}

	pairRevokeCmd = &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a pairing token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := pairing.NewService(a.dbc).Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Revoked %s.\n", args[0])
			return nil
		},
	}
)

func init() {
	RootCmd.AddCommand(PairCmd)
	PairCmd.AddCommand(pairIssueCmd, pairListCmd, pairRevokeCmd)
}
