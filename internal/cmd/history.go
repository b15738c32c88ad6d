package cmd

import (
	"fmt"

	"github.com/charmbracelet/nospawn/internal/db"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled activations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			conn, err := db.Connect(cmd.Context(), cfg.DataDir)
			if err != nil {
				return err
			}
			defer conn.Close()

			items, err := db.New(conn).ListActivations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), historyJSON(items))
				return nil
			}
			printHistory(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of entries to show")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
	return cmd
}
