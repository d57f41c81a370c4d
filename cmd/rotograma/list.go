// ABOUTME: Trip list command
// ABOUTME: Lists stored trips newest first with their counts

package main

import (
	"fmt"

	"github.com/harper/rotograma/internal/ui"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded trips",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := db.ListSessions()
		if err != nil {
			return fmt.Errorf("failed to list trips: %w", err)
		}

		if len(infos) == 0 {
			fmt.Println("No trips recorded yet. Use 'rotograma record' to record one.")
			return nil
		}

		for _, info := range infos {
			fmt.Println(ui.FormatSessionInfo(info))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
