// ABOUTME: Trip remove command
// ABOUTME: Removes a trip with its track, captures and video

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harper/rotograma/internal/ui"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a trip",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := db.ResolveSession(args[0])
		if err != nil {
			return fmt.Errorf("trip '%s' not found: %w", args[0], err)
		}
		short := sess.ID.String()[:ui.ShortID]

		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			fmt.Printf("Remove trip %s with %d captures? [y/N] ", short, len(sess.CaptureEvents))
			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := db.DeleteSession(sess.ID); err != nil {
			return fmt.Errorf("failed to remove trip: %w", err)
		}

		color.Green("✓ Removed %s", short)
		return nil
	},
}

func init() {
	removeCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(removeCmd)
}
